package taxonomy

import (
	"context"
	"slices"

	"github.com/roach88/csom/internal/csom"
	"github.com/roach88/csom/internal/payload"
)

// TermSetRef names an existing term set by id or by name. A name is only
// unique within a group.
type TermSetRef struct {
	ID   string
	Name string
}

// AddTermSetRequest creates a term set in a group.
type AddTermSetRequest struct {
	Name             string
	ID               string // generated when empty
	Group            GroupRef
	Description      string
	CustomProperties map[string]string
	LCID             int // service default when zero
}

// AddTermSet creates a term set and, when a description or custom
// properties are given, applies them in a second round trip.
func (s *Service) AddTermSet(ctx context.Context, req AddTermSetRequest) (payload.Object, error) {
	name, err := NormalizeName("name", req.Name)
	if err != nil {
		return nil, err
	}
	group, err := resolveRef("group", req.Group.ID, req.Group.Name)
	if err != nil {
		return nil, err
	}
	id, err := s.objectID("id", req.ID)
	if err != nil {
		return nil, err
	}
	lcid, err := s.lcidOr(req.LCID)
	if err != nil {
		return nil, err
	}

	plan := createPlan{
		operation: OpAddTermSet,
		name:      name,
		create: func(g *csom.Graph, store int) int {
			parent := groupPath(g, store, group)
			return g.Method(parent, "CreateTermSet", csom.String(name), csom.Guid(id), csom.Int32Of(lcid))
		},
	}

	if req.Description != "" || len(req.CustomProperties) > 0 {
		plan.updates = payload.Object{}
		if req.Description != "" {
			plan.updates["Description"] = payload.String(req.Description)
		}
		if len(req.CustomProperties) > 0 {
			plan.updates["CustomProperties"] = stringsObject(req.CustomProperties)
		}
		plan.refine = func(g *csom.Graph, obj int) {
			if req.Description != "" {
				g.SetProperty(obj, "Description", csom.String(req.Description))
			}
			setProperties(g, obj, "SetCustomProperty", req.CustomProperties)
		}
	}
	return s.runCreate(ctx, plan)
}

// setProperties invokes method(key, value) for every entry, in key order.
func setProperties(g *csom.Graph, obj int, method string, props map[string]string) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		g.InvokeMethod(obj, method, csom.String(k), csom.String(props[k]))
	}
}
