package taxonomy

import (
	"context"

	"github.com/roach88/csom/internal/csom"
	"github.com/roach88/csom/internal/payload"
)

// AddTermRequest creates a term in a term set, or below a parent term.
//
// With ParentTermID set the term is created below that term and the term
// set is ignored. Otherwise TermSet is required; a term set named rather
// than identified also needs its Group.
type AddTermRequest struct {
	Name                  string
	ID                    string // generated when empty
	TermSet               TermSetRef
	Group                 GroupRef
	ParentTermID          string
	Description           string
	CustomProperties      map[string]string
	LocalCustomProperties map[string]string
	LCID                  int // service default when zero
}

// AddTerm creates a term and applies the description and custom
// properties, if any, in a second round trip.
func (s *Service) AddTerm(ctx context.Context, req AddTermRequest) (payload.Object, error) {
	name, err := NormalizeName("name", req.Name)
	if err != nil {
		return nil, err
	}
	parent, err := s.termParent(req)
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
		operation: OpAddTerm,
		name:      name,
		create: func(g *csom.Graph, store int) int {
			return g.Method(parent(g, store), "CreateTerm", csom.String(name), csom.Int32Of(lcid), csom.Guid(id))
		},
	}

	refined := req.Description != "" || len(req.CustomProperties) > 0 || len(req.LocalCustomProperties) > 0
	if refined {
		plan.updates = payload.Object{}
		if req.Description != "" {
			plan.updates["Description"] = payload.String(req.Description)
		}
		if len(req.CustomProperties) > 0 {
			plan.updates["CustomProperties"] = stringsObject(req.CustomProperties)
		}
		if len(req.LocalCustomProperties) > 0 {
			plan.updates["LocalCustomProperties"] = stringsObject(req.LocalCustomProperties)
		}
		plan.refine = func(g *csom.Graph, obj int) {
			if req.Description != "" {
				g.InvokeMethod(obj, "SetDescription", csom.String(req.Description), csom.Int32Of(lcid))
			}
			setProperties(g, obj, "SetCustomProperty", req.CustomProperties)
			setProperties(g, obj, "SetLocalCustomProperty", req.LocalCustomProperties)
		}
	}
	return s.runCreate(ctx, plan)
}

// termParent validates where the term goes and returns the function that
// adds the path to that container.
func (s *Service) termParent(req AddTermRequest) (func(g *csom.Graph, store int) int, error) {
	if req.ParentTermID != "" {
		parentID, err := ParseGuid("parent term id", req.ParentTermID)
		if err != nil {
			return nil, err
		}
		return func(g *csom.Graph, store int) int {
			return g.Method(store, "GetTerm", csom.Guid(parentID))
		}, nil
	}

	termSet, err := resolveRef("term set", req.TermSet.ID, req.TermSet.Name)
	if err != nil {
		return nil, err
	}
	if termSet.byID() {
		return func(g *csom.Graph, store int) int {
			return g.Method(store, "GetTermSet", csom.Guid(termSet.id))
		}, nil
	}

	group, err := resolveRef("group", req.Group.ID, req.Group.Name)
	if err != nil {
		return nil, err
	}
	return func(g *csom.Graph, store int) int {
		termSets := g.Property(groupPath(g, store, group), "TermSets")
		return termSet.lookup(g, termSets)
	}, nil
}
