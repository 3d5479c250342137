package taxonomy

import (
	"context"
	"fmt"

	"github.com/roach88/csom/internal/csom"
	"github.com/roach88/csom/internal/payload"
)

// GroupRef names an existing term group by id or by name.
type GroupRef struct {
	ID   string
	Name string
}

// AddTermGroupRequest creates a term group.
type AddTermGroupRequest struct {
	Name        string
	ID          string // generated when empty
	Description string
}

// AddTermGroup creates a term group in the default site collection term
// store and, when a description is given, sets it in a second round trip.
func (s *Service) AddTermGroup(ctx context.Context, req AddTermGroupRequest) (payload.Object, error) {
	name, err := NormalizeName("name", req.Name)
	if err != nil {
		return nil, err
	}
	id, err := s.objectID("id", req.ID)
	if err != nil {
		return nil, err
	}

	plan := createPlan{
		operation: OpAddTermGroup,
		name:      name,
		create: func(g *csom.Graph, store int) int {
			return g.Method(store, "CreateGroup", csom.String(name), csom.Guid(id))
		},
	}
	if req.Description != "" {
		plan.refine = func(g *csom.Graph, obj int) {
			g.SetProperty(obj, "Description", csom.String(req.Description))
		}
		plan.updates = payload.Object{"Description": payload.String(req.Description)}
	}
	return s.runCreate(ctx, plan)
}

// ListTermGroups returns the name, id and description of every term group
// in the default site collection term store.
func (s *Service) ListTermGroups(ctx context.Context) ([]payload.Object, error) {
	g := csom.NewGraph()
	store := termStorePath(g)
	groups := g.Property(store, "Groups")
	query := g.QueryProperties(groups, &csom.Selection{
		ChildItems: csom.Select("Name", "Id", "Description"),
	})

	res, err := s.exec.Execute(ctx, csom.Call{
		Operation:   OpListTermGroups,
		OperationID: s.operations.Generate(),
		Phase:       1,
		Graph:       g,
	})
	if err != nil {
		return nil, err
	}
	return childItems(res, query)
}

// childItems extracts the _Child_Items_ of a collection payload.
func childItems(res *csom.Result, id int) ([]payload.Object, error) {
	obj, ok := res.Object(id)
	if !ok {
		return nil, &csom.ProtocolViolationError{
			Message:    fmt.Sprintf("collection payload %d is not an object", id),
			MissingIDs: []int{id},
		}
	}
	items, ok := obj.Arr("_Child_Items_")
	if !ok {
		return nil, &csom.ProtocolViolationError{
			Message:    fmt.Sprintf("collection payload %d has no _Child_Items_", id),
			MissingIDs: []int{id},
		}
	}

	out := make([]payload.Object, 0, len(items))
	for i, item := range items {
		child, ok := item.(payload.Object)
		if !ok {
			return nil, &csom.MalformedResponseError{Reason: fmt.Sprintf("child item %d of payload %d is not an object", i, id)}
		}
		out = append(out, normalizeObject(child))
	}
	return out, nil
}
