package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/csom/internal/payload"
	"github.com/roach88/csom/internal/taxonomy"
)

// StepKind identifies what a step creates.
type StepKind string

const (
	StepGroup   StepKind = "group"
	StepTermSet StepKind = "termSet"
	StepTerm    StepKind = "term"
)

// Step is one create operation of a plan. Every id a step refers to is
// assigned during planning, so later steps address earlier objects by id.
type Step struct {
	Kind        StepKind
	Path        string // e.g. "People/Departments/Engineering"
	Name        string
	ID          string
	Description string

	GroupID      string // term sets and top-level terms
	TermSetID    string // terms
	ParentTermID string // nested terms

	CustomProperties      map[string]string
	LocalCustomProperties map[string]string
	LCID                  int
}

// Plan flattens m into create steps, parents before children. Missing ids
// are drawn from ids. Names are validated and duplicate siblings rejected.
func Plan(m *Manifest, ids taxonomy.ObjectIDGenerator) ([]Step, error) {
	p := planner{ids: ids, lcid: m.LCID, seen: make(map[string]bool), used: make(map[string]string)}

	for gi, grp := range m.Groups {
		field := fmt.Sprintf("groups[%d]", gi)
		gs, err := p.step(StepGroup, field, "", grp.Name, grp.ID)
		if err != nil {
			return nil, err
		}
		gs.Description = grp.Description
		p.steps = append(p.steps, gs)

		for si, ts := range grp.TermSets {
			field := fmt.Sprintf("%s.termSets[%d]", field, si)
			ss, err := p.step(StepTermSet, field, gs.Path, ts.Name, ts.ID)
			if err != nil {
				return nil, err
			}
			ss.GroupID = gs.ID
			ss.Description = ts.Description
			ss.CustomProperties = ts.CustomProperties
			ss.LCID = p.lcid
			p.steps = append(p.steps, ss)

			if err := p.terms(field, ss, "", ss.Path, ts.Terms); err != nil {
				return nil, err
			}
		}
	}
	return p.steps, nil
}

type planner struct {
	ids   taxonomy.ObjectIDGenerator
	lcid  int
	seen  map[string]bool
	used  map[string]string // id -> path of the step that took it
	steps []Step
}

func (p *planner) step(kind StepKind, field, parentPath, name, id string) (Step, error) {
	name, err := taxonomy.NormalizeName(field+".name", name)
	if err != nil {
		return Step{}, err
	}
	path := name
	if parentPath != "" {
		path = parentPath + "/" + name
	}
	key := strings.ToLower(path)
	if p.seen[key] {
		return Step{}, &Error{Field: field + ".name", Message: fmt.Sprintf("duplicate name %q", path)}
	}
	p.seen[key] = true

	if id == "" {
		id = p.ids.NewID().String()
	} else {
		parsed, err := taxonomy.ParseGuid(field+".id", id)
		if err != nil {
			return Step{}, err
		}
		id = parsed.String()
	}
	if prev, ok := p.used[id]; ok {
		return Step{}, &Error{Field: field + ".id", Message: fmt.Sprintf("id %s already used by %q", id, prev)}
	}
	p.used[id] = path
	return Step{Kind: kind, Path: path, Name: name, ID: id}, nil
}

// terms plans terms below set; parent is the id of the enclosing term, if
// any, and parentPath its path.
func (p *planner) terms(field string, set Step, parent, parentPath string, terms []Term) error {
	for ti, t := range terms {
		field := fmt.Sprintf("%s.terms[%d]", field, ti)
		s, err := p.step(StepTerm, field, parentPath, t.Name, t.ID)
		if err != nil {
			return err
		}
		s.GroupID = set.GroupID
		s.TermSetID = set.ID
		s.ParentTermID = parent
		s.Description = t.Description
		s.CustomProperties = t.CustomProperties
		s.LocalCustomProperties = t.LocalCustomProperties
		s.LCID = p.lcid
		p.steps = append(p.steps, s)

		if err := p.terms(field, set, s.ID, s.Path, t.Terms); err != nil {
			return err
		}
	}
	return nil
}

// Applied is the outcome of one executed step.
type Applied struct {
	Step   Step
	Object payload.Object
}

// Apply executes steps in order and stops at the first failure. The steps
// applied before the failure are returned with the error; a step that was
// created but not refined is included as well.
func Apply(ctx context.Context, svc *taxonomy.Service, steps []Step) ([]Applied, error) {
	applied := make([]Applied, 0, len(steps))
	for i, s := range steps {
		obj, err := s.run(ctx, svc)
		if obj != nil {
			applied = append(applied, Applied{Step: s, Object: obj})
		}
		if err != nil {
			slog.Warn("manifest apply stopped",
				"step", i+1,
				"of", len(steps),
				"path", s.Path,
				"error", err)
			return applied, fmt.Errorf("%s %q: %w", s.Kind, s.Path, err)
		}
		slog.Info("manifest step applied", "kind", s.Kind, "path", s.Path, "id", s.ID)
	}
	return applied, nil
}

func (s Step) run(ctx context.Context, svc *taxonomy.Service) (payload.Object, error) {
	switch s.Kind {
	case StepGroup:
		return svc.AddTermGroup(ctx, taxonomy.AddTermGroupRequest{
			Name:        s.Name,
			ID:          s.ID,
			Description: s.Description,
		})
	case StepTermSet:
		return svc.AddTermSet(ctx, taxonomy.AddTermSetRequest{
			Name:             s.Name,
			ID:               s.ID,
			Group:            taxonomy.GroupRef{ID: s.GroupID},
			Description:      s.Description,
			CustomProperties: s.CustomProperties,
			LCID:             s.LCID,
		})
	case StepTerm:
		return svc.AddTerm(ctx, taxonomy.AddTermRequest{
			Name:                  s.Name,
			ID:                    s.ID,
			TermSet:               taxonomy.TermSetRef{ID: s.TermSetID},
			Group:                 taxonomy.GroupRef{ID: s.GroupID},
			ParentTermID:          s.ParentTermID,
			Description:           s.Description,
			CustomProperties:      s.CustomProperties,
			LocalCustomProperties: s.LocalCustomProperties,
			LCID:                  s.LCID,
		})
	}
	return nil, fmt.Errorf("unknown step kind %q", s.Kind)
}
