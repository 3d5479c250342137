// Package manifest loads taxonomy manifests written in CUE and applies
// them through the taxonomy orchestrators.
//
// A manifest declares term groups, their term sets and (possibly nested)
// terms:
//
//	groups: [{
//		name: "People"
//		termSets: [{
//			name:        "Departments"
//			description: "Org chart"
//			terms: [{name: "Engineering"}, {name: "Sales"}]
//		}]
//	}]
package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Manifest is a decoded taxonomy manifest.
type Manifest struct {
	LCID   int     `json:"lcid,omitempty"`
	Groups []Group `json:"groups"`
}

// Group declares a term group.
type Group struct {
	Name        string    `json:"name"`
	ID          string    `json:"id,omitempty"`
	Description string    `json:"description,omitempty"`
	TermSets    []TermSet `json:"termSets,omitempty"`
}

// TermSet declares a term set.
type TermSet struct {
	Name             string            `json:"name"`
	ID               string            `json:"id,omitempty"`
	Description      string            `json:"description,omitempty"`
	CustomProperties map[string]string `json:"customProperties,omitempty"`
	Terms            []Term            `json:"terms,omitempty"`
}

// Term declares a term and its child terms.
type Term struct {
	Name                  string            `json:"name"`
	ID                    string            `json:"id,omitempty"`
	Description           string            `json:"description,omitempty"`
	CustomProperties      map[string]string `json:"customProperties,omitempty"`
	LocalCustomProperties map[string]string `json:"localCustomProperties,omitempty"`
	Terms                 []Term            `json:"terms,omitempty"`
}

// Error reports an invalid manifest.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse validates data against the manifest schema and decodes it.
// filename is used in error positions only.
func Parse(filename string, data []byte) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("manifest schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.LookupPath(cue.ParsePath("groups")).Exists() {
		return nil, &Error{Field: "groups", Message: "groups is required", Pos: v.Pos()}
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, formatCUEError(err)
	}
	return &m, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = strings.Join(path, ".")
	}
	msg := first.Error()
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Field: field, Message: msg, Pos: dataPosition(positions)}
	}
	return &Error{Field: field, Message: msg}
}

// dataPosition prefers a position in the manifest over one in the schema.
func dataPosition(positions []token.Pos) token.Pos {
	for _, p := range positions {
		if p.Filename() != "schema.cue" {
			return p
		}
	}
	return positions[0]
}
