package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/csom/internal/taxonomy"
)

// DefaultSiteURL is the site scenarios post to unless they set site_url.
const DefaultSiteURL = "https://contoso.sharepoint.com"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SiteURL overrides DefaultSiteURL.
	SiteURL string `yaml:"site_url,omitempty"`

	// LCID overrides the service's default language.
	LCID int `yaml:"lcid,omitempty"`

	// Steps are executed in order against one service.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and journal.
	Assertions []Assertion `yaml:"assertions"`
}

// Step invokes one taxonomy operation.
type Step struct {
	// Invoke is the operation name, e.g. "term set add".
	Invoke string `yaml:"invoke"`

	// Args are the operation's arguments. See Args for the keys.
	Args map[string]any `yaml:"args"`

	// Responses answer the step's round trips in order. Every response
	// must be consumed.
	Responses []Response `yaml:"responses,omitempty"`

	// Expect validates the step's outcome. Nil means the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Args are the keys a step's args may carry.
type Args struct {
	Name                  string            `yaml:"name"`
	ID                    string            `yaml:"id"`
	Group                 string            `yaml:"group"`
	GroupID               string            `yaml:"group_id"`
	TermSet               string            `yaml:"term_set"`
	TermSetID             string            `yaml:"term_set_id"`
	ParentTermID          string            `yaml:"parent_term_id"`
	Description           string            `yaml:"description"`
	CustomProperties      map[string]string `yaml:"custom_properties"`
	LocalCustomProperties map[string]string `yaml:"local_custom_properties"`
	LCID                  int               `yaml:"lcid"`
}

// Response scripts the server's answer to one round trip. At most one
// field may be set; none means a successful batch without pairs.
type Response struct {
	Pairs          map[int]any    `yaml:"pairs,omitempty"`
	Raw            string         `yaml:"raw,omitempty"`
	Error          *ResponseError `yaml:"error,omitempty"`
	TransportError string         `yaml:"transport_error,omitempty"`
}

// ResponseError is the ErrorInfo of a failed batch.
type ResponseError struct {
	Message  string `yaml:"message"`
	Code     int64  `yaml:"code"`
	TypeName string `yaml:"type_name"`
}

// ExpectClause specifies how a step ends.
type ExpectClause struct {
	// Outcome is ok, partial or error.
	Outcome string `yaml:"outcome"`

	// ErrorCode is matched against the error's code when set.
	ErrorCode string `yaml:"error_code,omitempty"`

	// ErrorContains is matched against the error message when set.
	ErrorContains string `yaml:"error_contains,omitempty"`

	// Result is a subset match against the returned object.
	Result map[string]any `yaml:"result,omitempty"`

	// Count is the number of objects a list operation returns.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates the trace or the journal.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Operation is used by trace_contains and trace_count.
	Operation string `yaml:"operation,omitempty"`

	// Args are matched as a subset by trace_contains.
	Args map[string]any `yaml:"args,omitempty"`

	// Operations is the expected order for trace_order.
	Operations []string `yaml:"operations,omitempty"`

	// Count is the expected number of round trips for trace_count.
	Count int `yaml:"count,omitempty"`

	// Step and Request select a request body (both 1-based) for
	// request_contains.
	Step     int    `yaml:"step,omitempty"`
	Request  int    `yaml:"request,omitempty"`
	Contains string `yaml:"contains,omitempty"`

	// Table, Where and Expect drive final_state.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceOrder      = "trace_order"
	AssertTraceCount      = "trace_count"
	AssertRequestContains = "request_contains"
	AssertFinalState      = "final_state"
)

var operations = map[string]bool{
	taxonomy.OpAddTermGroup:   true,
	taxonomy.OpListTermGroups: true,
	taxonomy.OpAddTermSet:     true,
	taxonomy.OpAddTerm:        true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the scenario files in dir, sorted by name.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

// decodeArgs converts step args into Args, rejecting unknown keys.
func decodeArgs(raw map[string]any) (Args, error) {
	var args Args
	if len(raw) == 0 {
		return args, nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return args, err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&args); err != nil {
		return args, err
	}
	return args, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Invoke == "" {
			return fmt.Errorf("steps[%d]: invoke is required", i)
		}
		if !operations[step.Invoke] {
			return fmt.Errorf("steps[%d]: unknown operation %q", i, step.Invoke)
		}
		if _, err := decodeArgs(step.Args); err != nil {
			return fmt.Errorf("steps[%d].args: %w", i, err)
		}
		for j, resp := range step.Responses {
			if resp.kinds() > 1 {
				return fmt.Errorf("steps[%d].responses[%d]: set only one of pairs, raw, error, transport_error", i, j)
			}
		}
		if step.Expect != nil {
			switch step.Expect.Outcome {
			case OutcomeOK, OutcomePartial, OutcomeError:
			default:
				return fmt.Errorf("steps[%d].expect: outcome must be ok, partial or error", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func (r Response) kinds() int {
	n := 0
	if r.Pairs != nil {
		n++
	}
	if r.Raw != "" {
		n++
	}
	if r.Error != nil {
		n++
	}
	if r.TransportError != "" {
		n++
	}
	return n
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Operations) == 0 {
			return fmt.Errorf("assertions[%d]: operations list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRequestContains:
		if a.Step < 1 || a.Request < 1 {
			return fmt.Errorf("assertions[%d]: step and request (1-based) are required for request_contains", index)
		}
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for request_contains", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
