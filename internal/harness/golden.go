package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/csom/internal/payload"
)

// TraceSnapshot is the golden form of a scenario trace.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// toCanonical converts the snapshot into a payload object so it can be
// rendered as canonical JSON. Empty fields are omitted.
func (s *TraceSnapshot) toCanonical() (payload.Object, error) {
	trace := make(payload.Array, len(s.Trace))
	for i, event := range s.Trace {
		obj := payload.Object{
			"type": payload.String(event.Type),
			"step": payload.Int(event.Step),
		}
		if event.Operation != "" {
			obj["operation"] = payload.String(event.Operation)
		}
		if args, ok := event.Args.(payload.Object); ok && len(args) > 0 {
			obj["args"] = args
		}
		if event.Phase != 0 {
			obj["phase"] = payload.Int(event.Phase)
		}
		if event.Request != "" {
			obj["request"] = payload.String(event.Request)
		}
		if event.Outcome != "" {
			obj["outcome"] = payload.String(event.Outcome)
		}
		if event.ErrorCode != "" {
			obj["error_code"] = payload.String(event.ErrorCode)
		}
		if event.Result != nil {
			v, err := payload.FromAny(event.Result)
			if err != nil {
				return nil, err
			}
			obj["result"] = v
		}
		trace[i] = obj
	}

	return payload.Object{
		"scenario_name": payload.String(s.ScenarioName),
		"trace":         trace,
	}, nil
}

// MarshalGolden renders the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalGolden() ([]byte, error) {
	obj, err := s.toCanonical()
	if err != nil {
		return nil, err
	}
	return payload.MarshalCanonical(obj)
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	data, err := snapshot.MarshalGolden()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
