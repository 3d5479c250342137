package harness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/csom/internal/csom"
	"github.com/roach88/csom/internal/journal"
	"github.com/roach88/csom/internal/payload"
	"github.com/roach88/csom/internal/taxonomy"
	"github.com/roach88/csom/internal/testutil"
)

// Harness is the test execution engine for one scenario.
// Object Guids come from a sequential generator so requests are
// byte-for-byte reproducible.
type Harness struct {
	journal *journal.Journal
	poster  *testutil.ScriptedPoster
	service *taxonomy.Service
	opIDs   *stepOperationIDs
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal. Execution flow:
//  1. Script the step's responses and invoke its operation
//  2. Trace the round trips the journal recorded for the step
//  3. Check the step's expect clause
//  4. Evaluate assertions over the trace and journal
func Run(scenario *Scenario) (*Result, error) {
	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	siteURL := scenario.SiteURL
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}

	poster := testutil.NewScriptedPoster()
	client := csom.NewClient(poster, siteURL, csom.WithRecorder(j))

	opIDs := &stepOperationIDs{prefix: "op"}
	opts := []taxonomy.Option{
		taxonomy.WithObjectIDs(testutil.NewSequentialIDs()),
		taxonomy.WithOperationIDs(opIDs),
	}
	if scenario.LCID > 0 {
		opts = append(opts, taxonomy.WithLCID(scenario.LCID))
	}

	h := &Harness{
		journal: j,
		poster:  poster,
		service: taxonomy.NewService(client, opts...),
		opIDs:   opIDs,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	actx := &AssertionContext{Journal: j, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step. Errors returned are harness failures;
// unmet expectations are added to result.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) error {
	args, err := decodeArgs(step.Args)
	if err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	for i, resp := range step.Responses {
		if err := h.script(resp); err != nil {
			return fmt.Errorf("response %d: %w", i+1, err)
		}
	}

	argsValue, err := payload.FromAny(normalizeYAML(step.Args))
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}
	result.AddInvokeTrace(n, step.Invoke, argsValue)

	before := h.opIDs.n
	value, opErr := h.invoke(ctx, step.Invoke, args)

	if h.opIDs.n != before {
		entries, err := h.journal.List(ctx, journal.Filter{OperationID: h.opIDs.last})
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
		for _, e := range entries {
			result.AddRoundTripTrace(n, e.Operation, e.Phase, e.Request, string(e.Outcome), string(e.ErrorCode))
		}
	}

	outcome, code := classify(opErr)
	result.AddOutcomeTrace(n, step.Invoke, outcome, code, value)

	if left := h.poster.Remaining(); left > 0 {
		result.AddError(fmt.Sprintf("step %d (%s): %d scripted responses were not used", n, step.Invoke, left))
		for h.poster.Remaining() > 0 {
			h.poster.Post(ctx, "", nil)
		}
	}

	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{Outcome: OutcomeOK}
	}
	for _, msg := range checkExpect(expect, outcome, code, opErr, value) {
		result.AddError(fmt.Sprintf("step %d (%s): %s", n, step.Invoke, msg))
	}
	return nil
}

// script queues resp on the poster.
func (h *Harness) script(resp Response) error {
	switch {
	case resp.TransportError != "":
		h.poster.ThenError(errors.New(resp.TransportError))
	case resp.Error != nil:
		h.poster.Then(testutil.ErrorResponse(resp.Error.Message, resp.Error.Code, resp.Error.TypeName))
	case resp.Raw != "":
		h.poster.Then(resp.Raw)
	default:
		body, err := pairsResponse(resp.Pairs)
		if err != nil {
			return err
		}
		h.poster.Then(body)
	}
	return nil
}

// pairsResponse renders pairs in ascending id order.
func pairsResponse(pairs map[int]any) (string, error) {
	ids := make([]int, 0, len(pairs))
	for id := range pairs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	flat := make([]any, 0, 2*len(ids))
	for _, id := range ids {
		v, err := payload.FromAny(normalizeYAML(pairs[id]))
		if err != nil {
			return "", fmt.Errorf("pair %d: %w", id, err)
		}
		data, err := payload.MarshalCanonical(v)
		if err != nil {
			return "", fmt.Errorf("pair %d: %w", id, err)
		}
		flat = append(flat, id, string(data))
	}
	return testutil.OKResponse(flat...), nil
}

// invoke calls the taxonomy operation named op. The returned value is
// the created object or the listed objects.
func (h *Harness) invoke(ctx context.Context, op string, a Args) (payload.Value, error) {
	switch op {
	case taxonomy.OpAddTermGroup:
		obj, err := h.service.AddTermGroup(ctx, taxonomy.AddTermGroupRequest{
			Name:        a.Name,
			ID:          a.ID,
			Description: a.Description,
		})
		return objectValue(obj), err

	case taxonomy.OpListTermGroups:
		objs, err := h.service.ListTermGroups(ctx)
		if err != nil {
			return nil, err
		}
		arr := make(payload.Array, len(objs))
		for i, obj := range objs {
			arr[i] = obj
		}
		return arr, nil

	case taxonomy.OpAddTermSet:
		obj, err := h.service.AddTermSet(ctx, taxonomy.AddTermSetRequest{
			Name:             a.Name,
			ID:               a.ID,
			Group:            taxonomy.GroupRef{ID: a.GroupID, Name: a.Group},
			Description:      a.Description,
			CustomProperties: a.CustomProperties,
			LCID:             a.LCID,
		})
		return objectValue(obj), err

	case taxonomy.OpAddTerm:
		obj, err := h.service.AddTerm(ctx, taxonomy.AddTermRequest{
			Name:                  a.Name,
			ID:                    a.ID,
			TermSet:               taxonomy.TermSetRef{ID: a.TermSetID, Name: a.TermSet},
			Group:                 taxonomy.GroupRef{ID: a.GroupID, Name: a.Group},
			ParentTermID:          a.ParentTermID,
			Description:           a.Description,
			CustomProperties:      a.CustomProperties,
			LocalCustomProperties: a.LocalCustomProperties,
			LCID:                  a.LCID,
		})
		return objectValue(obj), err
	}
	return nil, fmt.Errorf("unknown operation %q", op)
}

// objectValue keeps a nil object out of the trace.
func objectValue(obj payload.Object) payload.Value {
	if obj == nil {
		return nil
	}
	return obj
}

// classify maps an operation error to a step outcome and error code.
func classify(err error) (outcome, code string) {
	if err == nil {
		return OutcomeOK, ""
	}
	code = string(csom.KindOf(err))
	if code == "" && taxonomy.IsInvalidArgument(err) {
		code = "INVALID_ARGUMENT"
	}
	if code == "" {
		code = "ERROR"
	}
	if csom.IsPartialSuccess(err) {
		return OutcomePartial, code
	}
	return OutcomeError, code
}

func checkExpect(e *ExpectClause, outcome, code string, err error, value payload.Value) []string {
	var msgs []string
	if e.Outcome != outcome {
		msg := fmt.Sprintf("expected outcome %s, got %s", e.Outcome, outcome)
		if err != nil {
			msg += ": " + err.Error()
		}
		msgs = append(msgs, msg)
	}
	if e.ErrorCode != "" && e.ErrorCode != code {
		msgs = append(msgs, fmt.Sprintf("expected error code %s, got %q", e.ErrorCode, code))
	}
	if e.ErrorContains != "" && (err == nil || !strings.Contains(err.Error(), e.ErrorContains)) {
		msgs = append(msgs, fmt.Sprintf("expected error containing %q, got %v", e.ErrorContains, err))
	}
	if len(e.Result) > 0 {
		obj, _ := value.(payload.Object)
		if mismatch := matchObject(obj, e.Result); mismatch != "" {
			msgs = append(msgs, "result: "+mismatch)
		}
	}
	if e.Count != nil {
		arr, _ := value.(payload.Array)
		if len(arr) != *e.Count {
			msgs = append(msgs, fmt.Sprintf("expected %d results, got %d", *e.Count, len(arr)))
		}
	}
	return msgs
}

// stepOperationIDs gives every operation invocation its own id so the
// journal rows of one step can be selected.
type stepOperationIDs struct {
	prefix string
	n      int
	last   string
}

func (g *stepOperationIDs) Generate() string {
	g.n++
	g.last = fmt.Sprintf("%s-%d", g.prefix, g.n)
	return g.last
}

// normalizeYAML converts the map[any]any and integer widths yaml may
// produce into the shapes payload.FromAny accepts.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeYAML(elem)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalizeYAML(elem)
		}
		return out
	case map[int]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalizeYAML(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeYAML(elem)
		}
		return out
	case uint64:
		return int64(val)
	}
	return v
}
