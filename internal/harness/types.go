package harness

// Trace event types.
const (
	EventInvoke    = "invoke"
	EventRoundTrip = "round_trip"
	EventOutcome   = "outcome"
)

// Step outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// TraceEvent is one entry of a scenario trace. Which fields are set
// depends on Type.
type TraceEvent struct {
	Type      string `json:"type"`
	Step      int    `json:"step"`
	Operation string `json:"operation,omitempty"`
	Args      any    `json:"args,omitempty"`

	// round_trip only
	Phase   int    `json:"phase,omitempty"`
	Request string `json:"request,omitempty"`

	// round_trip and outcome
	Outcome   string `json:"outcome,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`

	// outcome only
	Result any `json:"result,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists invocations, round trips and outcomes in order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes every failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvokeTrace records the start of step.
func (r *Result) AddInvokeTrace(step int, operation string, args any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventInvoke,
		Step:      step,
		Operation: operation,
		Args:      args,
	})
}

// AddRoundTripTrace records one request made during step.
func (r *Result) AddRoundTripTrace(step int, operation string, phase int, request, outcome, errorCode string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventRoundTrip,
		Step:      step,
		Operation: operation,
		Phase:     phase,
		Request:   request,
		Outcome:   outcome,
		ErrorCode: errorCode,
	})
}

// AddOutcomeTrace records how step ended.
func (r *Result) AddOutcomeTrace(step int, operation, outcome, errorCode string, result any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventOutcome,
		Step:      step,
		Operation: operation,
		Outcome:   outcome,
		ErrorCode: errorCode,
		Result:    result,
	})
}
