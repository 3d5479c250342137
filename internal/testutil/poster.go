package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrScriptExhausted is returned by ScriptedPoster once every scripted
// step was consumed.
var ErrScriptExhausted = errors.New("testutil: no scripted response left")

// Request is one body captured by ScriptedPoster.
type Request struct {
	URL  string
	Body []byte
}

type step struct {
	body []byte
	err  error
}

// ScriptedPoster replays canned ProcessQuery responses in order and records
// every request it receives.
//
// Thread-safety: all methods are safe for concurrent use.
type ScriptedPoster struct {
	mu       sync.Mutex
	steps    []step
	requests []Request
}

// NewScriptedPoster creates a poster answering successive calls with
// bodies.
func NewScriptedPoster(bodies ...string) *ScriptedPoster {
	p := &ScriptedPoster{}
	for _, b := range bodies {
		p.Then(b)
	}
	return p
}

// Then appends a response body.
func (p *ScriptedPoster) Then(body string) *ScriptedPoster {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, step{body: []byte(body)})
	return p
}

// ThenError appends a transport failure.
func (p *ScriptedPoster) ThenError(err error) *ScriptedPoster {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, step{err: err})
	return p
}

// Post records the request and returns the next scripted step.
func (p *ScriptedPoster) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, Request{URL: url, Body: append([]byte(nil), body...)})
	if len(p.steps) == 0 {
		return nil, ErrScriptExhausted
	}
	next := p.steps[0]
	p.steps = p.steps[1:]
	return next.body, next.err
}

// Requests returns the captured requests in call order.
func (p *ScriptedPoster) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}

// Bodies returns the captured request bodies as strings.
func (p *ScriptedPoster) Bodies() []string {
	reqs := p.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = string(r.Body)
	}
	return out
}

// Remaining returns the number of unconsumed steps.
func (p *ScriptedPoster) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps)
}

// OKMetadata is a successful batch metadata record.
const OKMetadata = `{"SchemaVersion":"15.0.0.0","LibraryVersion":"16.0.24817.12008","ErrorInfo":null,"TraceCorrelationId":"00000000-0000-4000-8000-0000000000aa"}`

// OKResponse builds a successful response envelope from alternating ids
// and raw JSON payloads: OKResponse(3, `{"Name":"x"}`, 5, `{}`).
func OKResponse(pairs ...any) string {
	if len(pairs)%2 != 0 {
		panic("testutil: OKResponse needs id/payload pairs")
	}
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(OKMetadata)
	for i := 0; i < len(pairs); i += 2 {
		fmt.Fprintf(&sb, ",%d,%s", pairs[i], pairs[i+1])
	}
	sb.WriteString("]")
	return sb.String()
}

// ErrorResponse builds a response envelope whose metadata carries ErrorInfo.
func ErrorResponse(message string, code int64, typeName string) string {
	return fmt.Sprintf(`[{"SchemaVersion":"15.0.0.0","LibraryVersion":"16.0.24817.12008","ErrorInfo":{"ErrorMessage":%q,"ErrorValue":null,"TraceCorrelationId":"00000000-0000-4000-8000-0000000000ee","ErrorCode":%d,"ErrorTypeName":%q},"TraceCorrelationId":"00000000-0000-4000-8000-0000000000ee"}]`,
		message, code, typeName)
}
