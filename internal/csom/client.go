package csom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Poster delivers one request body to url and returns the response body.
// Implementations own retries, authentication and status handling; their
// errors are returned to the caller unchanged.
type Poster interface {
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(ctx context.Context, url string, body []byte) ([]byte, error)

// Post implements Poster.
func (f PosterFunc) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	return f(ctx, url, body)
}

// Call is one graph submission on behalf of a named operation.
type Call struct {
	Operation   string // e.g. "term set add"
	OperationID string // shared by every phase of one invocation
	Phase       int
	Graph       *Graph
}

// Executor runs calls. *Client is the production implementation.
type Executor interface {
	Execute(ctx context.Context, call Call) (*Result, error)
}

// Outcome classifies a recorded round trip.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeFailed    Outcome = "failed"
	OutcomeTransport Outcome = "transport_error"
)

// RoundTrip is the record of one request and its response.
type RoundTrip struct {
	OperationID        string
	Operation          string
	Phase              int
	Endpoint           string
	Request            []byte
	Response           []byte
	Outcome            Outcome
	ErrorCode          ErrorCode
	ErrorMessage       string
	TraceCorrelationID string
}

// Recorder persists round trips.
type Recorder interface {
	Record(ctx context.Context, rt RoundTrip) error
}

// Client submits graphs to one site's ProcessQuery endpoint.
type Client struct {
	poster   Poster
	endpoint string
	envelope Envelope
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithApplicationName sets the ApplicationName attribute of every request.
func WithApplicationName(name string) Option {
	return func(c *Client) { c.envelope.ApplicationName = name }
}

// WithRecorder records every round trip in r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a client posting to siteURL's ProcessQuery endpoint.
func NewClient(poster Poster, siteURL string, opts ...Option) *Client {
	c := &Client{
		poster:   poster,
		endpoint: Endpoint(siteURL),
		envelope: DefaultEnvelope(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the ProcessQuery URL of siteURL.
func Endpoint(siteURL string) string {
	return strings.TrimRight(siteURL, "/") + EndpointPath
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Execute serializes call.Graph, posts it and correlates the response.
// A graph carrying a construction error is never sent.
func (c *Client) Execute(ctx context.Context, call Call) (*Result, error) {
	if call.Graph == nil {
		return nil, fmt.Errorf("%s phase %d: nil graph", call.Operation, call.Phase)
	}
	body, err := call.Graph.Serialize(c.envelope)
	if err != nil {
		return nil, fmt.Errorf("%s phase %d: build request: %w", call.Operation, call.Phase, err)
	}

	slog.Debug("posting batch",
		"operation", call.Operation,
		"operation_id", call.OperationID,
		"phase", call.Phase,
		"actions", len(call.Graph.actions),
		"request_bytes", len(body))

	rt := RoundTrip{
		OperationID: call.OperationID,
		Operation:   call.Operation,
		Phase:       call.Phase,
		Endpoint:    c.endpoint,
		Request:     body,
	}

	resp, err := c.poster.Post(ctx, c.endpoint, body)
	if err != nil {
		rt.Outcome = OutcomeTransport
		rt.ErrorMessage = err.Error()
		c.record(ctx, rt)
		return nil, fmt.Errorf("%s phase %d: %w", call.Operation, call.Phase, err)
	}
	rt.Response = resp

	res, err := Correlate(call.Graph, resp)
	if err != nil {
		rt.Outcome = OutcomeFailed
		rt.ErrorCode = KindOf(err)
		rt.ErrorMessage = err.Error()
		var be *BusinessError
		if errors.As(err, &be) {
			rt.ErrorMessage = be.Message
			rt.TraceCorrelationID = be.TraceCorrelationID
		}
		c.record(ctx, rt)
		slog.Debug("batch failed",
			"operation", call.Operation,
			"phase", call.Phase,
			"code", rt.ErrorCode)
		return nil, fmt.Errorf("%s phase %d: %w", call.Operation, call.Phase, err)
	}

	rt.Outcome = OutcomeOK
	rt.TraceCorrelationID = res.Metadata.TraceCorrelationID
	c.record(ctx, rt)
	slog.Debug("batch correlated",
		"operation", call.Operation,
		"phase", call.Phase,
		"results", res.Len(),
		"trace", res.Metadata.TraceCorrelationID)
	return res, nil
}

// record stores rt when a recorder is configured. A journal failure never
// changes the outcome of the call.
func (c *Client) record(ctx context.Context, rt RoundTrip) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, rt); err != nil {
		slog.Warn("round trip not recorded",
			"operation", rt.Operation,
			"phase", rt.Phase,
			"error", err)
	}
}
