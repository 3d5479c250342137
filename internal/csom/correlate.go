package csom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/roach88/csom/internal/payload"
)

// BatchMetadata is entry 0 of every response envelope.
type BatchMetadata struct {
	SchemaVersion      string     `json:"SchemaVersion"`
	LibraryVersion     string     `json:"LibraryVersion"`
	ErrorInfo          *ErrorInfo `json:"ErrorInfo"`
	TraceCorrelationID string     `json:"TraceCorrelationId"`
}

// ErrorInfo is the server's failure record for a whole batch.
type ErrorInfo struct {
	ErrorMessage       string          `json:"ErrorMessage"`
	ErrorValue         json.RawMessage `json:"ErrorValue"`
	TraceCorrelationID string          `json:"TraceCorrelationId"`
	ErrorCode          int64           `json:"ErrorCode"`
	ErrorTypeName      string          `json:"ErrorTypeName"`
}

// Result is a correlated response: payloads keyed by the id of the action
// that produced them.
type Result struct {
	Metadata BatchMetadata
	values   map[int]payload.Value
}

// Correlate matches a response body to the graph that produced it.
//
// Entry 0 is decoded as BatchMetadata. When it carries ErrorInfo the batch
// failed as a whole and *BusinessError is returned without reading further.
// Otherwise the remaining entries are read as (id, payload) pairs in any
// order. A body that is not such an array yields *MalformedResponseError,
// and a retrieval action of g with no pair yields *ProtocolViolationError.
func Correlate(g *Graph, body []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("response is not a JSON array", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, malformed("response is not a JSON array", nil)
	}
	if !dec.More() {
		return nil, malformed("response has no batch metadata", nil)
	}

	var meta BatchMetadata
	if err := dec.Decode(&meta); err != nil {
		return nil, malformed("batch metadata", err)
	}
	if info := meta.ErrorInfo; info != nil {
		trace := info.TraceCorrelationID
		if trace == "" {
			trace = meta.TraceCorrelationID
		}
		return nil, &BusinessError{
			Message:            info.ErrorMessage,
			Code:               info.ErrorCode,
			TypeName:           info.ErrorTypeName,
			TraceCorrelationID: trace,
		}
	}

	res := &Result{Metadata: meta, values: make(map[int]payload.Value)}
	for dec.More() {
		id, err := decodePairID(dec)
		if err != nil {
			return nil, err
		}
		if !dec.More() {
			return nil, malformed(fmt.Sprintf("id %d has no payload (odd-length pair sequence)", id), nil)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed(fmt.Sprintf("payload of id %d", id), err)
		}
		v, err := payload.Parse(raw)
		if err != nil {
			return nil, malformed(fmt.Sprintf("payload of id %d", id), err)
		}
		if _, dup := res.values[id]; dup {
			return nil, malformed(fmt.Sprintf("id %d answered twice", id), nil)
		}
		res.values[id] = v
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed("unterminated response array", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("trailing data after response array", err)
	}

	var missing []int
	for _, id := range g.RetrievalIDs() {
		if _, ok := res.values[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &ProtocolViolationError{
			Message:    "response lacks retrieval results",
			MissingIDs: missing,
		}
	}
	return res, nil
}

func decodePairID(dec *json.Decoder) (int, error) {
	tok, err := dec.Token()
	if err != nil {
		return 0, malformed("pair id", err)
	}
	num, ok := tok.(json.Number)
	if !ok {
		return 0, malformed(fmt.Sprintf("pair id %v is not a number", tok), nil)
	}
	id, err := strconv.Atoi(num.String())
	if err != nil {
		return 0, malformed(fmt.Sprintf("pair id %s is not an integer", num), err)
	}
	return id, nil
}

func malformed(reason string, err error) error {
	return &MalformedResponseError{Reason: reason, Err: err}
}

// Value returns the payload answering action id.
func (r *Result) Value(id int) (payload.Value, bool) {
	v, ok := r.values[id]
	return v, ok
}

// Object returns the payload answering action id when it is a JSON object.
func (r *Result) Object(id int) (payload.Object, bool) {
	obj, ok := r.values[id].(payload.Object)
	return obj, ok
}

// Identity returns the identity token carried by the payload of id.
func (r *Result) Identity(id int) (IdentityToken, bool) {
	obj, ok := r.Object(id)
	if !ok {
		return IdentityToken{}, false
	}
	raw, ok := obj.Str(IdentityField)
	if !ok || raw == "" {
		return IdentityToken{}, false
	}
	return CaptureIdentity(raw), true
}

// Identities returns every identity token found in the response, keyed by
// payload id.
func (r *Result) Identities() map[int]IdentityToken {
	out := make(map[int]IdentityToken)
	for id := range r.values {
		if tok, ok := r.Identity(id); ok {
			out[id] = tok
		}
	}
	return out
}

// IDs returns the answered ids in ascending order.
func (r *Result) IDs() []int {
	ids := make([]int, 0, len(r.values))
	for id := range r.values {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of answered ids.
func (r *Result) Len() int {
	return len(r.values)
}

// Capture remembers the identity token of payload id in s under name.
// A payload without a token is a *ProtocolViolationError: the graph asked
// for the identity and the server did not supply it.
func (r *Result) Capture(s *Session, name string, id int) error {
	tok, ok := r.Identity(id)
	if !ok {
		return &ProtocolViolationError{
			Message:    fmt.Sprintf("payload %d carries no %s for %q", id, IdentityField, name),
			MissingIDs: []int{id},
		}
	}
	s.Remember(name, tok)
	return nil
}
