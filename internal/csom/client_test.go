package csom

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	trips []RoundTrip
	err   error
}

func (m *memRecorder) Record(_ context.Context, rt RoundTrip) error {
	m.trips = append(m.trips, rt)
	return m.err
}

func storeGraph() *Graph {
	g := NewGraph()
	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	store := g.Method(root, "GetDefaultSiteCollectionTermStore")
	g.QueryIdentity(store)
	return g
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://contoso.sharepoint.com/sites/hr/_vti_bin/client.svc/ProcessQuery",
		Endpoint("https://contoso.sharepoint.com/sites/hr/"))
	assert.Equal(t, "https://contoso.sharepoint.com/_vti_bin/client.svc/ProcessQuery",
		Endpoint("https://contoso.sharepoint.com"))
}

func TestClient_Execute(t *testing.T) {
	var gotURL string
	var gotBody []byte
	poster := PosterFunc(func(_ context.Context, url string, body []byte) ([]byte, error) {
		gotURL = url
		gotBody = body
		return []byte(`[` + okMeta + `,3,{"_ObjectIdentity_":"store-tok"}]`), nil
	})
	rec := &memRecorder{}
	c := NewClient(poster, "https://contoso.sharepoint.com", WithApplicationName("admin"), WithRecorder(rec))

	g := storeGraph()
	res, err := c.Execute(context.Background(), Call{Operation: "term group list", OperationID: "op-1", Phase: 1, Graph: g})
	require.NoError(t, err)

	assert.Equal(t, c.Endpoint(), gotURL)
	assert.Contains(t, string(gotBody), `ApplicationName="admin"`)
	tok, ok := res.Identity(3)
	require.True(t, ok)
	assert.Equal(t, "store-tok", tok.Attr())
	assert.True(t, g.Sealed())

	require.Len(t, rec.trips, 1)
	rt := rec.trips[0]
	assert.Equal(t, OutcomeOK, rt.Outcome)
	assert.Equal(t, "op-1", rt.OperationID)
	assert.Equal(t, 1, rt.Phase)
	assert.Equal(t, gotBody, rt.Request)
	assert.Equal(t, "e1c6d69f-a07e-4000-8a1e-a8c4c7f33f5d", rt.TraceCorrelationID)
}

func TestClient_ExecuteNeverSendsBrokenGraph(t *testing.T) {
	called := false
	poster := PosterFunc(func(context.Context, string, []byte) ([]byte, error) {
		called = true
		return nil, nil
	})
	c := NewClient(poster, "https://contoso.sharepoint.com")

	g := NewGraph()
	g.Property(7, "Groups")

	_, err := c.Execute(context.Background(), Call{Operation: "test", Phase: 1, Graph: g})
	assert.True(t, IsDanglingReference(err))
	assert.False(t, called)

	_, err = c.Execute(context.Background(), Call{Operation: "test", Phase: 1})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestClient_TransportErrorPassesThrough(t *testing.T) {
	boom := errors.New("connection reset")
	poster := PosterFunc(func(context.Context, string, []byte) ([]byte, error) {
		return nil, boom
	})
	rec := &memRecorder{}
	c := NewClient(poster, "https://contoso.sharepoint.com", WithRecorder(rec))

	_, err := c.Execute(context.Background(), Call{Operation: "test", Phase: 1, Graph: storeGraph()})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrorCode(""), KindOf(err))

	require.Len(t, rec.trips, 1)
	assert.Equal(t, OutcomeTransport, rec.trips[0].Outcome)
	assert.Nil(t, rec.trips[0].Response)
}

func TestClient_BusinessErrorRecorded(t *testing.T) {
	poster := PosterFunc(func(context.Context, string, []byte) ([]byte, error) {
		return []byte(`[` + duplicateMeta + `]`), nil
	})
	rec := &memRecorder{}
	c := NewClient(poster, "https://contoso.sharepoint.com", WithRecorder(rec))

	_, err := c.Execute(context.Background(), Call{Operation: "term set add", Phase: 1, Graph: storeGraph()})
	require.True(t, IsBusinessError(err))

	require.Len(t, rec.trips, 1)
	rt := rec.trips[0]
	assert.Equal(t, OutcomeFailed, rt.Outcome)
	assert.Equal(t, ErrCodeBusiness, rt.ErrorCode)
	assert.Equal(t, "A term set already exists with the name specified.", rt.ErrorMessage)
	assert.Equal(t, "1f2e3d4c-0000-4000-8000-000000000001", rt.TraceCorrelationID)
}

func TestClient_RecorderFailureIgnored(t *testing.T) {
	poster := PosterFunc(func(context.Context, string, []byte) ([]byte, error) {
		return []byte(`[` + okMeta + `,3,{"_ObjectIdentity_":"s"}]`), nil
	})
	rec := &memRecorder{err: errors.New("disk full")}
	c := NewClient(poster, "https://contoso.sharepoint.com", WithRecorder(rec))

	_, err := c.Execute(context.Background(), Call{Operation: "test", Phase: 1, Graph: storeGraph()})
	assert.NoError(t, err)
}
