package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Post(t *testing.T) {
	var gotBody string
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/_vti_bin/client.svc/ProcessQuery", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"SchemaVersion":"15.0.0.0","ErrorInfo":null}]`))
	}))
	defer srv.Close()

	c := New(Options{AccessToken: "secret", UserAgent: "csom-test"})
	resp, err := c.Post(context.Background(), srv.URL+"/_vti_bin/client.svc/ProcessQuery", []byte("<Request />"))
	require.NoError(t, err)

	assert.Equal(t, `[{"SchemaVersion":"15.0.0.0","ErrorInfo":null}]`, string(resp))
	assert.Equal(t, "<Request />", gotBody)
	assert.Equal(t, "Bearer secret", gotHeaders.Get("Authorization"))
	assert.Equal(t, "text/xml", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeaders.Get("Accept"))
	assert.Equal(t, "csom-test", gotHeaders.Get("User-Agent"))
}

func TestClient_PostWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(Options{}).Post(context.Background(), srv.URL, []byte("x"))
	require.NoError(t, err)
}

func TestClient_PostStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("token expired"))
	}))
	defer srv.Close()

	_, err := New(Options{AccessToken: "old"}).Post(context.Background(), srv.URL, []byte("x"))

	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Equal(t, "token expired", te.Body)
	assert.True(t, te.IsAuth())
	assert.Contains(t, err.Error(), "token expired")
}

func TestClient_RetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	resp, err := New(Options{RetryCount: 2}).Post(context.Background(), srv.URL, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(resp))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(Options{RetryCount: 3}).Post(context.Background(), srv.URL, []byte("x"))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(Options{}).Post(ctx, srv.URL, []byte("x"))

	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.StatusCode)
	assert.NotNil(t, te.Err)
}
