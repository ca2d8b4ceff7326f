package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DecodesJSONAndSendsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointments", r.URL.Path)
		assert.Equal(t, "d1", r.URL.Query().Get("doctorId"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	var out struct{ Name string }
	c := NewClient(srv.URL, time.Second)
	err := c.Do(context.Background(), http.MethodGet, "/appointments", url.Values{"doctorId": {"d1"}}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Name)
}

func TestClient_ServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestClient_DialFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	err := NewClient(addr, 200*time.Millisecond).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestClient_ClientErrorIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"appointment not found"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnreachable))
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "appointment not found")
}

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordFallback(string, string) { c.n++ }

func TestDo_FallsBackOnlyWhenUnreachable(t *testing.T) {
	rec := &countingRecorder{}
	f := Fallback{Resource: "appointments", Logger: zerolog.Nop(), Recorder: rec}
	local := func(context.Context) (string, error) { return "local", nil }

	got, err := Do(context.Background(), f, "list",
		func(context.Context) (string, error) { return "", ErrUnreachable }, local)
	require.NoError(t, err)
	assert.Equal(t, "local", got)
	assert.Equal(t, 1, rec.n)

	_, err = Do(context.Background(), f, "get",
		func(context.Context) (string, error) { return "", &StatusError{StatusCode: 404} }, local)
	assert.True(t, IsStatus(err, 404))
	assert.Equal(t, 1, rec.n)
}
