package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyalavrinov/covidstats/internal/covid"
)

type countingRecorder struct {
	outcomes []string
}

func (r *countingRecorder) RecordRequest(_ string, outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}
func (r *countingRecorder) RecordLatency(time.Duration) {}
func (r *countingRecorder) RecordLoad(string, bool)     {}

func newTestClient(t *testing.T, srv *httptest.Server, rec *countingRecorder) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "secret"}, srv.Client(), rec)
	require.NoError(t, err)
	return c
}

func TestClient_GetCovidData_SendsQueryAndKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/covid19", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "Canada", r.URL.Query().Get("country"))
		assert.Equal(t, "cases", r.URL.Query().Get("type"))
		assert.False(t, r.URL.Query().Has("date"))
		assert.False(t, r.URL.Query().Has("region"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"country": "Canada", "region": "Ontario", "cases": {"2024-01-01": {"total": 100, "new": 5}}},
			{"country": "Canada", "region": null, "cases": {"2024-01-01": {"total": 50, "new": 2}}, "deaths": null}
		]`))
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	c := newTestClient(t, srv, rec)

	result, err := c.GetCovidData(context.Background(), Query{Country: "Canada", Type: covid.Cases})
	require.NoError(t, err)
	require.Len(t, result, 2)

	require.NotNil(t, result[0].Region)
	assert.Equal(t, "Ontario", *result[0].Region)
	assert.Nil(t, result[1].Region)
	assert.Nil(t, result[1].Deaths)
	assert.Equal(t, covid.DateSeries{"2024-01-01": {Total: 150, New: 7}}, covid.MergeSeries(result, covid.Cases))
	assert.Equal(t, []string{"ok"}, rec.outcomes)
}

func TestClient_GetCovidData_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]covid.Response{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, &countingRecorder{})

	result, err := c.GetCovidData(context.Background(), Query{Country: "Atlantis"})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestClient_GetCovidData_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "Invalid API Key."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	c := newTestClient(t, srv, rec)

	_, err := c.GetCovidData(context.Background(), Query{Country: "Canada"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, []string{"status_error"}, rec.outcomes)
}

func TestClient_GetCovidData_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"`))
	}))
	defer srv.Close()

	rec := &countingRecorder{}
	c := newTestClient(t, srv, rec)

	_, err := c.GetCovidData(context.Background(), Query{Country: "Canada"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, []string{"decode_error"}, rec.outcomes)
}

func TestClient_GetCovidData_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, RateLimit: 0.001, Burst: 1}, srv.Client(), nil)
	require.NoError(t, err)

	// first call consumes the burst
	_, err = c.GetCovidData(context.Background(), Query{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.GetCovidData(ctx, Query{})
	assert.Error(t, err)
}

func TestClient_GetCovidData_CancelKeepsCause(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	rec := &countingRecorder{}
	c := newTestClient(t, srv, rec)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := c.GetCovidData(ctx, Query{Country: "Canada"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.True(t, errors.Is(err, context.Canceled), err.Error())
	assert.Equal(t, []string{"http_error"}, rec.outcomes)
}

func TestNewClient_DefaultsBaseURL(t *testing.T) {
	c, err := NewClient(Config{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.api-ninjas.com/v1/covid19", c.endpoint.String())
}
