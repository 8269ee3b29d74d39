package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/metrics"
	"github.com/ilyalavrinov/covidstats/internal/screen"
	"github.com/ilyalavrinov/covidstats/internal/stats"
	"github.com/ilyalavrinov/covidstats/internal/statsapi"
)

type fakeSource struct{}

func (fakeSource) GetCovidData(_ context.Context, q statsapi.Query) ([]covid.Response, error) {
	switch q.Country {
	case "Canada":
		if q.Type == covid.Cases {
			return []covid.Response{{Country: "Canada", Cases: covid.DateSeries{
				"2024-01-01": {Total: 100, New: 5},
				"2024-01-02": {Total: 110, New: 10},
			}}}, nil
		}
		return []covid.Response{{Country: "Canada", Deaths: covid.DateSeries{
			"2024-01-01": {Total: 3, New: 1},
		}}}, nil
	case "Atlantis":
		return nil, statsapi.ErrUpstream
	}
	return nil, nil
}

func newServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	loader := stats.NewLoader(fakeSource{}, metrics.NewCollector(reg))
	srv := httptest.NewServer(NewRouter(loader, reg))
	t.Cleanup(srv.Close)
	return srv, reg
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListCountries(t *testing.T) {
	srv, _ := newServer(t)
	var body countriesResponse
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/countries", &body))
	assert.Contains(t, body.Countries, "Canada")
	assert.NotEmpty(t, body.Predefined)
}

func TestGetCountry_LatestDate(t *testing.T) {
	srv, _ := newServer(t)
	var body countryResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/countries/Canada", &body))

	assert.Equal(t, "Canada", body.Country)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, body.Dates)
	assert.Equal(t, "2024-01-02", body.SelectedDate)
	assert.True(t, body.HasData)
	assert.Equal(t, &covid.DailySummary{TotalCases: 110, NewCases: 10}, body.Summary)
	assert.Equal(t, covid.DailyRecord{Total: 3, New: 1}, body.Series.Deaths["2024-01-01"])
}

func TestGetCountry_SelectedDate(t *testing.T) {
	srv, _ := newServer(t)
	var body countryResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/countries/Canada?date=2024-01-01", &body))
	assert.Equal(t, &covid.DailySummary{TotalCases: 100, NewCases: 5, TotalDeaths: 3, NewDeaths: 1}, body.Summary)

	var errBody errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/countries/Canada?date=2023-01-01", &errBody))
	assert.Contains(t, errBody.Error, "2023-01-01")

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/countries/Canada?date=yesterday", &errBody))
}

func TestGetCountry_NoDataIsNullSummary(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/api/countries/Nowhere")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"has_data":false`)
	assert.Contains(t, string(raw), `"summary":null`)
}

func TestGetCountry_UpstreamFailure(t *testing.T) {
	srv, _ := newServer(t)
	var body errorResponse
	assert.Equal(t, http.StatusBadGateway, getJSON(t, srv.URL+"/api/countries/Atlantis", &body))
	assert.Contains(t, body.Error, "Atlantis")
}

func TestCompare(t *testing.T) {
	srv, _ := newServer(t)
	var body comparisonResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/compare?countries=Canada,Atlantis,Nowhere", &body))

	assert.Equal(t, "2024-01-02", body.SelectedDate)
	require.Len(t, body.Countries, 3)
	assert.Equal(t, "ready", body.Countries[0].Status)
	assert.True(t, body.Countries[0].HasData)
	assert.Equal(t, "failed", body.Countries[1].Status)
	assert.NotEmpty(t, body.Countries[1].Error)
	assert.Equal(t, "ready", body.Countries[2].Status)
	assert.False(t, body.Countries[2].HasData)
	assert.Nil(t, body.Countries[2].Summary)

	var errBody errorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/compare", &errBody))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/compare?countries=Canada&date=2020-01-01", &errBody))
}

func TestCompare_TooManyCountries(t *testing.T) {
	srv, _ := newServer(t)
	names := make([]string, 0, screen.MaxCompared+1)
	for i := 0; i <= screen.MaxCompared; i++ {
		names = append(names, fmt.Sprintf("Country%d", i))
	}

	var body errorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/compare?countries="+strings.Join(names, ","), &body))
	assert.Contains(t, body.Error, "at most")

	// repeats do not count
	var ok comparisonResponse
	repeated := strings.Repeat("Canada,", screen.MaxCompared+5)
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/compare?countries="+repeated, &ok))
	assert.Len(t, ok.Countries, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/api/countries/Canada")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "covidstats_country_loads_total")
}
