package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/prefs"
	"github.com/ilyalavrinov/covidstats/internal/screen"
	"github.com/ilyalavrinov/covidstats/internal/stats"
)

type Handler struct {
	loader Loader
}

func NewHandler(loader Loader) *Handler {
	return &Handler{loader: loader}
}

// --- responses ---

type errorResponse struct {
	Error string `json:"error"`
}

type countriesResponse struct {
	Countries  []string `json:"countries"`
	Predefined []string `json:"predefined"`
}

type seriesResponse struct {
	Cases  covid.DateSeries `json:"cases"`
	Deaths covid.DateSeries `json:"deaths"`
}

type countryResponse struct {
	Country      string              `json:"country"`
	Dates        []string            `json:"dates"`
	SelectedDate string              `json:"selected_date"`
	HasData      bool                `json:"has_data"`
	Summary      *covid.DailySummary `json:"summary"`
	Series       seriesResponse      `json:"series"`
}

type comparisonEntryResponse struct {
	Country string              `json:"country"`
	Status  string              `json:"status"`
	Error   string              `json:"error,omitempty"`
	HasData bool                `json:"has_data"`
	Summary *covid.DailySummary `json:"summary"`
}

type comparisonResponse struct {
	Dates        []string                  `json:"dates"`
	SelectedDate string                    `json:"selected_date"`
	Countries    []comparisonEntryResponse `json:"countries"`
}

func formatDates(dates []time.Time) []string {
	result := make([]string, 0, len(dates))
	for _, d := range dates {
		result = append(result, covid.FormatDate(d))
	}
	return result
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithField("err", err).Error("Could not encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// dateParam reads the optional "date" query parameter.
func dateParam(r *http.Request) (time.Time, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return time.Time{}, false, nil
	}
	d, err := covid.ParseDate(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return d, true, nil
}

// --- handlers ---

// Health GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListCountries GET /api/countries
func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, countriesResponse{
		Countries:  screen.Countries(),
		Predefined: screen.PredefinedCountries,
	})
}

// GetCountry GET /api/countries/{name}?date=YYYY-MM-DD
func (h *Handler) GetCountry(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "country name is required")
		return
	}
	date, hasDate, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must look like YYYY-MM-DD")
		return
	}

	d := screen.NewCountryDetail(name, h.loader)
	st := d.Load(r.Context())
	switch s := st.Status.(type) {
	case screen.Ready:
	case screen.Failed:
		writeError(w, http.StatusBadGateway, s.Message)
		return
	case screen.Idle, screen.Loading:
		writeError(w, http.StatusInternalServerError, "country was not loaded")
		return
	default:
		panic("unexpected screen status")
	}

	if hasDate {
		st, err = d.SelectDate(date)
		if errors.Is(err, screen.ErrDateUnavailable) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, countryResponse{
		Country:      st.Country,
		Dates:        formatDates(st.Dates),
		SelectedDate: covid.FormatDate(st.SelectedDate),
		HasData:      st.HasData(),
		Summary:      st.Summary,
		Series: seriesResponse{
			Cases:  st.Series.Cases,
			Deaths: st.Series.Deaths,
		},
	})
}

// Compare GET /api/compare?countries=a,b&date=YYYY-MM-DD
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	countries := stats.Distinct(prefs.SplitList(r.URL.Query().Get("countries")))
	if len(countries) == 0 {
		writeError(w, http.StatusBadRequest, "countries parameter is required")
		return
	}
	if len(countries) > screen.MaxCompared {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d countries can be compared", screen.MaxCompared))
		return
	}
	date, hasDate, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must look like YYYY-MM-DD")
		return
	}

	c := screen.NewComparison(countries, h.loader)
	st := c.Load(r.Context())
	if hasDate {
		st, err = c.SelectDate(date)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	resp := comparisonResponse{
		Dates:        formatDates(st.Dates),
		SelectedDate: covid.FormatDate(st.SelectedDate),
		Countries:    make([]comparisonEntryResponse, 0, len(st.Countries)),
	}
	for _, e := range st.Ordered() {
		entry := comparisonEntryResponse{Country: e.Country, Status: "ready"}
		switch s := e.Status.(type) {
		case screen.Ready:
			entry.HasData = e.Summary != nil
			entry.Summary = e.Summary
		case screen.Failed:
			entry.Status = "failed"
			entry.Error = s.Message
		case screen.Idle, screen.Loading:
			entry.Status = "loading"
		default:
			panic("unexpected screen status")
		}
		resp.Countries = append(resp.Countries, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}
