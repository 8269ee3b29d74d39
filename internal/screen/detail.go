package screen

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/internal/covid"
)

// CountryLoader loads both metrics of a single country.
type CountryLoader interface {
	Country(ctx context.Context, name string) (covid.CountrySeries, error)
}

type CountryDetailState struct {
	Country      string
	Status       Status
	Series       covid.CountrySeries
	Dates        []time.Time
	SelectedDate time.Time
	// nil when neither metric has a record for SelectedDate
	Summary *covid.DailySummary
}

func (s CountryDetailState) HasData() bool {
	return s.Summary != nil
}

type CountryDetail struct {
	loader CountryLoader
	store  *Store[CountryDetailState]
}

func NewCountryDetail(country string, loader CountryLoader) *CountryDetail {
	return &CountryDetail{
		loader: loader,
		store: NewStore(CountryDetailState{
			Country:      country,
			Status:       Idle{},
			SelectedDate: covid.Day(now()),
		}),
	}
}

func (d *CountryDetail) Snapshot() CountryDetailState {
	return d.store.Snapshot()
}

// Load fetches the country and selects its latest available date.
func (d *CountryDetail) Load(ctx context.Context) CountryDetailState {
	country := d.store.Update(func(s CountryDetailState) CountryDetailState {
		s.Status = Loading{}
		return s
	}).Country

	series, err := d.loader.Country(ctx, country)
	if err != nil {
		log.WithFields(log.Fields{"country": country, "err": err}).Warn("Country detail load failed")
		return d.store.Update(func(s CountryDetailState) CountryDetailState {
			s.Status = Failed{Message: fmt.Sprintf("Could not load data for %s: %s", country, err)}
			return s
		})
	}

	dates := series.AvailableDates()
	selected := covid.DefaultDate(dates, now())
	return d.store.Update(func(s CountryDetailState) CountryDetailState {
		s.Status = Ready{}
		s.Series = series
		s.Dates = dates
		s.SelectedDate = selected
		s.Summary = summaryAt(series, selected)
		return s
	})
}

// SelectDate moves the screen to another available date.
func (d *CountryDetail) SelectDate(date time.Time) (CountryDetailState, error) {
	snap := d.store.Snapshot()
	if !IsReady(snap.Status) {
		return snap, ErrNotReady
	}
	if !covid.Contains(snap.Dates, date) {
		return snap, fmt.Errorf("%s: %w", covid.FormatDate(date), ErrDateUnavailable)
	}
	date = covid.Day(date)
	return d.store.Update(func(s CountryDetailState) CountryDetailState {
		s.SelectedDate = date
		s.Summary = summaryAt(s.Series, date)
		return s
	}), nil
}

func summaryAt(series covid.CountrySeries, date time.Time) *covid.DailySummary {
	summary, ok := series.Summarize(date)
	if !ok {
		return nil
	}
	return &summary
}
