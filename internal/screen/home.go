package screen

import (
	"context"
	"fmt"
	"time"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/stats"
)

// PredefinedCountries are shown on the main screen.
var PredefinedCountries = []string{"Spain", "Mexico", "Argentina", "Colombia", "Chile", "Peru", "US", "Brazil"}

// MainEntry is one card of the main screen with the country's own latest date.
type MainEntry struct {
	Country string
	Status  Status
	Date    time.Time
	Summary *covid.DailySummary
}

type MainState struct {
	Entries []MainEntry
}

type Main struct {
	comparer Comparer
	store    *Store[MainState]
}

func NewMain(comparer Comparer, countries []string) *Main {
	if len(countries) == 0 {
		countries = PredefinedCountries
	}
	countries = stats.Distinct(countries)
	entries := make([]MainEntry, len(countries))
	for i, c := range countries {
		entries[i] = MainEntry{Country: c, Status: Idle{}}
	}
	return &Main{comparer: comparer, store: NewStore(MainState{Entries: entries})}
}

func (m *Main) Snapshot() MainState {
	return m.store.Snapshot()
}

func (m *Main) Load(ctx context.Context) MainState {
	st := m.store.Update(func(s MainState) MainState {
		entries := make([]MainEntry, len(s.Entries))
		for i, e := range s.Entries {
			e.Status = Loading{}
			entries[i] = e
		}
		s.Entries = entries
		return s
	})
	countries := make([]string, len(st.Entries))
	for i, e := range st.Entries {
		countries[i] = e.Country
	}

	m.comparer.Compare(ctx, countries, stats.NewResults(), func(country string, res stats.Result) {
		m.store.Update(func(s MainState) MainState {
			entries := append([]MainEntry(nil), s.Entries...)
			for i := range entries {
				if entries[i].Country != country {
					continue
				}
				if res.Err != nil {
					entries[i].Status = Failed{Message: fmt.Sprintf("Could not load data for %s: %s", country, res.Err)}
					continue
				}
				date := covid.DefaultDate(res.Series.AvailableDates(), now())
				entries[i].Status = Ready{}
				entries[i].Date = date
				entries[i].Summary = summaryAt(res.Series, date)
			}
			s.Entries = entries
			return s
		})
	})
	return m.Snapshot()
}
