package screen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/stats"
)

// Searcher looks a country up by free text.
type Searcher interface {
	Search(ctx context.Context, name string) (covid.CountrySeries, error)
}

// LastViewed remembers the last country found by a search.
type LastViewed interface {
	LastCountry(ctx context.Context) (string, error)
	SetLastCountry(ctx context.Context, country string) error
}

type SearchState struct {
	Query  string
	Status Status
	// set when Status is Ready
	Country string
	Series  covid.CountrySeries
	Date    time.Time
	Summary *covid.DailySummary
}

type Search struct {
	searcher Searcher
	prefs    LastViewed
	store    *Store[SearchState]
}

// NewSearch creates an idle search screen. prefs may be nil.
func NewSearch(searcher Searcher, prefs LastViewed) *Search {
	return &Search{
		searcher: searcher,
		prefs:    prefs,
		store:    NewStore(SearchState{Status: Idle{}}),
	}
}

func (s *Search) Snapshot() SearchState {
	return s.store.Snapshot()
}

// Restore fills the query with the last viewed country, if any.
func (s *Search) Restore(ctx context.Context) SearchState {
	if s.prefs == nil {
		return s.Snapshot()
	}
	last, err := s.prefs.LastCountry(ctx)
	if err != nil {
		log.WithField("err", err).Warn("Could not read last viewed country")
		return s.Snapshot()
	}
	if last == "" {
		return s.Snapshot()
	}
	return s.SetQuery(last)
}

func (s *Search) SetQuery(query string) SearchState {
	return s.store.Update(func(st SearchState) SearchState {
		st.Query = query
		return st
	})
}

// Submit searches for the current query. A blank query fails without a request.
func (s *Search) Submit(ctx context.Context) SearchState {
	country := strings.TrimSpace(s.Snapshot().Query)
	if country == "" {
		return s.fail("Please enter a country name.")
	}

	s.store.Update(func(st SearchState) SearchState {
		st.Status = Loading{}
		return st
	})

	series, err := s.searcher.Search(ctx, country)
	if errors.Is(err, stats.ErrNotFound) {
		return s.fail(fmt.Sprintf("No data found for %q.", country))
	}
	if err != nil {
		log.WithFields(log.Fields{"query": country, "err": err}).Warn("Search failed")
		return s.fail(fmt.Sprintf("Search for %q failed: %s", country, err))
	}

	if s.prefs != nil {
		if err := s.prefs.SetLastCountry(ctx, country); err != nil {
			log.WithFields(log.Fields{"country": country, "err": err}).Warn("Could not save last viewed country")
		}
	}

	date := covid.DefaultDate(series.AvailableDates(), now())
	return s.store.Update(func(st SearchState) SearchState {
		st.Status = Ready{}
		st.Country = series.Country
		st.Series = series
		st.Date = date
		st.Summary = summaryAt(series, date)
		return st
	})
}

// Reset returns to Idle, keeping the query.
func (s *Search) Reset() SearchState {
	return s.store.Update(func(st SearchState) SearchState {
		return SearchState{Query: st.Query, Status: Idle{}}
	})
}

func (s *Search) fail(msg string) SearchState {
	return s.store.Update(func(st SearchState) SearchState {
		return SearchState{Query: st.Query, Status: Failed{Message: msg}}
	})
}
