package screen

import (
	"context"
	"fmt"
	"time"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/stats"
)

// MaxCompared bounds the countries of one comparison; each costs two upstream requests.
const MaxCompared = 10

// Comparer loads several countries, each on its own.
type Comparer interface {
	Compare(ctx context.Context, countries []string, results *stats.Results, onDone func(country string, res stats.Result))
}

type ComparisonEntry struct {
	Country string
	Status  Status
	Series  covid.CountrySeries
	// nil when the country has nothing for the selected date or is not ready
	Summary *covid.DailySummary
}

type ComparisonState struct {
	// Countries keeps the requested order; Entries is keyed by the same names.
	Countries    []string
	Entries      map[string]ComparisonEntry
	Dates        []time.Time
	SelectedDate time.Time
	dateChosen   bool
}

// Ordered returns the entries in request order.
func (s ComparisonState) Ordered() []ComparisonEntry {
	result := make([]ComparisonEntry, 0, len(s.Countries))
	for _, c := range s.Countries {
		result = append(result, s.Entries[c])
	}
	return result
}

func (s ComparisonState) Done() bool {
	for _, e := range s.Entries {
		switch e.Status.(type) {
		case Idle, Loading:
			return false
		}
	}
	return true
}

type Comparison struct {
	comparer Comparer
	results  *stats.Results
	store    *Store[ComparisonState]
}

func NewComparison(countries []string, comparer Comparer) *Comparison {
	countries = stats.Distinct(countries)
	entries := make(map[string]ComparisonEntry, len(countries))
	for _, c := range countries {
		entries[c] = ComparisonEntry{Country: c, Status: Idle{}}
	}
	return &Comparison{
		comparer: comparer,
		results:  stats.NewResults(),
		store: NewStore(ComparisonState{
			Countries:    countries,
			Entries:      entries,
			SelectedDate: covid.Day(now()),
		}),
	}
}

func (c *Comparison) Snapshot() ComparisonState {
	return c.store.Snapshot()
}

// Load fetches every country concurrently. The snapshot is updated as each
// country finishes; one failure leaves the others untouched.
func (c *Comparison) Load(ctx context.Context) ComparisonState {
	countries := c.store.Update(func(s ComparisonState) ComparisonState {
		entries := make(map[string]ComparisonEntry, len(s.Entries))
		for k, e := range s.Entries {
			e.Status = Loading{}
			entries[k] = e
		}
		s.Entries = entries
		return s
	}).Countries

	c.comparer.Compare(ctx, countries, c.results, func(country string, res stats.Result) {
		c.store.Update(func(s ComparisonState) ComparisonState {
			entries := copyEntries(s.Entries)
			e := entries[country]
			if res.Err != nil {
				e.Status = Failed{Message: fmt.Sprintf("Could not load data for %s: %s", country, res.Err)}
			} else {
				e.Status = Ready{}
				e.Series = res.Series
			}
			entries[country] = e
			s.Entries = entries
			return s.recompute()
		})
	})
	return c.Snapshot()
}

// SelectDate switches every entry to the date, which must be available for
// at least one country.
func (c *Comparison) SelectDate(date time.Time) (ComparisonState, error) {
	snap := c.store.Snapshot()
	if !covid.Contains(snap.Dates, date) {
		return snap, fmt.Errorf("%s: %w", covid.FormatDate(date), ErrDateUnavailable)
	}
	date = covid.Day(date)
	return c.store.Update(func(s ComparisonState) ComparisonState {
		s.SelectedDate = date
		s.dateChosen = true
		s.Entries = copyEntries(s.Entries)
		return s.recompute()
	}), nil
}

// recompute rebuilds the date union and the summaries. s.Entries must already
// be a private copy.
func (s ComparisonState) recompute() ComparisonState {
	series := make([]covid.DateSeries, 0, 2*len(s.Entries))
	for _, e := range s.Entries {
		if IsReady(e.Status) {
			series = append(series, e.Series.Cases, e.Series.Deaths)
		}
	}
	s.Dates = unionDates(series...)
	if !s.dateChosen {
		s.SelectedDate = covid.DefaultDate(s.Dates, now())
	}
	for k, e := range s.Entries {
		e.Summary = nil
		if IsReady(e.Status) {
			e.Summary = summaryAt(e.Series, s.SelectedDate)
		}
		s.Entries[k] = e
	}
	return s
}

func copyEntries(in map[string]ComparisonEntry) map[string]ComparisonEntry {
	out := make(map[string]ComparisonEntry, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func unionDates(series ...covid.DateSeries) []time.Time {
	merged := make(covid.DateSeries)
	for _, s := range series {
		for k, v := range s {
			merged[k] = v
		}
	}
	return merged.Dates()
}
