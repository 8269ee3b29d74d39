// Package stats loads complete country series out of single metric queries.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/metrics"
	"github.com/ilyalavrinov/covidstats/internal/statsapi"
)

var ErrNotFound = errors.New("no data for country")

// Source is the upstream API as seen by the loader.
type Source interface {
	GetCovidData(ctx context.Context, q statsapi.Query) ([]covid.Response, error)
}

type Loader struct {
	source   Source
	recorder metrics.Recorder
}

func NewLoader(source Source, recorder metrics.Recorder) *Loader {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Loader{source: source, recorder: recorder}
}

// Country requests both metrics concurrently and merges them once both have
// arrived. A failure of either request fails the whole load.
func (l *Loader) Country(ctx context.Context, name string) (covid.CountrySeries, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return covid.CountrySeries{}, fmt.Errorf("empty country name")
	}

	var cases, deaths []covid.Response
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cases, err = l.source.GetCovidData(gctx, statsapi.Query{Country: name, Type: covid.Cases})
		return err
	})
	g.Go(func() error {
		var err error
		deaths, err = l.source.GetCovidData(gctx, statsapi.Query{Country: name, Type: covid.Deaths})
		return err
	})
	if err := g.Wait(); err != nil {
		l.recorder.RecordLoad(name, false)
		log.WithFields(log.Fields{"country": name, "err": err}).Error("Could not load country")
		return covid.CountrySeries{}, fmt.Errorf("cannot load %q: %w", name, err)
	}

	result := covid.CountrySeries{
		Country: name,
		Cases:   covid.MergeSeries(cases, covid.Cases),
		Deaths:  covid.MergeSeries(deaths, covid.Deaths),
	}
	l.recorder.RecordLoad(name, true)
	log.WithFields(log.Fields{
		"country":     name,
		"caseDays":    len(result.Cases),
		"deathDays":   len(result.Deaths),
		"caseParts":   len(cases),
		"deathsParts": len(deaths),
	}).Debug("Country loaded")
	return result, nil
}

// Search issues a single untyped query, the way a free text lookup does.
// Nothing returned by the API is reported as ErrNotFound.
func (l *Loader) Search(ctx context.Context, name string) (covid.CountrySeries, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return covid.CountrySeries{}, fmt.Errorf("empty country name")
	}
	responses, err := l.source.GetCovidData(ctx, statsapi.Query{Country: name})
	if err != nil {
		return covid.CountrySeries{}, fmt.Errorf("cannot search %q: %w", name, err)
	}
	if len(responses) == 0 {
		return covid.CountrySeries{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	country := responses[0].Country
	if country == "" {
		country = name
	}
	return covid.CountrySeries{
		Country: country,
		Cases:   covid.MergeSeries(responses, covid.Cases),
		Deaths:  covid.MergeSeries(responses, covid.Deaths),
	}, nil
}

// Result is the outcome of one country unit of a comparison.
type Result struct {
	Series covid.CountrySeries
	Err    error
}

// Results is filled concurrently, one writer per country.
type Results struct {
	mu   sync.RWMutex
	byID map[string]Result
}

func NewResults() *Results {
	return &Results{byID: make(map[string]Result)}
}

func (r *Results) publish(country string, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[country] = res
}

func (r *Results) Get(country string) (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byID[country]
	return res, ok
}

func (r *Results) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Compare loads every distinct country on its own goroutine and returns when
// all of them are done. Each finished unit is stored in results and then
// handed to onDone, if set. Failures stay local to their country.
func (l *Loader) Compare(ctx context.Context, countries []string, results *Results, onDone func(country string, res Result)) {
	var wg sync.WaitGroup
	for _, name := range Distinct(countries) {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			series, err := l.Country(ctx, name)
			res := Result{Series: series, Err: err}
			results.publish(name, res)
			if onDone != nil {
				onDone(name, res)
			}
		}(name)
	}
	wg.Wait()
}

// Distinct trims names and drops blanks and repeats, keeping the first order.
func Distinct(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, n)
	}
	return result
}
