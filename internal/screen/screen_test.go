package screen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/stats"
	"github.com/ilyalavrinov/covidstats/internal/statsapi"
)

var errBoom = errors.New("boom")

type fakeSource struct {
	mu    sync.Mutex
	calls int
	data  map[string]covid.Response
	fail  map[string]bool
}

func (f *fakeSource) GetCovidData(_ context.Context, q statsapi.Query) ([]covid.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[q.Country] {
		return nil, errBoom
	}
	r, ok := f.data[q.Country]
	if !ok {
		return nil, nil
	}
	switch q.Type {
	case covid.Cases:
		r.Deaths = nil
	case covid.Deaths:
		r.Cases = nil
	}
	return []covid.Response{r}, nil
}

func newLoader() (*stats.Loader, *fakeSource) {
	src := &fakeSource{
		data: map[string]covid.Response{
			"Canada": {
				Country: "Canada",
				Cases: covid.DateSeries{
					"2024-01-01": {Total: 100, New: 5},
					"2024-01-02": {Total: 110, New: 10},
					"garbage":    {Total: 1, New: 1},
				},
				Deaths: covid.DateSeries{
					"2024-01-01": {Total: 3, New: 1},
					"2024-01-03": {Total: 4, New: 1},
				},
			},
			"Chile": {
				Country: "Chile",
				Cases:   covid.DateSeries{"2024-02-01": {Total: 10, New: 1}},
			},
			"Nowhere": {Country: "Nowhere"},
		},
		fail: map[string]bool{"Atlantis": true},
	}
	return stats.NewLoader(src, nil), src
}

func date(s string) time.Time {
	d, err := covid.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

type bogusStatus struct{}

func (bogusStatus) isStatus() {}

func TestLabel(t *testing.T) {
	assert.Equal(t, "idle", Label(Idle{}))
	assert.Equal(t, "loading", Label(Loading{}))
	assert.Equal(t, "ready", Label(Ready{}))
	assert.Equal(t, "failed: oops", Label(Failed{Message: "oops"}))
	assert.Panics(t, func() { Label(bogusStatus{}) })
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := NewStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, s.Snapshot())
}

func TestCountryDetail_Load(t *testing.T) {
	loader, _ := newLoader()
	d := NewCountryDetail("Canada", loader)
	assert.IsType(t, Idle{}, d.Snapshot().Status)

	st := d.Load(context.Background())
	require.IsType(t, Ready{}, st.Status)
	assert.Equal(t, []time.Time{date("2024-01-01"), date("2024-01-02"), date("2024-01-03")}, st.Dates)
	assert.Equal(t, date("2024-01-03"), st.SelectedDate)
	require.True(t, st.HasData())
	assert.Equal(t, covid.DailySummary{TotalDeaths: 4, NewDeaths: 1}, *st.Summary)

	st, err := d.SelectDate(date("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, covid.DailySummary{TotalCases: 110, NewCases: 10}, *st.Summary)

	_, err = d.SelectDate(date("2024-01-05"))
	assert.ErrorIs(t, err, ErrDateUnavailable)
	assert.Equal(t, date("2024-01-02"), d.Snapshot().SelectedDate)
}

func TestCountryDetail_NoDataUsesToday(t *testing.T) {
	fixClock(t, time.Date(2024, 5, 6, 15, 4, 5, 0, time.UTC))
	loader, _ := newLoader()
	d := NewCountryDetail("Nowhere", loader)

	st := d.Load(context.Background())
	require.IsType(t, Ready{}, st.Status)
	assert.Empty(t, st.Dates)
	assert.Equal(t, date("2024-05-06"), st.SelectedDate)
	assert.False(t, st.HasData())
}

func TestCountryDetail_Failure(t *testing.T) {
	loader, _ := newLoader()
	d := NewCountryDetail("Atlantis", loader)

	_, err := d.SelectDate(date("2024-01-01"))
	assert.ErrorIs(t, err, ErrNotReady)

	st := d.Load(context.Background())
	failed, ok := st.Status.(Failed)
	require.True(t, ok)
	assert.Contains(t, failed.Message, "Atlantis")
	assert.Nil(t, st.Summary)
}

type memoryLastViewed struct {
	country string
	err     error
}

func (m *memoryLastViewed) LastCountry(context.Context) (string, error) { return m.country, m.err }
func (m *memoryLastViewed) SetLastCountry(_ context.Context, c string) error {
	m.country = c
	return nil
}

func TestSearch_BlankQueryFailsWithoutRequest(t *testing.T) {
	loader, src := newLoader()
	s := NewSearch(loader, nil)

	s.SetQuery("   ")
	st := s.Submit(context.Background())
	assert.Equal(t, Failed{Message: "Please enter a country name."}, st.Status)
	assert.Zero(t, src.calls)
}

func TestSearch_SuccessSavesLastViewed(t *testing.T) {
	loader, _ := newLoader()
	prefs := &memoryLastViewed{}
	s := NewSearch(loader, prefs)

	s.SetQuery(" Chile ")
	st := s.Submit(context.Background())
	require.IsType(t, Ready{}, st.Status)
	assert.Equal(t, "Chile", st.Country)
	assert.Equal(t, date("2024-02-01"), st.Date)
	assert.Equal(t, covid.DailySummary{TotalCases: 10, NewCases: 1}, *st.Summary)
	assert.Equal(t, "Chile", prefs.country)

	st = s.Reset()
	assert.IsType(t, Idle{}, st.Status)
	assert.Equal(t, " Chile ", st.Query)
}

func TestSearch_NotFoundAndFailure(t *testing.T) {
	loader, _ := newLoader()
	prefs := &memoryLastViewed{}
	s := NewSearch(loader, prefs)

	s.SetQuery("Narnia")
	st := s.Submit(context.Background())
	assert.Equal(t, Failed{Message: `No data found for "Narnia".`}, st.Status)

	s.SetQuery("Atlantis")
	st = s.Submit(context.Background())
	failed, ok := st.Status.(Failed)
	require.True(t, ok)
	assert.Contains(t, failed.Message, `Search for "Atlantis" failed`)
	assert.Empty(t, prefs.country)
}

func TestSearch_Restore(t *testing.T) {
	loader, _ := newLoader()

	s := NewSearch(loader, &memoryLastViewed{country: "Canada"})
	assert.Equal(t, "Canada", s.Restore(context.Background()).Query)

	s = NewSearch(loader, &memoryLastViewed{err: errBoom})
	assert.Empty(t, s.Restore(context.Background()).Query)

	s = NewSearch(loader, nil)
	assert.Empty(t, s.Restore(context.Background()).Query)
}

func TestComparison_Load(t *testing.T) {
	loader, _ := newLoader()
	c := NewComparison([]string{"Canada", "Atlantis", "Chile", "canada"}, loader)
	assert.Equal(t, []string{"Canada", "Atlantis", "Chile"}, c.Snapshot().Countries)
	assert.False(t, c.Snapshot().Done())

	st := c.Load(context.Background())
	assert.True(t, st.Done())
	assert.Equal(t, []time.Time{date("2024-01-01"), date("2024-01-02"), date("2024-01-03"), date("2024-02-01")}, st.Dates)
	assert.Equal(t, date("2024-02-01"), st.SelectedDate)

	entries := st.Ordered()
	require.Len(t, entries, 3)
	assert.IsType(t, Ready{}, entries[0].Status)
	assert.Nil(t, entries[0].Summary)
	assert.IsType(t, Failed{}, entries[1].Status)
	assert.IsType(t, Ready{}, entries[2].Status)
	assert.Equal(t, covid.DailySummary{TotalCases: 10, NewCases: 1}, *entries[2].Summary)

	st, err := c.SelectDate(date("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, covid.DailySummary{TotalCases: 100, NewCases: 5, TotalDeaths: 3, NewDeaths: 1}, *st.Entries["Canada"].Summary)
	assert.Nil(t, st.Entries["Chile"].Summary)

	_, err = c.SelectDate(date("2023-12-31"))
	assert.ErrorIs(t, err, ErrDateUnavailable)
}

// steppedComparer finishes the first country, then waits for resume
// before finishing the rest.
type steppedComparer struct {
	series    map[string]covid.CountrySeries
	firstDone chan struct{}
	resume    chan struct{}
}

func (s *steppedComparer) Compare(_ context.Context, countries []string, _ *stats.Results, onDone func(string, stats.Result)) {
	for i, name := range countries {
		onDone(name, stats.Result{Series: s.series[name]})
		if i == 0 {
			close(s.firstDone)
			<-s.resume
		}
	}
}

func TestComparison_ChosenDateSurvivesLaterLoads(t *testing.T) {
	cmp := &steppedComparer{
		series: map[string]covid.CountrySeries{
			"Canada": {Country: "Canada", Cases: covid.DateSeries{"2024-01-01": {Total: 100, New: 5}}},
			"Chile":  {Country: "Chile", Cases: covid.DateSeries{"2024-02-01": {Total: 10, New: 1}}},
		},
		firstDone: make(chan struct{}),
		resume:    make(chan struct{}),
	}
	c := NewComparison([]string{"Canada", "Chile"}, cmp)

	loaded := make(chan ComparisonState, 1)
	go func() { loaded <- c.Load(context.Background()) }()

	<-cmp.firstDone
	mid, err := c.SelectDate(date("2024-01-01"))
	require.NoError(t, err)
	assert.False(t, mid.Done())
	close(cmp.resume)

	var st ComparisonState
	select {
	case st = <-loaded:
	case <-time.After(time.Second):
		t.Fatal("comparison did not finish")
	}
	assert.True(t, st.Done())
	assert.Equal(t, []time.Time{date("2024-01-01"), date("2024-02-01")}, st.Dates)
	assert.Equal(t, date("2024-01-01"), st.SelectedDate)
	assert.Equal(t, covid.DailySummary{TotalCases: 100, NewCases: 5}, *st.Entries["Canada"].Summary)
	assert.Nil(t, st.Entries["Chile"].Summary)
}

func TestComparison_SnapshotsAreIndependent(t *testing.T) {
	loader, _ := newLoader()
	c := NewComparison([]string{"Canada"}, loader)
	before := c.Snapshot()
	c.Load(context.Background())
	assert.IsType(t, Idle{}, before.Entries["Canada"].Status)
}

func TestCountrySelection(t *testing.T) {
	sel := NewCountrySelection([]string{"spain", "Narnia"})
	st := sel.Snapshot()
	assert.Len(t, st.Countries, len(allCountries))
	assert.IsNonDecreasing(t, st.Countries)
	assert.Equal(t, []string{"Spain"}, st.SelectedList())

	st, err := sel.Toggle("chile")
	require.NoError(t, err)
	assert.Equal(t, []string{"Chile", "Spain"}, st.SelectedList())

	st, err = sel.Toggle("Spain")
	require.NoError(t, err)
	assert.Equal(t, []string{"Chile"}, st.SelectedList())

	_, err = sel.Toggle("Narnia")
	assert.ErrorIs(t, err, ErrUnknownCountry)

	assert.Empty(t, sel.Clear().SelectedList())
}

func TestMainScreen_EachCountryUsesItsOwnLatestDate(t *testing.T) {
	loader, _ := newLoader()
	m := NewMain(loader, []string{"Canada", "Chile", "Atlantis"})

	st := m.Load(context.Background())
	require.Len(t, st.Entries, 3)
	assert.Equal(t, date("2024-01-03"), st.Entries[0].Date)
	assert.Equal(t, date("2024-02-01"), st.Entries[1].Date)
	assert.IsType(t, Failed{}, st.Entries[2].Status)

	assert.Len(t, NewMain(loader, nil).Snapshot().Entries, len(PredefinedCountries))
}
