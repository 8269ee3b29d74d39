// Package covid holds the daily case/death series returned by the statistics
// API and the aggregation shared by every screen.
package covid

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO-8601 calendar date used as series key.
const DateLayout = "2006-01-02"

type Metric string

const (
	Cases  Metric = "cases"
	Deaths Metric = "deaths"
)

var Metrics = []Metric{Cases, Deaths}

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Cases, Deaths:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// DailyRecord is the cumulative and incremental count for one date.
type DailyRecord struct {
	Total int `json:"total"`
	New   int `json:"new"`
}

// DateSeries maps a date key to its record for one (country, metric) pair.
type DateSeries map[string]DailyRecord

// Response is a single element of the API answer.
type Response struct {
	Country string     `json:"country"`
	Region  *string    `json:"region"`
	Cases   DateSeries `json:"cases"`
	Deaths  DateSeries `json:"deaths"`
}

func (r Response) Series(m Metric) DateSeries {
	switch m {
	case Cases:
		return r.Cases
	case Deaths:
		return r.Deaths
	}
	return nil
}

// CountrySeries is the merged result of loading one country.
type CountrySeries struct {
	Country string
	Cases   DateSeries
	Deaths  DateSeries
}

// DailySummary is the cases and deaths view of one calendar date.
type DailySummary struct {
	TotalCases  int `json:"total_cases"`
	NewCases    int `json:"new_cases"`
	TotalDeaths int `json:"total_deaths"`
	NewDeaths   int `json:"new_deaths"`
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day drops the clock part, keeping the calendar date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MergeSeries combines the metric maps of all responses. Records sharing a
// date are summed field by field, so the order of responses does not matter.
func MergeSeries(responses []Response, m Metric) DateSeries {
	result := make(DateSeries)
	for _, r := range responses {
		for date, rec := range r.Series(m) {
			if existing, found := result[date]; found {
				rec = DailyRecord{
					Total: existing.Total + rec.Total,
					New:   existing.New + rec.New,
				}
			}
			result[date] = rec
		}
	}
	return result
}

// Dates returns the parseable keys in chronological order.
func (s DateSeries) Dates() []time.Time {
	return AvailableDates(s, nil)
}

// AvailableDates returns the union of dates present in either series, sorted
// ascending. Keys which are not calendar dates are skipped.
func AvailableDates(cases, deaths DateSeries) []time.Time {
	seen := make(map[time.Time]bool, len(cases)+len(deaths))
	result := make([]time.Time, 0, len(cases)+len(deaths))
	for _, series := range []DateSeries{cases, deaths} {
		for key := range series {
			d, err := ParseDate(key)
			if err != nil {
				continue
			}
			if seen[d] {
				continue
			}
			seen[d] = true
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Before(result[j])
	})
	return result
}

// Summarize looks the date up in both series. The boolean is false when
// neither series has a record for it, which callers must render as "no data"
// rather than as zero counts.
func Summarize(date time.Time, cases, deaths DateSeries) (DailySummary, bool) {
	key := FormatDate(date)
	c, hasCases := cases[key]
	d, hasDeaths := deaths[key]
	if !hasCases && !hasDeaths {
		return DailySummary{}, false
	}
	return DailySummary{
		TotalCases:  c.Total,
		NewCases:    c.New,
		TotalDeaths: d.Total,
		NewDeaths:   d.New,
	}, true
}

// DefaultDate picks the most recent available date, or the calendar day of
// now when nothing is available.
func DefaultDate(dates []time.Time, now time.Time) time.Time {
	if len(dates) == 0 {
		return Day(now)
	}
	latest := dates[0]
	for _, d := range dates[1:] {
		if d.After(latest) {
			latest = d
		}
	}
	return latest
}

// Contains reports whether the calendar date is among dates.
func Contains(dates []time.Time, date time.Time) bool {
	date = Day(date)
	for _, d := range dates {
		if d.Equal(date) {
			return true
		}
	}
	return false
}

func (c CountrySeries) AvailableDates() []time.Time {
	return AvailableDates(c.Cases, c.Deaths)
}

func (c CountrySeries) Summarize(date time.Time) (DailySummary, bool) {
	return Summarize(date, c.Cases, c.Deaths)
}

func (c CountrySeries) Empty() bool {
	return len(c.Cases) == 0 && len(c.Deaths) == 0
}
