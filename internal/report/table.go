// Package report renders screen snapshots as text tables and xlsx files.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/table"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/screen"
)

const noValue = "-"

// Row is one line of a daily series. A nil side has no record for the date.
type Row struct {
	Date   string
	Cases  *covid.DailyRecord
	Deaths *covid.DailyRecord
}

// Rows lists every available date of the series in chronological order.
func Rows(series covid.CountrySeries) []Row {
	dates := series.AvailableDates()
	rows := make([]Row, 0, len(dates))
	for _, d := range dates {
		key := covid.FormatDate(d)
		row := Row{Date: key}
		if rec, ok := series.Cases[key]; ok {
			row.Cases = &rec
		}
		if rec, ok := series.Deaths[key]; ok {
			row.Deaths = &rec
		}
		rows = append(rows, row)
	}
	return rows
}

func recordCells(rec *covid.DailyRecord) []interface{} {
	if rec == nil {
		return []interface{}{noValue, noValue}
	}
	return []interface{}{rec.Total, rec.New}
}

func summaryCells(s *covid.DailySummary) []interface{} {
	if s == nil {
		return []interface{}{"no data", noValue, noValue, noValue}
	}
	return []interface{}{s.TotalCases, s.NewCases, s.TotalDeaths, s.NewDeaths}
}

// WriteCountryTable prints the daily series of a loaded country followed by
// the summary of the selected date.
func WriteCountryTable(out io.Writer, st screen.CountryDetailState) error {
	switch s := st.Status.(type) {
	case screen.Idle, screen.Loading:
		return fmt.Errorf("%s is not loaded yet", st.Country)
	case screen.Failed:
		return fmt.Errorf("%s", s.Message)
	case screen.Ready:
	default:
		panic(fmt.Sprintf("unexpected screen status %T", s))
	}

	tOut := table.NewWriter()
	tOut.SetOutputMirror(out)
	tOut.SetTitle("%s", st.Country)
	tOut.AppendHeader(table.Row{"Date", "Total cases", "New cases", "Total deaths", "New deaths"})

	for _, r := range Rows(st.Series) {
		row := table.Row{r.Date}
		row = append(row, recordCells(r.Cases)...)
		row = append(row, recordCells(r.Deaths)...)
		tOut.AppendRow(row)
	}

	footer := table.Row{covid.FormatDate(st.SelectedDate)}
	footer = append(footer, summaryCells(st.Summary)...)
	tOut.AppendFooter(footer)
	tOut.Render()

	Debugw("Country table rendered", "country", st.Country, "rows", len(st.Dates))
	return nil
}

// WriteComparisonTable prints one line per country for the selected date.
func WriteComparisonTable(out io.Writer, st screen.ComparisonState) error {
	tOut := table.NewWriter()
	tOut.SetOutputMirror(out)
	tOut.SetTitle("Comparison on %s", covid.FormatDate(st.SelectedDate))
	tOut.AppendHeader(table.Row{"Country", "Total cases", "New cases", "Total deaths", "New deaths"})

	for _, e := range st.Ordered() {
		row := table.Row{e.Country}
		switch s := e.Status.(type) {
		case screen.Idle, screen.Loading:
			row = append(row, "loading", noValue, noValue, noValue)
		case screen.Failed:
			row = append(row, "error: "+s.Message, noValue, noValue, noValue)
		case screen.Ready:
			row = append(row, summaryCells(e.Summary)...)
		default:
			panic(fmt.Sprintf("unexpected screen status %T", s))
		}
		tOut.AppendRow(row)
	}
	tOut.Render()

	Debugw("Comparison table rendered", "countries", len(st.Countries))
	return nil
}
