package report

import (
	"io"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/ilyalavrinov/covidstats/internal/covid"
)

// ToXlsxSheet writes the daily series with one row per available date.
// Missing records are left empty and highlighted.
func ToXlsxSheet(out *xlsx.Sheet, series covid.CountrySeries) {
	for x, title := range []string{"DATE", "TOTAL CASES", "NEW CASES", "TOTAL DEATHS", "NEW DEATHS"} {
		out.Cell(0, x).SetString(title)
	}

	noDataStyle := xlsx.NewStyle()
	noDataStyle.ApplyFill = true
	noDataStyle.Fill.PatternType = xlsx.Solid_Cell_Fill
	noDataStyle.Fill.FgColor = xlsx.RGB_Light_Red

	yOffset := 1
	for y, r := range Rows(series) {
		out.Cell(yOffset+y, 0).SetString(r.Date)
		for i, rec := range []*covid.DailyRecord{r.Cases, r.Deaths} {
			xOffset := 1 + 2*i
			total := out.Cell(yOffset+y, xOffset)
			added := out.Cell(yOffset+y, xOffset+1)
			if rec == nil {
				total.SetStyle(noDataStyle)
				added.SetStyle(noDataStyle)
				continue
			}
			total.SetInt(rec.Total)
			added.SetInt(rec.New)
		}
	}
}

// WriteXlsx writes a workbook with a single sheet named after the country.
func WriteXlsx(w io.Writer, series covid.CountrySeries) error {
	xls := xlsx.NewFile()
	name := sheetName(series.Country)
	sh, err := xls.AddSheet(name)
	if err != nil {
		Errorw("Cannot add xlsx sheet", "name", name, "err", err)
		return err
	}
	ToXlsxSheet(sh, series)
	return xls.Write(w)
}

const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")")

// sheetName makes a name excel accepts: no restricted characters and at most
// 31 runes.
func sheetName(country string) string {
	name := strings.TrimSpace(sheetNameReplacer.Replace(country))
	if name == "" {
		return "series"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}
