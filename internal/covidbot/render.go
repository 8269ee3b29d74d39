package covidbot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/screen"
)

const helpText = `Commands:
/country <name> [YYYY-MM-DD] - statistics of a country
/search [name] - find a country, the last one found is remembered
/select <name> - add or remove a country from your comparison list
/selection - show the comparison list
/clearselection - empty the comparison list
/compare [a, b, ...] [YYYY-MM-DD] - compare countries, the list is used when none given
/export <name> - daily series as xlsx
/digest <HH:MM> | off - daily statistics of the last found country`

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

func bold(s string) string {
	return "*" + esc(s) + "*"
}

func summaryLine(s *covid.DailySummary) string {
	if s == nil {
		return esc("no data for this date")
	}
	return esc(fmt.Sprintf("🌡 %d (+%d) | 💀 %d (+%d)", s.TotalCases, s.NewCases, s.TotalDeaths, s.NewDeaths))
}

func renderCountry(st screen.CountryDetailState) string {
	switch s := st.Status.(type) {
	case screen.Idle, screen.Loading:
		return esc(fmt.Sprintf("Loading %s...", st.Country))
	case screen.Failed:
		return esc(s.Message)
	case screen.Ready:
		text := fmt.Sprintf("%s on %s\n%s", bold(st.Country), esc(covid.FormatDate(st.SelectedDate)), summaryLine(st.Summary))
		if n := len(st.Dates); n > 0 {
			text += "\n" + esc(fmt.Sprintf("dates available: %s .. %s",
				covid.FormatDate(st.Dates[0]), covid.FormatDate(st.Dates[n-1])))
		}
		return text
	default:
		panic(fmt.Sprintf("unexpected screen status %T", s))
	}
}

func renderSearch(st screen.SearchState) string {
	switch s := st.Status.(type) {
	case screen.Idle:
		return esc("Type a country name to search for.")
	case screen.Loading:
		return esc(fmt.Sprintf("Searching for %s...", st.Query))
	case screen.Failed:
		return esc(s.Message)
	case screen.Ready:
		return fmt.Sprintf("%s on %s\n%s", bold(st.Country), esc(covid.FormatDate(st.Date)), summaryLine(st.Summary))
	default:
		panic(fmt.Sprintf("unexpected screen status %T", s))
	}
}

func renderComparison(st screen.ComparisonState) string {
	lines := []string{bold("Comparison on " + covid.FormatDate(st.SelectedDate))}
	for _, e := range st.Ordered() {
		var line string
		switch s := e.Status.(type) {
		case screen.Idle, screen.Loading:
			line = esc("loading...")
		case screen.Failed:
			line = esc(s.Message)
		case screen.Ready:
			line = summaryLine(e.Summary)
		default:
			panic(fmt.Sprintf("unexpected screen status %T", s))
		}
		lines = append(lines, bold(e.Country)+": "+line)
	}
	return strings.Join(lines, "\n")
}

func renderMain(st screen.MainState) string {
	lines := []string{bold("Latest COVID-19 statistics")}
	for _, e := range st.Entries {
		var line string
		switch s := e.Status.(type) {
		case screen.Idle, screen.Loading:
			line = esc("loading...")
		case screen.Failed:
			line = esc(s.Message)
		case screen.Ready:
			line = esc(covid.FormatDate(e.Date)+" ") + summaryLine(e.Summary)
		default:
			panic(fmt.Sprintf("unexpected screen status %T", s))
		}
		lines = append(lines, bold(e.Country)+": "+line)
	}
	lines = append(lines, "", esc(helpText))
	return strings.Join(lines, "\n")
}

func renderSelection(st screen.SelectionState) string {
	selected := st.SelectedList()
	if len(selected) == 0 {
		return esc("Your comparison list is empty. Add countries with /select <name>.")
	}
	return bold("Comparison list") + "\n" + esc(strings.Join(selected, ", "))
}

func renderCountryList(countries []string) string {
	return bold("Available countries") + "\n" + esc(strings.Join(countries, ", "))
}
