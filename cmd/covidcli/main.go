package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/prefs"
	"github.com/ilyalavrinov/covidstats/internal/report"
	"github.com/ilyalavrinov/covidstats/internal/screen"
	"github.com/ilyalavrinov/covidstats/internal/stats"
	"github.com/ilyalavrinov/covidstats/internal/statsapi"
)

var (
	country = flag.String("country", "", "country to show the daily series of")
	compare = flag.String("compare", "", "comma separated countries to compare")
	date    = flag.String("date", "", "date to summarize, YYYY-MM-DD; the latest available by default")
	xlsxOut = flag.String("xlsx", "", "also write the country series into this xlsx file")
	apiKey  = flag.String("key", os.Getenv("COVIDSTATS_API_KEY"), "api-ninjas key")
	baseURL = flag.String("baseurl", statsapi.DefaultBaseURL, "statistics api base url")
	timeout = flag.Duration("timeout", 30*time.Second, "overall timeout")
	verbose = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()
	report.SetVerbose(*verbose)
	defer report.Sync()

	if *country == "" && *compare == "" {
		fmt.Println("either -country or -compare is mandatory")
		flag.Usage()
		os.Exit(1)
	}

	var selected *time.Time
	if *date != "" {
		d, err := covid.ParseDate(*date)
		if err != nil {
			fmt.Printf("bad -date: %s\n", err)
			os.Exit(1)
		}
		selected = &d
	}

	client, err := statsapi.NewClient(statsapi.Config{BaseURL: *baseURL, APIKey: *apiKey, Timeout: *timeout}, nil, nil)
	if err != nil {
		fmt.Printf("could not create api client: %s\n", err)
		os.Exit(1)
	}
	loader := stats.NewLoader(client, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	failed := false
	if *country != "" {
		if err := showCountry(ctx, loader, *country, selected); err != nil {
			report.Errorw("Country failed", "country", *country, "err", err)
			failed = true
		}
	}
	if *compare != "" {
		if err := showComparison(ctx, loader, prefs.SplitList(*compare), selected); err != nil {
			report.Errorw("Comparison failed", "countries", *compare, "err", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func showCountry(ctx context.Context, loader *stats.Loader, name string, selected *time.Time) error {
	d := screen.NewCountryDetail(name, loader)
	st := d.Load(ctx)
	if selected != nil && screen.IsReady(st.Status) {
		var err error
		if st, err = d.SelectDate(*selected); err != nil {
			return err
		}
	}
	if err := report.WriteCountryTable(os.Stdout, st); err != nil {
		return err
	}
	if *xlsxOut == "" {
		return nil
	}

	f, err := os.Create(*xlsxOut)
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", *xlsxOut, err)
	}
	defer f.Close()
	if err := report.WriteXlsx(f, st.Series); err != nil {
		return err
	}
	report.Infow("Xlsx written", "file", *xlsxOut)
	return nil
}

func showComparison(ctx context.Context, loader *stats.Loader, countries []string, selected *time.Time) error {
	c := screen.NewComparison(countries, loader)
	st := c.Load(ctx)
	if selected != nil {
		var err error
		if st, err = c.SelectDate(*selected); err != nil {
			return err
		}
	}
	return report.WriteComparisonTable(os.Stdout, st)
}
