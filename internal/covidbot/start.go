package covidbot

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/internal/metrics"
	"github.com/ilyalavrinov/covidstats/internal/prefs"
	"github.com/ilyalavrinov/covidstats/internal/screen"
	"github.com/ilyalavrinov/covidstats/internal/stats"
	"github.com/ilyalavrinov/covidstats/internal/statsapi"
	"github.com/ilyalavrinov/covidstats/pkg/tgbotbase"
)

// Start runs the bot until ctx is cancelled.
func Start(ctx context.Context, cfgFilename string) error {
	log.Info("Starting covid bot")

	fullcfg, err := NewConfig(cfgFilename)
	if err != nil {
		return err
	}
	if fullcfg.TGBot.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	apicfg, err := fullcfg.StatsAPI.Client()
	if err != nil {
		return err
	}
	httpClient, err := tgbotbase.NewHTTPClient(fullcfg.Proxy_SOCKS5, apicfg.Timeout)
	if err != nil {
		return err
	}
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	client, err := statsapi.NewClient(apicfg, httpClient, collector)
	if err != nil {
		return err
	}
	loader := stats.NewLoader(client, collector)

	redispool, err := tgbotbase.NewRedisPool(ctx, fullcfg.Redis)
	if err != nil {
		return fmt.Errorf("cannot connect to redis: %w", err)
	}
	store := prefs.New(tgbotbase.NewRedisPropertyStorage(redispool))

	bot, err := tgbotbase.NewBot(fullcfg.Config)
	if err != nil {
		return err
	}

	cron := tgbotbase.NewCron(ctx)
	digests := NewDigestHandler(cron, loader, store)

	bot.AddHandler(tgbotbase.NewIncomingMessageDealer(NewCovidHandler(loader, store, digests, screen.PredefinedCountries)))
	bot.AddHandler(tgbotbase.NewBackgroundMessageDealer(digests))
	bot.AddHandler(tgbotbase.NewEngagementMessageDealer(&greeter{}))
	bot.Start(ctx)

	log.Info("Covid bot stopped")
	return nil
}
