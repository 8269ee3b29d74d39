package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gcfg.v1"

	"github.com/ilyalavrinov/covidstats/internal/covidbot"
	"github.com/ilyalavrinov/covidstats/internal/httpapi"
	"github.com/ilyalavrinov/covidstats/internal/metrics"
	"github.com/ilyalavrinov/covidstats/internal/stats"
	"github.com/ilyalavrinov/covidstats/internal/statsapi"
	"github.com/ilyalavrinov/covidstats/pkg/tgbotbase"
)

type config struct {
	HTTP struct {
		Listen  string
		Verbose bool
	}
	Proxy_SOCKS5 tgbotbase.ProxyConfig
	StatsAPI     covidbot.StatsAPIConfig
}

var cfgFilename = flag.String("config", "covidapi.cfg", "configuration file")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.WithField("err", err).Error("Covid api stopped with error")
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := gcfg.ReadFileInto(&cfg, *cfgFilename); err != nil {
		return err
	}
	if cfg.HTTP.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = ":8080"
	}

	apicfg, err := cfg.StatsAPI.Client()
	if err != nil {
		return err
	}
	httpClient, err := tgbotbase.NewHTTPClient(cfg.Proxy_SOCKS5, apicfg.Timeout)
	if err != nil {
		return err
	}
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	client, err := statsapi.NewClient(apicfg, httpClient, collector)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Listen,
		Handler:      httpapi.NewRouter(stats.NewLoader(client, collector), prometheus.DefaultGatherer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * apicfg.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("Covid api starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-listenErr:
		return err
	}
	log.Info("Shutting down covid api")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
