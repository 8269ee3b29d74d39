package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ilyalavrinov/covidstats/internal/covidbot"
)

var cfgFilename = flag.String("config", "covidbot.cfg", "configuration file")

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := covidbot.Start(ctx, *cfgFilename); err != nil {
		log.WithField("err", err).Error("Covid bot could not be started")
		os.Exit(1)
	}
	log.Info("Covid bot has stopped working")
}
