package covidbot

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/gcfg.v1"

	"github.com/ilyalavrinov/covidstats/internal/statsapi"
	"github.com/ilyalavrinov/covidstats/pkg/tgbotbase"
)

type Config struct {
	tgbotbase.Config
	Redis    tgbotbase.RedisConfig
	StatsAPI StatsAPIConfig
}

// StatsAPIConfig is the [statsapi] section.
type StatsAPIConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit float64
	Burst     int
	Timeout   string
}

// Client converts the section into the api client configuration.
func (c StatsAPIConfig) Client() (statsapi.Config, error) {
	cfg := statsapi.Config{
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		RateLimit: c.RateLimit,
		Burst:     c.Burst,
		Timeout:   10 * time.Second,
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("bad statsapi timeout %q: %w", c.Timeout, err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

func NewConfig(filename string) (Config, error) {
	log.WithField("filename", filename).Info("Reading configuration")

	var cfg Config
	if err := gcfg.ReadFileInto(&cfg, filename); err != nil {
		log.WithFields(log.Fields{"filename": filename, "err": err}).Error("Could not correctly parse configuration file")
		return cfg, err
	}
	return cfg, nil
}
