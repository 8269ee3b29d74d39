// Package statsapi talks to the api-ninjas covid19 endpoint.
package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ilyalavrinov/covidstats/internal/covid"
	"github.com/ilyalavrinov/covidstats/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.api-ninjas.com/"
	covidPath      = "v1/covid19"
	apiKeyHeader   = "X-Api-Key"
)

// ErrUpstream marks any failure of the statistics service itself.
var ErrUpstream = errors.New("statistics api failure")

// Config is read from the [statsapi] section.
type Config struct {
	BaseURL string
	APIKey  string
	// requests per second; zero disables throttling
	RateLimit float64
	Burst     int
	Timeout   time.Duration
}

// Query holds the optional filters of one request. Empty fields are not sent.
type Query struct {
	Country string
	Date    string
	Region  string
	County  string
	Type    covid.Metric
}

func (q Query) values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("country", q.Country)
	set("date", q.Date)
	set("region", q.Region)
	set("county", q.County)
	set("type", string(q.Type))
	return v
}

type Client struct {
	httpClient *http.Client
	endpoint   *url.URL
	apiKey     string
	limiter    *rate.Limiter
	recorder   metrics.Recorder
}

func NewClient(cfg Config, httpClient *http.Client, recorder metrics.Recorder) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("cannot parse base url %q: %w", base, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   baseURL.ResolveReference(&url.URL{Path: covidPath}),
		apiKey:     cfg.APIKey,
		limiter:    limiter,
		recorder:   recorder,
	}, nil
}

// GetCovidData performs one request. An empty list is a valid answer meaning
// the API knows nothing for the query.
func (c *Client) GetCovidData(ctx context.Context, q Query) ([]covid.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := *c.endpoint
	reqURL.RawQuery = q.values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	logger := log.WithFields(log.Fields{"country": q.Country, "type": q.Type, "date": q.Date})
	logger.Debug("Requesting covid data")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.recorder.RecordLatency(time.Since(start))
	if err != nil {
		c.recorder.RecordRequest(string(q.Type), metrics.OutcomeHTTPError)
		logger.WithField("err", err).Error("Covid data request failed")
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recorder.RecordRequest(string(q.Type), metrics.OutcomeStatusError)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.WithFields(log.Fields{"status": resp.StatusCode, "body": string(body)}).Error("Covid data request returned bad status")
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var result []covid.Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.recorder.RecordRequest(string(q.Type), metrics.OutcomeDecodeError)
		logger.WithField("err", err).Error("Could not decode covid data")
		return nil, fmt.Errorf("%w: cannot decode response: %w", ErrUpstream, err)
	}

	c.recorder.RecordRequest(string(q.Type), metrics.OutcomeOK)
	logger.WithField("responses", len(result)).Debug("Covid data received")
	return result, nil
}
