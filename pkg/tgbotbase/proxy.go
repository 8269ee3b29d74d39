package tgbotbase

import (
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// NewHTTPClient returns a client dialing through the SOCKS5 proxy when one is
// configured and a plain client otherwise.
func NewHTTPClient(cfg ProxyConfig, timeout time.Duration) (*http.Client, error) {
	if cfg.Server == "" {
		log.Debug("No proxy is set, going without any proxy")
		return &http.Client{Timeout: timeout}, nil
	}

	log.WithFields(log.Fields{"server": cfg.Server, "user": cfg.User}).Info("Proxy is set, dialing through it")
	var auth *proxy.Auth
	if cfg.User != "" {
		auth = &proxy.Auth{User: cfg.User, Password: cfg.Pass}
	}
	dialer, err := proxy.SOCKS5("tcp", cfg.Server, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("cannot get proxy dialer for %q: %w", cfg.Server, err)
	}

	transport := &http.Transport{}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.Dial = dialer.Dial
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
