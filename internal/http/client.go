// Package http builds the proxy-aware transport and retry helpers used for
// portal calls.
package http

import (
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"os"
	"strings"

	"golang.org/x/net/http2"

	"github.com/taxdesk/portal-client/internal/config"
	"github.com/taxdesk/portal-client/internal/constants"
	"github.com/taxdesk/portal-client/internal/logging"
)

// ConfigureHTTPClient creates the HTTP client for portal API calls.
//
//   - Proxy modes: no-proxy, system, basic, ntlm (with NoProxy bypass list)
//   - HTTP/2 when talking directly; HTTP/1.1 through proxies unless FORCE_HTTP2=true
//   - Optional warmup request when cfg.ProxyWarmup is set and credentials are complete
func ConfigureHTTPClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}

	if proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true" {
		// Proxies often mishandle HTTP/2 multiplexing
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	} else if os.Getenv("DISABLE_HTTP2") == "true" {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	} else if err := http2.ConfigureTransport(transport); err != nil {
		logger.Debug().Err(err).Msg("http2 transport configuration skipped")
	}

	rt, err := applyProxy(transport, cfg, logger)
	if err != nil {
		return nil, err
	}

	client := &nethttp.Client{
		Transport: rt,
		Timeout:   constants.HTTPClientTimeout,
	}

	if cfg.ProxyWarmup && proxyActive(cfg) && cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		if err := warmupProxy(client, cfg); err != nil {
			return nil, fmt.Errorf("proxy warmup failed: %w", err)
		}
	}

	return client, nil
}

// proxyActive reports whether requests will go through a proxy.
// System mode consults the standard proxy environment variables.
func proxyActive(cfg *config.Config) bool {
	switch strings.ToLower(cfg.ProxyMode) {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return cfg.ProxyHost != ""
	}
}
