// Package fetch downloads external resources needed while assembling a
// signed document, with timeouts, retries, and URL failover.
package fetch

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"
)

// HTTPClientConfig provides configuration options for creating HTTP clients.
type HTTPClientConfig struct {
	// Timeout is the overall request timeout.
	// Default: 30 seconds.
	Timeout time.Duration

	// ProxyURL is the URL of the HTTP proxy to use.
	// If empty, the system's default proxy settings are used.
	ProxyURL string

	// TLSConfig provides custom TLS configuration.
	// If nil, the default TLS configuration is used.
	TLSConfig *tls.Config

	// MinTLSVersion specifies the minimum TLS version to accept.
	// Default: TLS 1.2.
	MinTLSVersion uint16

	// MaxIdleConns controls the maximum number of idle (keep-alive) connections.
	// Default: 100.
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections per host.
	// Default: 10.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is the maximum time an idle connection will remain idle.
	// Default: 90 seconds.
	IdleConnTimeout time.Duration

	// DialTimeout is the maximum time to wait for a connection to be established.
	// Default: 30 seconds.
	DialTimeout time.Duration

	// ResponseHeaderTimeout is the maximum time to wait for response headers.
	// Default: 0 (no timeout, uses overall Timeout).
	ResponseHeaderTimeout time.Duration
}

// DefaultHTTPClientConfig returns a secure default configuration.
func DefaultHTTPClientConfig() *HTTPClientConfig {
	return &HTTPClientConfig{
		Timeout:             30 * time.Second,
		MinTLSVersion:       tls.VersionTLS12,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         30 * time.Second,
	}
}

// NewHTTPClient creates an HTTP client with the specified configuration.
func NewHTTPClient(config *HTTPClientConfig) (*http.Client, error) {
	if config == nil {
		config = DefaultHTTPClientConfig()
	}

	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			MinVersion: config.MinTLSVersion,
		}
	}
	if tlsConfig.MinVersion == 0 && config.MinTLSVersion != 0 {
		tlsConfig.MinVersion = config.MinTLSVersion
	}

	dialer := &net.Dialer{
		Timeout:   config.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if config.ProxyURL != "" {
		proxyURL, err := url.Parse(config.ProxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}, nil
}

// NewSecureHTTPClient creates an HTTP client with TLS 1.2 minimum, standard
// timeouts, and connection pooling. Suitable for production use when
// downloading fonts or other assets from external hosts.
func NewSecureHTTPClient(timeout time.Duration) *http.Client {
	config := DefaultHTTPClientConfig()
	config.Timeout = timeout

	client, _ := NewHTTPClient(config)
	return client
}
