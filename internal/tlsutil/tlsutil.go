// Package tlsutil provides the hardened HTTP transport shared by all
// outbound gateway clients.
// 安全加固：TLS 1.2+，仅 AEAD 密码套件。
package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// TransportOption customizes SecureTransport.
type TransportOption func(*http.Transport)

// WithProxy routes requests through the proxy chosen by fn. A nil fn means
// direct connections.
func WithProxy(fn func(*http.Request) (*url.URL, error)) TransportOption {
	return func(t *http.Transport) { t.Proxy = fn }
}

// WithMaxIdleConnsPerHost overrides the per-host idle pool size.
func WithMaxIdleConnsPerHost(n int) TransportOption {
	return func(t *http.Transport) { t.MaxIdleConnsPerHost = n }
}

// SecureTransport returns an http.Transport with TLS hardening. Without
// options it never uses a proxy.
func SecureTransport(opts ...TransportOption) *http.Transport {
	t := &http.Transport{
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SecureHTTPClient returns an http.Client over rt, or over a fresh
// SecureTransport when rt is nil.
func SecureHTTPClient(timeout time.Duration, rt http.RoundTripper) *http.Client {
	if rt == nil {
		rt = SecureTransport()
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}
