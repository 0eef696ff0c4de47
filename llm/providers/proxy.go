package providers

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// ProxyFunc resolves the proxy for an outgoing request.
type ProxyFunc func(*http.Request) (*url.URL, error)

// ProxyFromConfig builds a ProxyFunc from an explicit httpproxy.Config.
// Requests to hosts matched by NoProxy go direct.
func ProxyFromConfig(cfg *httpproxy.Config) ProxyFunc {
	resolve := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return resolve(req.URL)
	}
}

// ProxyFromEnvironment reads HTTPS_PROXY, HTTP_PROXY and NO_PROXY (and the
// lowercase variants) once, at call time.
func ProxyFromEnvironment() ProxyFunc {
	return ProxyFromConfig(httpproxy.FromEnvironment())
}
