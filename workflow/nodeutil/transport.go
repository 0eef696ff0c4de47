package nodeutil

import (
	"net/http"
	"sync"

	"github.com/BaSui01/lmgateway/internal/tlsutil"
	"github.com/BaSui01/lmgateway/llm/providers"
)

var (
	proxyOnce      sync.Once
	proxyTransport http.RoundTripper
)

// HTTPProxyTransport returns the process-wide transport used by model
// clients. Proxy settings are read from HTTPS_PROXY, HTTP_PROXY and
// NO_PROXY on first use.
func HTTPProxyTransport() http.RoundTripper {
	proxyOnce.Do(func() {
		proxyTransport = tlsutil.SecureTransport(
			tlsutil.WithProxy(providers.ProxyFromEnvironment()),
		)
	})
	return proxyTransport
}
