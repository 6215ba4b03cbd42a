package client

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewCachingHTTPClient creates an HTTP client with RFC 7234 response caching.
// It is only used for unauthenticated endpoints such as /health; responses
// are cached only when the server sends cache headers.
func NewCachingHTTPClient(cacheDir string, timeout time.Duration) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		// Use disk-based cache for persistence across invocations
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = otelhttp.NewTransport(http.DefaultTransport)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
