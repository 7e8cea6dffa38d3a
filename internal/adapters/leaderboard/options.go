package leaderboard

import (
	"net/http"
	"time"
)

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to a copy of the
// client regardless of option order.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRequestsPerMinute throttles requests. Zero or less disables throttling.
func WithRequestsPerMinute(n float64) HTTPOption {
	return func(s *HTTPSource) {
		s.limiter = newLimiter(n)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSource) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// CacheOption configures a CachedSource.
type CacheOption func(*CachedSource)

// WithCacheTTL sets how long cached payloads stay valid.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(s *CachedSource) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCacheKey overrides the cache key.
func WithCacheKey(key string) CacheOption {
	return func(s *CachedSource) {
		if key != "" {
			s.key = key
		}
	}
}
