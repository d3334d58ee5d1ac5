/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/agrion/agrion/config"
	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"
)

// SecretKeyHeader carries the operator secret on every request when the server runs secure.
const SecretKeyHeader = "X-Agrion-Key"

const defaultLimiterTTL = 3 * time.Hour

func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

// newLimiter builds a per-client limiter from the rate limit section, or nil when limiting is off.
func newLimiter(rl config.RateLimitConfig) *limiter.Limiter {
	if rl.RequestsPerSecond == nil || rl.Burst == nil {
		return nil
	}

	ttl := defaultLimiterTTL
	if rl.CleanupIntervalSec != nil && *rl.CleanupIntervalSec > 0 {
		ttl = time.Duration(*rl.CleanupIntervalSec) * time.Second
	}

	lmt := tollbooth.NewLimiter(*rl.RequestsPerSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: ttl})
	lmt.SetBurst(*rl.Burst)
	lmt.SetMessage("rate limit exceeded, retry shortly")
	return lmt
}

// RateLimitMiddleware limits requests per client IP. It is a pass-through when no limit is configured.
func RateLimitMiddleware(conf *config.Configuration) gin.HandlerFunc {
	lmt := newLimiter(conf.RateLimit)
	if lmt == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if httpError := tollbooth.LimitByRequest(lmt, c.Writer, c.Request); httpError != nil {
			abortWith(c, httpError.StatusCode, "RATE_LIMITED", httpError.Message)
			return
		}
		c.Next()
	}
}

// SecretKeyAuthMiddleware rejects requests whose SecretKeyHeader does not match secretKey.
// Routes listed in open (matched on the registered path) skip the check.
func SecretKeyAuthMiddleware(secretKey string, open ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(open))
	for _, path := range open {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.FullPath()]; ok {
			c.Next()
			return
		}
		if secretKey == "" {
			abortWith(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "secret key is not configured")
			return
		}

		clientSecret := c.GetHeader(SecretKeyHeader)
		switch {
		case clientSecret == "":
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing secret key")
		case subtle.ConstantTimeCompare([]byte(secretKey), []byte(clientSecret)) != 1:
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid secret key")
		default:
			c.Next()
		}
	}
}
