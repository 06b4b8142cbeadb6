package gateway

import (
	"math"
	"net/http"
	"strconv"

	"github.com/estore-auth/internal/transport/http/respond"
	"github.com/sirupsen/logrus"
)

// rateLimit applies the sliding-window quota per client key. Limiter
// failures let the request through.
func (g *gateway) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := g.ips.Key(r)
		limit := g.limitFor(r)

		d, err := g.limiter.Allow(r.Context(), key, limit, g.window)
		if err != nil {
			g.log.WithError(err).WithFields(logrus.Fields{
				"client": key,
				"path":   r.URL.Path,
			}).Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		now := g.now()
		resetIn := int64(math.Ceil(d.RetryAfter(now).Seconds()))
		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("RateLimit-Reset", strconv.FormatInt(resetIn, 10))
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			h.Set("Retry-After", strconv.FormatInt(resetIn, 10))
			respond.JSON(w, http.StatusTooManyRequests, ErrorBody{Error: msgTooManyRequests})
			return
		}
		next.ServeHTTP(w, r)
	})
}
