package middleware

import (
	"io"
	"net/http"
)

// DefaultMaxBodyBytes is plenty for any workout or body stat form.
const DefaultMaxBodyBytes = 1 << 20

// LimitAndDrainRequest caps the request body size, then drains and closes it once the handler is done.
func LimitAndDrainRequest(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.Copy(io.Discard, r.Body)
				_ = r.Body.Close()
			}
		})
	}
}
