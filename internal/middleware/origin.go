package middleware

import (
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
)

// SameOrigin rejects state-changing requests sent from another site. Requests
// without Origin and Referer (curl, older browsers) are let through.
func SameOrigin(extraAllowedOrigins ...string) func(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{}
	for _, o := range extraAllowedOrigins {
		allowedOrigins[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				if ref, err := url.Parse(r.Header.Get("Referer")); err == nil && ref.Host != "" {
					origin = ref.Scheme + "://" + ref.Host
				}
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			originURL, err := url.Parse(origin)
			if err == nil && (originURL.Host == r.Host || allowedOrigins[origin]) {
				next.ServeHTTP(w, r)
				return
			}

			log.Warnf("origin check: [%s] not allowed for %s %s", origin, r.Method, r.URL.Path)
			http.Error(w, "cross-site request rejected", http.StatusForbidden)
		})
	}
}
