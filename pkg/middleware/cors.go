package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// The storefront API is read-only, so the allowed methods and request
// headers are fixed.
const (
	corsAllowMethods  = "GET, HEAD, OPTIONS"
	corsAllowHeaders  = "Accept, Content-Type, " + CorrelationIDHeader
	corsDefaultMaxAge = 3600
)

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	// AllowedOrigins lists exact origins. An entry of "*" allows any origin.
	AllowedOrigins []string
	// ExposedHeaders are response headers readable by browser scripts.
	ExposedHeaders []string
	// MaxAge is the preflight cache lifetime in seconds. Zero means one hour.
	MaxAge int
}

type corsPolicy struct {
	anyOrigin bool
	origins   map[string]bool
	exposed   string
	maxAge    string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	p := corsPolicy{
		origins: make(map[string]bool, len(cfg.AllowedOrigins)),
		exposed: strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:  strconv.Itoa(corsDefaultMaxAge),
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
		}
		p.origins[o] = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (p corsPolicy) allowOrigin(origin string) string {
	switch {
	case p.anyOrigin:
		return "*"
	case origin != "" && p.origins[origin]:
		return origin
	default:
		return ""
	}
}

// CORS answers preflight requests and sets the Access-Control-* headers on
// responses to allowed origins.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	p := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !p.anyOrigin {
				h.Add("Vary", "Origin")
			}

			allowed := p.allowOrigin(r.Header.Get("Origin"))
			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if p.exposed != "" {
					h.Set("Access-Control-Expose-Headers", p.exposed)
				}
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			if allowed != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", p.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
