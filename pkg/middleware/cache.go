package middleware

import "net/http"

// NoStore marks every response as non-cacheable. Catalog data is always
// revalidated against the origin, so neither browsers nor edge caches may
// keep a copy.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}
