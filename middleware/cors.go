package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS values for the public intake routes. Any origin may embed the form.
const (
	AllowedOrigin  = "*"
	AllowedMethods = "GET, HEAD, POST, OPTIONS"
	AllowedHeaders = "Content-Type, Accept, Origin"
)

// PublicCORS sets permissive CORS headers on every response before the
// handler runs, so error and panic responses carry them too. Pre-flight
// requests get their Access-Control-Allow-Headers from PublicPreflight,
// which echoes whatever the browser asked for.
func PublicCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", AllowedOrigin)
		h.Set("Access-Control-Allow-Methods", AllowedMethods)
		if r.Method != http.MethodOptions {
			h.Set("Access-Control-Allow-Headers", AllowedHeaders)
		}
		next.ServeHTTP(w, r)
	})
}

// PublicPreflight answers OPTIONS pre-flight requests for the public routes
func PublicPreflight(maxAge int) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         maxAge,
	})
}
