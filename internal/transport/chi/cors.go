package chi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/cors"
)

const corsMaxAgeSec = 3600

var (
	corsMethods = []string{http.MethodPost, http.MethodOptions}
	corsHeaders = []string{"Content-Type"}
)

// CORSMiddleware applies the fixed search CORS policy for allowedOrigin ("*" or one origin).
// Browser preflights pass through to PreflightHandler so every OPTIONS response is identical.
func CORSMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:     []string{allowedOrigin},
		AllowedMethods:     corsMethods,
		AllowedHeaders:     corsHeaders,
		MaxAge:             corsMaxAgeSec,
		OptionsPassthrough: true,
	})
	return func(next http.Handler) http.Handler {
		return c.Handler(allowOrigin(allowedOrigin, next))
	}
}

// allowOrigin stamps the configured origin on responses to clients that sent no Origin header.
func allowOrigin(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Access-Control-Allow-Origin") == "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		next.ServeHTTP(w, r)
	})
}

// PreflightHandler answers OPTIONS on the search path with 204 and the static policy headers.
func PreflightHandler(allowedOrigin string) http.HandlerFunc {
	methods := "POST, OPTIONS"
	headers := corsHeaders[0]
	maxAge := strconv.Itoa(corsMaxAgeSec)
	return func(w http.ResponseWriter, _ *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", allowedOrigin)
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Max-Age", maxAge)
		w.WriteHeader(http.StatusNoContent)
	}
}
