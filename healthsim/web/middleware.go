package web

import (
	"crypto/subtle"
	"net/http"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/responseutils"
	"github.com/mark64oswald/healthsim-core/healthsim/servicemux"
)

func ConnectionClose(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		next.ServeHTTP(w, r)
	})
}

func SecurityHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if servicemux.IsHTTPS(r) {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			w.Header().Set("Cache-Control", "no-cache; no-store; must-revalidate; max-age=0")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIKey rejects requests whose X-Api-Key header does not match
// the configured key.
func RequireAPIKey(next http.Handler) http.Handler {
	rw := responseutils.NewResponseWriter()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := conf.GetEnv("HEALTHSIM_API_KEY")
		if expected == "" {
			expected = constants.TestAPIKey
		}

		supplied := r.Header.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) != 1 {
			rw.Exception(r.Context(), w, http.StatusUnauthorized, responseutils.Security, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
