package backend

import (
	"net/http"

	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
)

// handleCORS adds the cross origin headers to every response and answers
// preflight requests directly.
func (b *Backend) handleCORS() {
	b.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key")
			if r.Method == http.MethodOptions {
				logger.FromContext(r.Context()).Debugln("preflight:", r.URL.Path)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}
