package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/marcossouzacontrole-cpu/finquest/core/dispatch"
	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
)

// handleFunctionRoutes mounts the function dispatcher as the router's
// catch-all route, after all fixed routes.
func (b *Backend) handleFunctionRoutes() {
	b.router.PathPrefix("/").HandlerFunc(b.dispatchFunction)
}

// dispatchFunction resolves the last path segment against the function
// registry and invokes the handler. Handler panics are contained per
// request.
func (b *Backend) dispatchFunction(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	name := path[strings.LastIndex(path, "/")+1:]
	if name == "" || strings.HasPrefix(r.URL.Path, "/api/auth/") {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	h, ok := dispatch.Lookup(name)
	if !ok {
		writeError(w, http.StatusInternalServerError, "missing handler for function "+name)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.FromContext(r.Context()).Errorln("function panic:", rec)
			writeError(w, http.StatusInternalServerError, fmt.Sprint(rec))
		}
	}()
	h(w, r, b.runtime)
}
