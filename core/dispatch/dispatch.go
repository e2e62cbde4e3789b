/*Package dispatch maps function names to their HTTP handlers. Backend
functions register themselves at init time under the name the web client
calls them by; the router resolves the last path segment of a request
against this registry.
*/
package dispatch

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
	"github.com/marcossouzacontrole-cpu/finquest/core/schema"
	"github.com/marcossouzacontrole-cpu/finquest/core/sdk"
)

// Runtime carries the shared backend state handed to every function
// invocation.
type Runtime struct {
	DB        *csql.DB
	Validator *schema.Validator
}

// ClientFromRequest builds the entity store scoped to the request's
// caller.
func (rt *Runtime) ClientFromRequest(r *http.Request) *sdk.Client {
	client := sdk.NewClientFromRequest(rt.DB, r)
	if rt.Validator != nil {
		client = client.WithSchemaValidation(rt.Validator)
	}
	return client
}

// Handler is a registered backend function.
type Handler func(w http.ResponseWriter, r *http.Request, rt *Runtime)

var (
	mutex    sync.RWMutex
	handlers = map[string]Handler{}
)

// Register adds a function under its public name. Registering the same
// name twice panics.
func Register(name string, h Handler) {
	mutex.Lock()
	defer mutex.Unlock()
	if _, ok := handlers[name]; ok {
		panic(fmt.Sprintf("function %s registered twice", name))
	}
	handlers[name] = h
}

// Lookup resolves a function by name.
func Lookup(name string) (Handler, bool) {
	mutex.RLock()
	defer mutex.RUnlock()
	h, ok := handlers[name]
	return h, ok
}

// Names returns the registered function names sorted alphabetically.
func Names() []string {
	mutex.RLock()
	defer mutex.RUnlock()
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
