/*Package backend assembles the HTTP surface of the application: request
identification, CORS, the authentication routes and the generic function
dispatcher, all mounted on a gorilla mux router over a Postgres database.
*/
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/marcossouzacontrole-cpu/finquest/core/access"
	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
	"github.com/marcossouzacontrole-cpu/finquest/core/dispatch"
	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
	"github.com/marcossouzacontrole-cpu/finquest/core/schema"
)

// Builder is a builder to create a backend.
type Builder struct {
	// DB is the postgres database. Mandatory.
	DB *csql.DB
	// Router is the mux router. Mandatory.
	Router *mux.Router
	// TokenSecret signs and verifies bearer tokens. Mandatory.
	TokenSecret string
	// TokenLifetime is the validity of issued tokens, 24h by default.
	TokenLifetime time.Duration
	// GoogleClientID and GoogleClientSecret enable the Google login
	// routes. Optional.
	GoogleClientID     string
	GoogleClientSecret string
	// AppBaseURL is where the web client lives, for OAuth redirects.
	AppBaseURL string
	// ServerURL is this backend's public address, for OAuth redirects.
	ServerURL string
	// SchemaValidator validates entity objects before writes. Optional.
	SchemaValidator *schema.Validator
	// If UpdateSchema is true, the backend creates its authentication
	// tables at startup.
	UpdateSchema bool
}

// Backend is the generic application backend.
type Backend struct {
	db            *csql.DB
	router        *mux.Router
	issuer        *access.TokenIssuer
	tokenLifetime time.Duration

	googleClientID     string
	googleClientSecret string
	appBaseURL         string
	serverURL          string

	runtime *dispatch.Runtime
}

// New realizes the backend from the builder and mounts all routes.
func New(bb *Builder) *Backend {
	if bb.DB == nil {
		panic("DB is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}
	if bb.TokenSecret == "" {
		panic("TokenSecret is missing")
	}
	tokenLifetime := bb.TokenLifetime
	if tokenLifetime == 0 {
		tokenLifetime = 24 * time.Hour
	}

	b := &Backend{
		db:                 bb.DB,
		router:             bb.Router,
		issuer:             access.NewTokenIssuer(bb.TokenSecret),
		tokenLifetime:      tokenLifetime,
		googleClientID:     bb.GoogleClientID,
		googleClientSecret: bb.GoogleClientSecret,
		appBaseURL:         bb.AppBaseURL,
		serverURL:          bb.ServerURL,
		runtime: &dispatch.Runtime{
			DB:        bb.DB,
			Validator: bb.SchemaValidator,
		},
	}

	if bb.UpdateSchema {
		if err := b.updateSchema(context.Background()); err != nil {
			panic(err)
		}
	}

	logger.AddRequestID(b.router)
	b.handleCORS()
	b.handleIdentity()
	b.handleAuthRoutes()
	b.handleFunctionRoutes()
	return b
}

// updateSchema creates the account tables if they do not exist yet.
func (b *Backend) updateSchema(ctx context.Context) error {
	if err := b.db.EnsureConnected(ctx); err != nil {
		return err
	}
	createQuery := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s."User" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  email varchar NOT NULL UNIQUE,
  full_name varchar NOT NULL DEFAULT '',
  avatar_image_url varchar NOT NULL DEFAULT '',
  created_at timestamp NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS %[1]s."UserCredential" (
  user_id uuid PRIMARY KEY REFERENCES %[1]s."User"(id) ON DELETE CASCADE,
  password_hash varchar NOT NULL
);
`, b.db.Schema)
	_, err := b.db.ExecContext(ctx, createQuery)
	return err
}

// handleIdentity resolves the caller identity once per request and makes
// it available through the context, including on the request logger.
func (b *Backend) handleIdentity() {
	b.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, ok := access.IdentityFromRequest(r); ok {
				ctx := access.ContextWithIdentity(r.Context(), identity)
				ctx, _ = logger.ContextWithLoggerIdentity(ctx, identity.Email)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	})
}
