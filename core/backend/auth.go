package backend

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/lib/pq"

	"github.com/marcossouzacontrole-cpu/finquest/core/access"
	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
)

func (b *Backend) handleAuthRoutes() {
	auth := b.router.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", b.register).Methods(http.MethodPost)
	auth.HandleFunc("/login", b.login).Methods(http.MethodPost)
	auth.HandleFunc("/google/login", b.googleLogin).Methods(http.MethodGet)
	auth.HandleFunc("/google/callback", b.googleCallback).Methods(http.MethodGet)
	auth.HandleFunc("/me", b.me).Methods(http.MethodGet)

	// the web client fires analytics batches at the backend; acknowledge
	// and drop them
	b.router.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return strings.Contains(r.URL.Path, "/analytics/track/batch")
	}).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
}

func (b *Backend) writeTokenResponse(w http.ResponseWriter, identity access.Identity) {
	token, err := b.issuer.Issue(identity, time.Now().Add(b.tokenLifetime))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  identity,
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rlog := logger.FromContext(ctx)
	if err := b.db.EnsureConnected(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	var request credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil ||
		request.Email == "" || request.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	var userID string
	insertQuery := `INSERT INTO ` + b.db.Schema + `."User" (email, full_name) VALUES ($1, $2) RETURNING id`
	err = tx.QueryRowContext(ctx, insertQuery, request.Email, request.Name).Scan(&userID)
	if err == nil {
		credentialQuery := `INSERT INTO ` + b.db.Schema + `."UserCredential" (user_id, password_hash) VALUES ($1, $2)`
		_, err = tx.ExecContext(ctx, credentialQuery, userID, hashPassword(request.Password))
	}
	if err != nil {
		tx.Rollback()
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			rlog.WithField("code", pqErr.Code).Debugln("register failed:", pqErr.Message)
		} else {
			rlog.Debugln("register failed:", err)
		}
		writeError(w, http.StatusBadRequest, "User already exists or DB failure")
		return
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	b.writeTokenResponse(w, access.Identity{Email: request.Email, Name: request.Name, ID: userID})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := b.db.EnsureConnected(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	var request credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil ||
		request.Email == "" || request.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	loginQuery := `SELECT u.id, u.email, u.full_name, c.password_hash FROM ` +
		b.db.Schema + `."User" u JOIN ` + b.db.Schema + `."UserCredential" c ON u.id = c.user_id WHERE u.email = $1`
	var id, email, name, passwordHash string
	err := b.db.QueryRowContext(ctx, loginQuery, request.Email).Scan(&id, &email, &name, &passwordHash)
	if err != nil {
		if errors.Is(err, csql.ErrNoRows) {
			// same answer as a wrong password, an attacker learns nothing
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if passwordHash != hashPassword(request.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	b.writeTokenResponse(w, access.Identity{Email: email, Name: name, ID: id})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := access.BearerToken(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	payload, err := access.ParsePayload(tokenString)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (b *Backend) googleLogin(w http.ResponseWriter, r *http.Request) {
	if b.googleClientID == "" {
		writeError(w, http.StatusServiceUnavailable, "google login is not configured")
		return
	}
	query := url.Values{}
	query.Set("client_id", b.googleClientID)
	query.Set("redirect_uri", b.serverURL+"/api/auth/google/callback")
	query.Set("response_type", "code")
	query.Set("scope", "openid email profile")
	http.Redirect(w, r, "https://accounts.google.com/o/oauth2/v2/auth?"+query.Encode(),
		http.StatusFound)
}

func (b *Backend) googleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rlog := logger.FromContext(ctx)
	code := r.URL.Query().Get("code")
	if code == "" || b.googleClientID == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	response, err := http.PostForm("https://oauth2.googleapis.com/token", url.Values{
		"code":          {code},
		"client_id":     {b.googleClientID},
		"client_secret": {b.googleClientSecret},
		"redirect_uri":  {b.serverURL + "/api/auth/google/callback"},
		"grant_type":    {"authorization_code"},
	})
	if err != nil {
		rlog.Debugln("token exchange failed:", err)
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}
	defer response.Body.Close()
	var tokenResponse struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(response.Body).Decode(&tokenResponse); err != nil || tokenResponse.IDToken == "" {
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	// the id_token comes straight from the provider over TLS, no own
	// signature check needed
	payload, err := access.ParsePayload(tokenResponse.IDToken)
	if err != nil {
		writeError(w, http.StatusBadGateway, "invalid id token")
		return
	}
	email, _ := payload["email"].(string)
	if email == "" {
		writeError(w, http.StatusBadGateway, "invalid id token")
		return
	}
	name, _ := payload["name"].(string)
	picture, _ := payload["picture"].(string)

	if err := b.db.EnsureConnected(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	upsertQuery := `INSERT INTO ` + b.db.Schema + `."User" (email, full_name, avatar_image_url) VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, avatar_image_url = EXCLUDED.avatar_image_url
RETURNING id`
	var userID string
	if err := b.db.QueryRowContext(ctx, upsertQuery, email, name, picture).Scan(&userID); err != nil {
		rlog.Debugln("google upsert failed:", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	token, err := b.issuer.Issue(access.Identity{Email: email, Name: name, ID: userID},
		time.Now().Add(b.tokenLifetime))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	http.Redirect(w, r, b.appBaseURL+"/auth/callback?token="+url.QueryEscape(token),
		http.StatusFound)
}
