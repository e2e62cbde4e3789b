/*Package access provides the bearer token codec and the caller identity
derived from it.

A caller identity is resolved once per request from the Authorization
header and lives for the duration of that request. Tokens issued by this
backend are read back through ParseUnverified on the normal request path:
in this local-first deployment the backend trusts its own tokens at face
value. Parse is the verifying path and must be used for any token that
crossed a trust boundary.
*/
package access

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNoIdentity is the failure of every identity resolution: an absent,
// malformed, tampered or expired token all look the same to callers.
var ErrNoIdentity = errors.New("not authenticated")

// Identity is the caller identity carried by a bearer token.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	ID    string `json:"id,omitempty"`
}

// Claims is the bearer token payload. Exp is epoch milliseconds, matching
// what the web client stores.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	ID    string `json:"id,omitempty"`
	Exp   int64  `json:"exp,omitempty"`
}

// Valid implements jwt.Claims. Expiry is enforced here, which means only
// on the verified parse path; ParseUnverified reads the payload of an
// expired token just fine.
func (c *Claims) Valid() error {
	if c.Email == "" {
		return errors.New("token lacks email claim")
	}
	if c.Exp != 0 && time.Now().UnixMilli() > c.Exp {
		return errors.New("token is expired")
	}
	return nil
}

func (c *Claims) identity() Identity {
	return Identity{Email: c.Email, Name: c.Name, ID: c.ID}
}

// TokenIssuer creates and verifies HS256 signed bearer tokens bound to a
// shared secret.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates a token issuer for the given shared secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue creates a signed token carrying the identity claims and the
// expiry time.
func (t *TokenIssuer) Issue(identity Identity, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Email: identity.Email,
		Name:  identity.Name,
		ID:    identity.ID,
		Exp:   expiresAt.UnixMilli(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the token's signature and expiry and returns the
// identity. This is the path for tokens from untrusted origins.
func (t *TokenIssuer) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrNoIdentity
	}
	return claims.identity(), nil
}

// ParseUnverified decodes the identity claims without checking the
// signature. Use only for tokens this backend issued itself.
func ParseUnverified(tokenString string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return Identity{}, ErrNoIdentity
	}
	if claims.Email == "" {
		return Identity{}, ErrNoIdentity
	}
	return claims.identity(), nil
}

// ParsePayload decodes the full token payload without verification. The
// whoami route returns this verbatim, and the OAuth callback reads the
// provider's id_token through it.
func ParsePayload(tokenString string) (map[string]interface{}, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	bearer := r.Header.Get("Authorization")
	if len(bearer) == 0 || bearer == "null" {
		return "", false
	}
	if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
		return bearer[7:], true
	}
	return "", false
}

// IdentityFromRequest resolves the caller identity from the request's
// bearer token, or reports false when no usable token is present.
func IdentityFromRequest(r *http.Request) (Identity, bool) {
	tokenString, ok := BearerToken(r)
	if !ok {
		return Identity{}, false
	}
	identity, err := ParseUnverified(tokenString)
	if err != nil {
		return Identity{}, false
	}
	return identity, true
}
