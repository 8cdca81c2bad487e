// internal/auth/jwt.go
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/bluff/internal/models"
)

var (
	ErrMissingToken = errors.New("missing auth token")
	ErrInvalidToken = errors.New("invalid auth token")
)

// Claims carries the player identity inside an HS256 token.
type Claims struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier returns a verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

// Issue signs a token for id that expires after ttl.
func (v *Verifier) Issue(id models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: id.Username,
		Avatar:   id.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the identity it names.
func (v *Verifier) Verify(token string) (models.Identity, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Username) == "" {
		return models.Identity{}, fmt.Errorf("%w: no username claim", ErrInvalidToken)
	}
	return models.Identity{Username: claims.Username, Avatar: claims.Avatar}, nil
}

// IdentityFromRequest verifies the token carried by r, either in the "token"
// query parameter (browsers cannot set headers on a websocket upgrade) or as
// an Authorization bearer token.
func (v *Verifier) IdentityFromRequest(r *http.Request) (models.Identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	if token == "" {
		return models.Identity{}, ErrMissingToken
	}
	return v.Verify(token)
}
