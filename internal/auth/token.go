// Package auth turns bearer tokens issued by the identity service into
// callers. Tokens are HS256 JWTs carrying userId, email and role.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shopbook/backend/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify checks the signature and expiry and returns the caller the token
// was issued to. Unknown roles are treated as customers.
func (v *Verifier) Verify(token string) (domain.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Caller{}, ErrInvalidToken
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Caller{}, errors.Join(ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return domain.Caller{}, ErrInvalidToken
	}

	role := domain.RoleCustomer
	if domain.Role(claims.Role) == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	return domain.Caller{ID: claims.UserID, Email: claims.Email, Role: role}, nil
}

// Sign issues a token for caller valid for ttl. Used by bootstrap tooling
// and tests; the identity service signs production tokens.
func Sign(caller domain.Caller, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		UserID: caller.ID,
		Email:  caller.Email,
		Role:   string(caller.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
