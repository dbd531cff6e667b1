package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/riteshkumar/core-ledger/internal/errors"
)

// Identity is the resolved caller of an operation. The ledger trusts it as-is.
type Identity struct {
	UserID int64
	Role   Role
}

// Authorizer resolves an opaque trust token into an Identity.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (Identity, error)
}

// JWTAuthorizer verifies HS256 tokens issued by the auth service. Tokens carry
// user_id and role claims alongside the standard sub/exp/iat.
type JWTAuthorizer struct {
	secret []byte
	leeway time.Duration
}

func NewJWTAuthorizer(secret string) *JWTAuthorizer {
	return &JWTAuthorizer{secret: []byte(secret), leeway: 30 * time.Second}
}

func (a *JWTAuthorizer) Authorize(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, errors.ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	)
	claims := jwt.MapClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, errors.ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return Identity{}, fmt.Errorf("%w: user_id claim missing", errors.ErrInvalidToken)
	}
	role, _ := claims["role"].(string)
	if !Role(role).Valid() {
		return Identity{}, fmt.Errorf("%w: unknown role %q", errors.ErrInvalidToken, role)
	}

	return Identity{UserID: int64(userID), Role: Role(role)}, nil
}

// Sign issues a token for id. Token issuance belongs to the auth service; this
// exists for local tooling and tests.
func (a *JWTAuthorizer) Sign(id Identity, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     subject,
		"user_id": id.UserID,
		"role":    string(id.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

type contextKey string

const identityContextKey contextKey = "ledgerIdentity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}
