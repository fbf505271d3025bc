package verifier

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	identitydomain "github.com/smallbiznis/kograph/internal/identity/domain"
)

const leeway = 30 * time.Second

var errMissingSecret = errors.New("identity jwt secret is not configured")

// JWTVerifier checks HS256 access tokens issued by the identity provider and
// yields their subject.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
	clock    clock.Clock
}

func NewJWTVerifier(cfg config.Config, clk clock.Clock) identitydomain.Verifier {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &JWTVerifier{
		secret:   []byte(cfg.Identity.JWTSecret),
		issuer:   cfg.Identity.Issuer,
		audience: cfg.Identity.Audience,
		clock:    clk,
	}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", identitydomain.ErrUnauthorized
	}
	if len(v.secret) == 0 {
		return "", errMissingSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(v.clock.Now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", identitydomain.ErrUnauthorized
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", identitydomain.ErrUnauthorized
	}
	return subject, nil
}
