package channelauth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/yanqian/qnabot/pkg/errors"
)

// SecretVerifier accepts HS256 tokens signed with a shared secret. It is meant
// for local channels such as the emulator.
type SecretVerifier struct {
	secret   []byte
	audience string
}

type secretClaims struct {
	ServiceURL string `json:"serviceurl,omitempty"`
	jwt.RegisteredClaims
}

// NewSecretVerifier builds a verifier. An empty audience disables the aud check.
func NewSecretVerifier(secret, audience string) *SecretVerifier {
	return &SecretVerifier{secret: []byte(secret), audience: strings.TrimSpace(audience)}
}

// Verify implements Verifier.
func (v *SecretVerifier) Verify(_ context.Context, rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	parsed, err := jwt.ParseWithClaims(rawToken, &secretClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, apperrors.Wrap("invalid_token", "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*secretClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap("invalid_token", "token invalid", nil)
	}
	out := Claims{
		Subject:    claims.Subject,
		Issuer:     claims.Issuer,
		Audience:   []string(claims.Audience),
		ServiceURL: claims.ServiceURL,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

var _ Verifier = (*SecretVerifier)(nil)
