package channelauth

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	apperrors "github.com/yanqian/qnabot/pkg/errors"
)

const (
	// BotFrameworkIssuer is the issuer of tokens sent by the Bot Connector service.
	BotFrameworkIssuer = "https://api.botframework.com"
	// BotFrameworkJWKSURL serves the Bot Connector signing keys.
	BotFrameworkJWKSURL = "https://login.botframework.com/v1/.well-known/keys"
)

// BotFrameworkVerifier checks RS256 channel tokens against the Bot Framework key set.
type BotFrameworkVerifier struct {
	verifier *oidc.IDTokenVerifier
}

type connectorClaims struct {
	ServiceURL string `json:"serviceurl"`
}

// NewBotFrameworkVerifier builds a verifier for tokens addressed to appID. The
// context bounds the lifetime of background key refreshes.
func NewBotFrameworkVerifier(ctx context.Context, appID, issuer, jwksURL string) *BotFrameworkVerifier {
	if strings.TrimSpace(issuer) == "" {
		issuer = BotFrameworkIssuer
	}
	if strings.TrimSpace(jwksURL) == "" {
		jwksURL = BotFrameworkJWKSURL
	}
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &BotFrameworkVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: appID}),
	}
}

// Verify implements Verifier.
func (v *BotFrameworkVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Claims{}, apperrors.Wrap("invalid_token", "channel token verification failed", err)
	}
	var extra connectorClaims
	if err := token.Claims(&extra); err != nil {
		return Claims{}, apperrors.Wrap("invalid_token", "failed to parse channel token claims", err)
	}
	return Claims{
		Subject:    token.Subject,
		Issuer:     token.Issuer,
		Audience:   token.Audience,
		ServiceURL: extra.ServiceURL,
		ExpiresAt:  token.Expiry,
	}, nil
}

var _ Verifier = (*BotFrameworkVerifier)(nil)
