package channelauth

import (
	"context"
	"time"
)

// Mode selects how inbound channel requests are authenticated.
type Mode string

const (
	ModeNone         Mode = "none"
	ModeBotFramework Mode = "botframework"
	ModeSecret       Mode = "secret"
)

// Claims is the verified identity of the calling channel.
type Claims struct {
	Subject    string
	Issuer     string
	Audience   []string
	ServiceURL string
	ExpiresAt  time.Time
}

// Verifier validates a bearer token sent by a channel.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Claims, error)
}
