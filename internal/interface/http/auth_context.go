package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/qnabot/internal/infra/channelauth"
)

const channelClaimsKey = "channel_claims"

func setClaims(c *gin.Context, claims channelauth.Claims) {
	c.Set(channelClaimsKey, claims)
}

func getClaims(c *gin.Context) (channelauth.Claims, bool) {
	value, ok := c.Get(channelClaimsKey)
	if !ok {
		return channelauth.Claims{}, false
	}
	claims, ok := value.(channelauth.Claims)
	return claims, ok
}
