package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/qnabot/internal/infra/channelauth"
	"github.com/yanqian/qnabot/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server. A nil
// verifier leaves the messaging and insights endpoints unauthenticated.
func NewRouter(cfg *config.Config, handler *Handler, verifier channelauth.Verifier) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	if verifier != nil {
		api.Use(channelAuthMiddleware(verifier))
	}
	api.POST("/messages", handler.Messages)

	// insights expose raw user queries and share the channel credentials
	insights := api.Group("/v1/insights")
	{
		insights.GET("/trending", handler.Trending)
		insights.GET("/misses", handler.Misses)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
