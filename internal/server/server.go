// Package server exposes the bot's HTTP API: health, login QR, the send endpoint used by the
// GNDC website, and a few operator endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
)

// NewRouter builds the gin engine with middleware and every route of h.
// tokenHash protects the send and operator routes; empty disables the check.
func NewRouter(ctx context.Context, h *Handler, tokenHash string, logger *slog.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	if err := router.SetTrustedProxies(constants.ServerConfig.TrustedProxies); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(ctx, logger, "/health", "/metrics"))
	router.Use(cors.New(newCORSConfig()))
	router.Use(SecurityHeadersMiddleware())
	router.Use(newGzipMiddleware())

	router.GET("/health", h.Health)
	router.GET("/qr", h.QRCode)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := router.Group("/")
	api.Use(TokenAuthMiddleware(tokenHash))
	api.POST("/messages/text", h.SendText)
	api.GET("/groups/me", h.Groups)
	api.GET("/status", h.Status)
	api.GET("/campaigns", h.Campaigns)
	api.POST("/campaigns/:job/run", h.RunCampaign)

	if tokenHash != "" {
		logger.Info("API_TOKEN_AUTH_ENABLED")
	} else {
		logger.Warn("API_TOKEN_AUTH_DISABLED", slog.String("reason", "API_TOKEN_HASH not set"))
	}
	return router, nil
}

func newCORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = constants.CORSConfig.AllowOrigins
	corsConfig.AllowMethods = constants.CORSConfig.AllowMethods
	corsConfig.AllowHeaders = constants.CORSConfig.AllowHeaders
	return corsConfig
}

func newGzipMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithCustomShouldCompressFn(func(c *gin.Context) bool {
		// PNG is already compressed; health stays tiny
		switch c.Request.URL.Path {
		case "/qr", "/health":
			return false
		}
		return true
	}))
}

// NewHTTPServer wraps router for HTTP/1.1 and h2c with the configured timeouts.
func NewHTTPServer(port int, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           WrapH2C(router),
		ReadHeaderTimeout: constants.ServerTimeout.ReadHeader,
		ReadTimeout:       constants.ServerTimeout.Read,
		WriteTimeout:      constants.ServerTimeout.Write,
		IdleTimeout:       constants.ServerTimeout.Idle,
		MaxHeaderBytes:    constants.ServerTimeout.MaxHeaderBytes,
	}
}
