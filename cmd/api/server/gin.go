package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"flyte-gateway/cmd/api/di"
	ginrouter "flyte-gateway/internal/adapter/gin/router"
)

// SetupGinServer creates and configures the Gin REST API server.
// Chat turns wait on flight searches, so the write timeout follows the
// backend chat timeout.
func SetupGinServer(c *di.Container, ginAddr string, l *zap.Logger) *http.Server {
	router := ginrouter.SetupRouter(
		c.AccountHandler,
		c.TravelHandler,
		c.RateLimiter,
		c.Tokens,
		ginrouter.Options{
			ServiceName:    c.Config.Logger.ServiceName,
			TrustedProxies: c.Config.App.TrustedProxies,
		},
		l,
	)

	writeTimeout := time.Duration(c.Config.Backend.ChatTimeoutSeconds)*time.Second + 10*time.Second

	l.Info("Gin REST API configured",
		zap.String("address", ginAddr),
		zap.Duration("write_timeout", writeTimeout),
	)

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}
