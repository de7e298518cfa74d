package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flyte-gateway/internal/adapter/gin/handler"
	"flyte-gateway/internal/adapter/gin/middleware"
	"flyte-gateway/pkg/logger"
)

// Options tunes the engine.
type Options struct {
	ServiceName    string
	TrustedProxies []string
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	accountHandler *handler.AccountHandler,
	travelHandler *handler.TravelHandler,
	rateLimiter *middleware.RateLimiter,
	tokens middleware.TokenValidator,
	opts Options,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Strings("proxies", opts.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(logger.RequestID())
	router.Use(middleware.Logger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": opts.ServiceName,
		})
	})

	api := router.Group("/api")
	api.Use(rateLimiter.Handler())
	api.Use(middleware.Auth(tokens, log))
	{
		api.POST("/login", accountHandler.Login)
		api.POST("/signup", accountHandler.Signup)
		api.POST("/update-user", accountHandler.UpdateUser)
		api.GET("/users/:username", accountHandler.GetProfile)

		api.POST("/chat", travelHandler.Chat)
		api.GET("/check-payment", travelHandler.CheckPayment)
		api.GET("/payments/:charge_id", travelHandler.PaymentStatus)
		api.POST("/duffel-mode", travelHandler.SwitchMode)
		api.GET("/user-bookings", travelHandler.UserBookings)
		api.POST("/verify-access-code", travelHandler.VerifyAccessCode)
		api.POST("/join-waitlist", travelHandler.JoinWaitlist)
	}

	return router
}
