package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"faculty-availability-backend/config"
	"faculty-availability-backend/internal/auth"
	"faculty-availability-backend/internal/availability"
	"faculty-availability-backend/internal/hub"
	"faculty-availability-backend/internal/metrics"
	"faculty-availability-backend/internal/mw"
	"faculty-availability-backend/internal/qr"
	"faculty-availability-backend/internal/store"
)

// Deps are the components the HTTP surface is built from. Metrics and
// WebPush are optional.
type Deps struct {
	Config      *config.Config
	Store       store.Store
	Service     *availability.Service
	Hub         *hub.Hub
	Credentials *auth.Credentials
	QR          qr.Encoder
	Metrics     *metrics.Metrics
	WebPush     *webpush.Options
}

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestID(), gin.Logger(), gin.Recovery())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	handler := NewHandler(d)

	rateLimiter := mw.RateLimiter(rate.Limit(d.Config.Server.RateLimitPerSec), d.Config.Server.RateLimitBurst)

	responses := mw.NewResponseCache(time.Duration(d.Config.Server.CacheTTLSeconds) * time.Second)
	caching := responses.Handler()

	requireFaculty := mw.RequireFaculty(d.Credentials)

	r.GET("/healthz", handler.Healthz)
	r.GET("/ws", handler.ServeWS)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/faculty", handler.ListFaculty)
		api.GET("/faculty/:id", handler.GetFaculty)
		api.GET("/faculty/:id/history", handler.GetHistory)
		api.POST("/faculty/register", handler.Register)
		api.POST("/faculty/login", handler.Login)
		api.POST("/faculty/:id/status", requireFaculty, handler.UpdateStatus)

		api.GET("/status-codes", caching, handler.GetStatusCodes)
		// QR targets depend on the request host; the encoder memoizes by URL.
		api.GET("/qr/:id", handler.GetQR)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
