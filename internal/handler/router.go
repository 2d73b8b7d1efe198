package handler

import (
	authmw "github.com/EmilynnJ/ccodeseer/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires the gin engine: global middleware, then one route
// group per spec.md §6 resource. Auth gates every route below except
// the health check, GET /readers/online, and the webhook endpoint, which
// isn't bearer-authenticated at all — it verifies an HMAC signature over
// the raw request body instead (see Handler.IngestPaymentWebhook).
func SetupRouter(h *Handler, auth *authmw.Auth, limiter *authmw.RateLimiter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(limiter.Limit(authmw.CategoryGeneral))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	sessions := r.Group("/sessions", auth.Require())
	{
		sessions.POST("/request", limiter.Limit(authmw.CategorySession), h.RequestSession)
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/accept", h.AcceptSession)
		sessions.POST("/:id/decline", h.DeclineSession)
		sessions.POST("/:id/end", h.EndSession)
		sessions.POST("/:id/messages", limiter.Limit(authmw.CategoryMessages), h.SendMessage)
		sessions.GET("/:id/messages", h.ListMessages)
		sessions.POST("/:id/review", h.SubmitReview)
	}

	payments := r.Group("/payments", auth.Require(), limiter.Limit(authmw.CategoryPayment))
	{
		payments.POST("/add-funds", h.AddFunds)
		payments.POST("/reader/payout", h.RequestPayout)
	}

	readers := r.Group("/readers")
	{
		readers.GET("/online", h.ListOnlineReaders)
		readers.PATCH("/me/status", auth.Require(), h.SetReaderStatus)
	}

	notifications := r.Group("/notifications", auth.Require())
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("/:id/read", h.MarkNotificationRead)
	}

	r.POST("/webhooks/payments", h.IngestPaymentWebhook)

	return r
}
