package handler

import (
	"encoding/json"
	"strconv"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"
	"github.com/EmilynnJ/ccodeseer/internal/middleware"
	"github.com/EmilynnJ/ccodeseer/internal/service"
	"github.com/EmilynnJ/ccodeseer/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler aggregates every service dependency the HTTP surface needs,
// the same "one struct, all services" shape as the teacher's Handler.
type Handler struct {
	sessions      *service.SessionService
	payments      *service.PaymentService
	presence      *service.PresenceService
	reviews       *service.ReviewService
	messages      *service.MessageService
	notifications *service.NotificationService
}

func NewHandler(
	sessions *service.SessionService,
	payments *service.PaymentService,
	presence *service.PresenceService,
	reviews *service.ReviewService,
	messages *service.MessageService,
	notifications *service.NotificationService,
) *Handler {
	return &Handler{
		sessions:      sessions,
		payments:      payments,
		presence:      presence,
		reviews:       reviews,
		messages:      messages,
		notifications: notifications,
	}
}

func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// ============================================================
// Sessions
// ============================================================

type requestSessionRequest struct {
	ReaderID string `json:"reader_id" binding:"required"`
	Type     string `json:"type" binding:"required"`
}

// POST /sessions/request
func (h *Handler) RequestSession(c *gin.Context) {
	var req requestSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	session, err := h.sessions.Request(c.Request.Context(), middleware.SubjectID(c), req.ReaderID, req.Type)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, session)
}

// POST /sessions/:id/accept
func (h *Handler) AcceptSession(c *gin.Context) {
	result, err := h.sessions.Accept(c.Request.Context(), middleware.SubjectID(c), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"session": result.Session,
		"rtc_token": gin.H{
			"token":      result.RTCToken.Token,
			"uid":        result.RTCToken.UID,
			"channel":    result.RTCToken.Channel,
			"expires_at": result.RTCToken.ExpiresAt,
		},
		"pubsub_token": gin.H{
			"token":      result.PubSubToken.Token,
			"expires_at": result.PubSubToken.ExpiresAt,
		},
	})
}

type declineSessionRequest struct {
	Reason string `json:"reason"`
}

// POST /sessions/:id/decline
func (h *Handler) DeclineSession(c *gin.Context) {
	var req declineSessionRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.sessions.Decline(c.Request.Context(), middleware.SubjectID(c), c.Param("id"), req.Reason); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"status": "cancelled"})
}

// POST /sessions/:id/end
func (h *Handler) EndSession(c *gin.Context) {
	session, err := h.sessions.End(c.Request.Context(), middleware.SubjectID(c), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, session)
}

// GET /sessions/:id
//
// If the caller is a party to an active session, also mints a fresh
// RTC/pub-sub token bundle so a reloaded client can rejoin the
// realtime channel without re-running accept.
func (h *Handler) GetSession(c *gin.Context) {
	result, err := h.sessions.GetWithReconnectToken(c.Request.Context(), middleware.SubjectID(c), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}

	if result.RTCToken == nil {
		response.OK(c, gin.H{"session": result.Session})
		return
	}
	response.OK(c, gin.H{
		"session": result.Session,
		"rtc_token": gin.H{
			"token":      result.RTCToken.Token,
			"uid":        result.RTCToken.UID,
			"channel":    result.RTCToken.Channel,
			"expires_at": result.RTCToken.ExpiresAt,
		},
		"pubsub_token": gin.H{
			"token":      result.PubSubToken.Token,
			"expires_at": result.PubSubToken.ExpiresAt,
		},
	})
}

// GET /sessions
func (h *Handler) ListSessions(c *gin.Context) {
	page, pageSize := pageParams(c)
	sessions, total, err := h.sessions.ListByUserID(c.Request.Context(), middleware.SubjectID(c), page, pageSize)
	if err != nil {
		response.Fail(c, apperr.Wrap(apperr.Transient, "list sessions", err))
		return
	}
	response.OK(c, gin.H{"sessions": sessions, "total": total, "page": page, "page_size": pageSize})
}

type sendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// POST /sessions/:id/messages
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), middleware.SubjectID(c), c.Param("id"), req.Body)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, msg)
}

// GET /sessions/:id/messages
func (h *Handler) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	msgs, err := h.messages.ListBySessionID(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Fail(c, apperr.Wrap(apperr.Transient, "list messages", err))
		return
	}
	response.OK(c, msgs)
}

type submitReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// POST /sessions/:id/review
func (h *Handler) SubmitReview(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	review, err := h.reviews.SubmitReview(c.Request.Context(), middleware.SubjectID(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, review)
}

// ============================================================
// Payments
// ============================================================

type addFundsRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

// POST /payments/add-funds
func (h *Handler) AddFunds(c *gin.Context) {
	var req addFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	intentID, clientSecret, err := h.payments.InitDeposit(c.Request.Context(), middleware.SubjectID(c), req.AmountCents)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"intent_id": intentID, "client_secret": clientSecret})
}

type payoutRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0"`
}

// POST /payments/reader/payout
func (h *Handler) RequestPayout(c *gin.Context) {
	var req payoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	payout, err := h.payments.ManualPayout(c.Request.Context(), middleware.SubjectID(c), req.AmountCents)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, payout)
}

type webhookRequest struct {
	UserID          string `json:"user_id" binding:"required"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	AmountCents     int64  `json:"amount_cents" binding:"required,gt=0"`
	Succeeded       bool   `json:"succeeded"`
}

// POST /webhooks/payments
//
// Unauthenticated by gin middleware — authenticity comes from the
// HMAC signature instead, the same way the external processor proves
// a delivery is genuinely its own (spec.md §6: "signature fail → 400").
func (h *Handler) IngestPaymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "failed to read webhook body", err))
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if err := h.payments.VerifyWebhookSignature(body, signature); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "invalid webhook signature", err))
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "invalid webhook payload", err))
		return
	}
	if req.UserID == "" || req.PaymentIntentID == "" || req.AmountCents <= 0 {
		response.Fail(c, apperr.New(apperr.Validation, "invalid webhook payload"))
		return
	}

	if err := h.payments.IngestWebhook(c.Request.Context(), req.UserID, req.PaymentIntentID, req.AmountCents, req.Succeeded); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"received": true})
}

// ============================================================
// Readers / presence
// ============================================================

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /readers/me/status
func (h *Handler) SetReaderStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return
	}

	if err := h.presence.SetStatus(c.Request.Context(), middleware.SubjectID(c), req.Status); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"status": req.Status})
}

// GET /readers/online
func (h *Handler) ListOnlineReaders(c *gin.Context) {
	readers, err := h.presence.ListOnline(c.Request.Context())
	if err != nil {
		response.Fail(c, apperr.Wrap(apperr.Transient, "list online readers", err))
		return
	}
	response.OK(c, readers)
}

// ============================================================
// Notifications
// ============================================================

// GET /notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	page, pageSize := pageParams(c)
	notes, total, err := h.notifications.ListByUserID(c.Request.Context(), middleware.SubjectID(c), page, pageSize)
	if err != nil {
		response.Fail(c, apperr.Wrap(apperr.Transient, "list notifications", err))
		return
	}
	response.OK(c, gin.H{"notifications": notes, "total": total, "page": page, "page_size": pageSize})
}

// POST /notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, apperr.New(apperr.Validation, "invalid notification id"))
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id, middleware.SubjectID(c)); err != nil {
		response.Fail(c, apperr.Wrap(apperr.Transient, "mark notification read", err))
		return
	}
	response.OK(c, gin.H{"read": true})
}
