package handlers

import (
	"net/http"
	"strconv"

	"expectation-svc/cache"
	"expectation-svc/database"
	"expectation-svc/middleware"
	"expectation-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	store  *database.Store
	cache  *cache.StatsCache
	logger *zap.Logger
}

func NewPaymentHandler(store *database.Store, statsCache *cache.StatsCache, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{store: store, cache: statsCache, logger: logger}
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "ListPayments")
	defer span.End()

	var paid *bool
	if raw := c.Query("paid"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paid must be true or false"})
			return
		}
		paid = &v
	}

	payments, err := h.store.ListPayments(ctx, paid)
	if err != nil {
		respondError(c, h.logger, span, "Failed to list payments", err)
		return
	}

	span.SetAttributes(attribute.Int("payments.count", len(payments)))
	c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "GetPayment")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("payment.id", id.String()))

	payment, err := h.store.GetPayment(ctx, id)
	if err != nil {
		respondError(c, h.logger, span, "Failed to fetch payment", err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "CreatePayment")
	defer span.End()

	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidAmount(req.Value) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be between 0 and 9999999999999999.99"})
		return
	}

	payment, err := h.store.CreatePayment(ctx, req)
	if err != nil {
		respondError(c, h.logger, span, "Failed to create payment", err)
		return
	}
	h.cache.Invalidate(ctx)

	h.logger.Info("Payment created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("payment_id", payment.ID.String()),
		zap.String("identification_field", payment.IdentificationField),
	)
	c.JSON(http.StatusCreated, payment)
}

func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "UpdatePayment")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidAmount(req.Value) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be between 0 and 9999999999999999.99"})
		return
	}

	payment, err := h.store.UpdatePayment(ctx, id, req)
	if err != nil {
		respondError(c, h.logger, span, "Failed to update payment", err)
		return
	}
	h.cache.Invalidate(ctx)

	c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "DeletePayment")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.store.DeletePayment(ctx, id); err != nil {
		respondError(c, h.logger, span, "Failed to delete payment", err)
		return
	}
	h.cache.Invalidate(ctx)

	h.logger.Info("Payment deleted",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("payment_id", id.String()),
	)
	c.Status(http.StatusNoContent)
}
