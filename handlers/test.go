package handlers

import (
	"context"
	"net/http"
	"time"

	"expectation-svc/database"
	"expectation-svc/middleware"
	"expectation-svc/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type PaymentPublisher interface {
	Publish(ctx context.Context, msg models.PaymentMessage) error
}

type PaymentAnalyzer interface {
	Analyze(ctx context.Context, payment models.Payment) (models.Expectation, error)
}

// TestHandler exposes operator endpoints that drive the pipeline by hand.
type TestHandler struct {
	store     *database.Store
	publisher PaymentPublisher
	engine    PaymentAnalyzer
	logger    *zap.Logger
}

func NewTestHandler(store *database.Store, publisher PaymentPublisher, engine PaymentAnalyzer, logger *zap.Logger) *TestHandler {
	return &TestHandler{store: store, publisher: publisher, engine: engine, logger: logger}
}

type AnalyzeRequest struct {
	BeneficiaryName string          `json:"beneficiary_name" binding:"required,max=200"`
	Value           decimal.Decimal `json:"value"`
}

// SamplePayments returns the three utility bills used to seed a fresh
// environment, due a few days after now.
func SamplePayments(now time.Time) []models.PaymentMessage {
	due := func(days int) *models.MessageDate {
		return &models.MessageDate{Time: now.AddDate(0, 0, days).UTC()}
	}
	return []models.PaymentMessage{
		{
			IdentificationField: "23791234567890123456789012345678901234567890",
			Value:               decimal.RequireFromString("89.90"),
			DueDate:             due(5),
			BeneficiaryName:     "COPASA MG",
		},
		{
			IdentificationField: "34198765432109876543210987654321098765432109",
			Value:               decimal.RequireFromString("156.75"),
			DueDate:             due(3),
			BeneficiaryName:     "CEMIG DISTRIBUICAO",
		},
		{
			IdentificationField: "10412345678901234567890123456789012345678901",
			Value:               decimal.RequireFromString("45.30"),
			DueDate:             due(7),
			BeneficiaryName:     "SABESP",
		},
	}
}

func (h *TestHandler) SendPayment(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "SendTestPayment")
	defer span.End()

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := models.DecodePaymentMessage(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.publisher.Publish(ctx, msg); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to publish test payment",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to publish message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Message published", "data": msg})
}

func (h *TestHandler) CreateSampleData(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "CreateSampleData")
	defer span.End()

	var results []gin.H
	for _, msg := range SamplePayments(time.Now()) {
		if err := h.publisher.Publish(ctx, msg); err != nil {
			span.RecordError(err)
			results = append(results, gin.H{"success": false, "beneficiary": msg.BeneficiaryName, "error": err.Error()})
			continue
		}
		results = append(results, gin.H{"success": true, "beneficiary": msg.BeneficiaryName})
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Sample data published", "results": results})
}

// Analyze settles a synthetic payment and runs the engine inline, bypassing
// the queue.
func (h *TestHandler) Analyze(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "AnalyzeTestPayment")
	defer span.End()

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidAmount(req.Value) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be between 0 and 9999999999999999.99"})
		return
	}

	payment, _, err := h.store.ReconcilePayment(ctx, models.PaymentMessage{
		IdentificationField: uuid.NewString(),
		Value:               req.Value.Round(2),
		BeneficiaryName:     req.BeneficiaryName,
	}, time.Now())
	if err != nil {
		respondError(c, h.logger, span, "Failed to store test payment", err)
		return
	}

	expectation, err := h.engine.Analyze(ctx, payment)
	if err != nil {
		respondError(c, h.logger, span, "Failed to analyze test payment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Analysis complete",
		"payment_id":  payment.ID,
		"expectation": expectation,
	})
}
