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

// ExpectationHandler never updates or deletes: expectations are append-only.
type ExpectationHandler struct {
	store  *database.Store
	cache  *cache.StatsCache
	logger *zap.Logger
}

func NewExpectationHandler(store *database.Store, statsCache *cache.StatsCache, logger *zap.Logger) *ExpectationHandler {
	return &ExpectationHandler{store: store, cache: statsCache, logger: logger}
}

func (h *ExpectationHandler) ListExpectations(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "ListExpectations")
	defer span.End()

	limit, _ := strconv.Atoi(c.Query("limit"))
	beneficiary := c.Query("beneficiary")

	expectations, err := h.store.ListExpectations(ctx, beneficiary, limit)
	if err != nil {
		respondError(c, h.logger, span, "Failed to list expectations", err)
		return
	}

	span.SetAttributes(attribute.Int("expectations.count", len(expectations)))
	c.JSON(http.StatusOK, expectations)
}

func (h *ExpectationHandler) GetExpectation(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "GetExpectation")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}

	expectation, err := h.store.GetExpectation(ctx, id)
	if err != nil {
		respondError(c, h.logger, span, "Failed to fetch expectation", err)
		return
	}
	c.JSON(http.StatusOK, expectation)
}

func (h *ExpectationHandler) CreateExpectation(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "CreateExpectation")
	defer span.End()

	var req models.CreateExpectationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NextExpectedAmount != nil && req.NextExpectedAmount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "next_expected_amount must not be negative"})
		return
	}

	expectation, err := h.store.CreateExpectation(ctx, req)
	if err != nil {
		respondError(c, h.logger, span, "Failed to create expectation", err)
		return
	}
	h.cache.Invalidate(ctx)

	h.logger.Info("Expectation created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("expectation_id", expectation.ID.String()),
		zap.String("beneficiary", expectation.NormalizedBeneficiary),
	)
	c.JSON(http.StatusCreated, expectation)
}

func (h *ExpectationHandler) GetStats(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "GetExpectationStats")
	defer span.End()

	stats, err := h.store.ExpectationStats(ctx)
	if err != nil {
		respondError(c, h.logger, span, "Failed to compute expectation stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
