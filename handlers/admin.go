package handlers

import (
	"net/http"
	"strconv"
	"time"

	"expectation-svc/cache"
	"expectation-svc/database"
	"expectation-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const recentWindow = 7 * 24 * time.Hour

type QueueStatusReporter interface {
	Status() models.QueueStatus
}

type AdminHandler struct {
	store  *database.Store
	cache  *cache.StatsCache
	queue  QueueStatusReporter
	logger *zap.Logger
}

func NewAdminHandler(store *database.Store, statsCache *cache.StatsCache, queue QueueStatusReporter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, cache: statsCache, queue: queue, logger: logger}
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "GetSystemStats")
	defer span.End()

	var stats models.SystemStats
	if h.cache.Get(ctx, cache.SystemStatsKey, &stats) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		c.JSON(http.StatusOK, stats)
		return
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	stats, err := h.store.SystemStats(ctx, time.Now().UTC().Add(-recentWindow))
	if err != nil {
		respondError(c, h.logger, span, "Failed to compute system stats", err)
		return
	}

	h.cache.Set(ctx, cache.SystemStatsKey, stats)
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) GetQueueStatus(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusOK, models.QueueStatus{State: "disconnected"})
		return
	}
	c.JSON(http.StatusOK, h.queue.Status())
}

func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "GetAuditLogs")
	defer span.End()

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = v
	}

	logs, err := h.store.ListAuditLogs(ctx, limit)
	if err != nil {
		respondError(c, h.logger, span, "Failed to list audit logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *AdminHandler) GetBeneficiaryStats(c *gin.Context) {
	ctx, span := otel.Tracer("expectation-service").Start(c.Request.Context(), "GetBeneficiaryStats")
	defer span.End()

	var stats []models.BeneficiaryStats
	if h.cache.Get(ctx, cache.BeneficiaryStatsKey, &stats) {
		c.JSON(http.StatusOK, stats)
		return
	}

	stats, err := h.store.BeneficiaryStats(ctx)
	if err != nil {
		respondError(c, h.logger, span, "Failed to compute beneficiary stats", err)
		return
	}

	h.cache.Set(ctx, cache.BeneficiaryStatsKey, stats)
	c.JSON(http.StatusOK, stats)
}
