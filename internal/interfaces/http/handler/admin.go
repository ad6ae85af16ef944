package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/internal/infrastructure/resilience"
)

// AdminHandler exposes cache and circuit breaker introspection endpoints
type AdminHandler struct {
	BaseHandler
	resilience *resilience.Service
	logger     *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(resilienceSvc *resilience.Service, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		resilience: resilienceSvc,
		logger:     logger,
	}
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	{
		admin.GET("/cache-stats", h.CacheStats)
		admin.POST("/clear-cache", h.ClearCache)
	}
}

// CacheStats returns cache counters and per-endpoint circuit states
func (h *AdminHandler) CacheStats(c *gin.Context) {
	h.Success(c, h.resilience.Stats())
}

// ClearCache drops cached results and resets circuits and counters
func (h *AdminHandler) ClearCache(c *gin.Context) {
	if err := h.resilience.Clear(c.Request.Context()); err != nil {
		h.logger.Error("cache clear failed", zap.Error(err))
		h.InternalError(c, "Failed to clear cache")
		return
	}
	h.logger.Info("cache cleared", zap.String("request_id", getRequestID(c)))
	h.Success(c, gin.H{"cleared": true})
}
