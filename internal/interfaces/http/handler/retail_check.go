package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/internal/application/retailcheck"
	"github.com/dealerdesk/backend/internal/infrastructure/resilience"
	"github.com/dealerdesk/backend/internal/interfaces/http/dto"
)

// RetailCheckHandler handles retail check API endpoints
type RetailCheckHandler struct {
	BaseHandler
	service    *retailcheck.Service
	resilience *resilience.Service
	logger     *zap.Logger
}

// NewRetailCheckHandler creates a new RetailCheckHandler. resilienceSvc may
// be nil when the optimized flow is not wired, cache stats are then omitted.
func NewRetailCheckHandler(service *retailcheck.Service, resilienceSvc *resilience.Service, logger *zap.Logger) *RetailCheckHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetailCheckHandler{
		service:    service,
		resilience: resilienceSvc,
		logger:     logger,
	}
}

// RegisterRoutes registers retail check routes
func (h *RetailCheckHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/retail-check", h.Run)
}

// Run executes a retail check for the requested vehicle
func (h *RetailCheckHandler) Run(c *gin.Context) {
	var body RetailCheckRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
			return
		}
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	req, err := body.toApplication()
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	result, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		h.logger.Warn("retail check failed",
			zap.String("flow", body.Flow),
			zap.String("request_id", getRequestID(c)),
			zap.Error(err))
		h.DomainError(c, err)
		return
	}

	resp := RetailCheckResponse{Result: *result}
	if req.Optimized && h.resilience != nil {
		stats := h.resilience.Stats()
		resp.CacheStats = &stats
	}

	h.Success(c, resp)
}
