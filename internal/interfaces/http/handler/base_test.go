package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/interfaces/http/dto"
	"github.com/dealerdesk/backend/internal/interfaces/http/middleware"
)

func TestBaseHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var h BaseHandler

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.Success(c, gin.H{"value": 42})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var h BaseHandler

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", shared.ErrValidation, http.StatusBadRequest, dto.ErrCodeValidation},
		{"resolution", shared.ErrResolution, http.StatusNotFound, dto.ErrCodeNotFound},
		{"circuit open", shared.ErrCircuitOpen, http.StatusServiceUnavailable, dto.ErrCodeCircuitOpen},
		{"upstream", shared.NewUpstreamError(500, "boom"), http.StatusBadGateway, dto.ErrCodeUpstream},
		{"unknown", assert.AnError, http.StatusInternalServerError, dto.ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(middleware.RequestIDKey, "req-7")

			h.DomainError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-7", resp.Error.RequestID)
		})
	}
}
