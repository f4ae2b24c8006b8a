package advisor

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/grubsight/grubsight/internal/core/errors"
)

// RegisterRoutes registers the chat API on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/chat", s.HandleChat)
}

// HandleChat handles POST /v1/chat.
func (s *Service) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequest,
			Message:   "Invalid chat request body",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Chat(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidHistory) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidRequest,
				Message:   "History is empty or last message not from user",
			})
			return
		}
		c.JSON(http.StatusBadGateway, httperr.ErrorResponse{
			ErrorType: httperr.HttpUpstreamError,
			Message:   "Failed to get a reply from the language model",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
