package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"faculty-availability-backend/internal/status"
)

const timeFormat = time.RFC3339Nano

func statusMessage(code int) string {
	return status.Code(code).Message()
}

// GetStatusCodes handles GET /api/status-codes.
func (h *Handler) GetStatusCodes(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.StatusCodes())
}
