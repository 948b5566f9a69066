package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"faculty-availability-backend/internal/qr"
)

// GetQR handles GET /api/qr/:id. The default response embeds the image as a
// data URL; ?format=png returns the raw image.
func (h *Handler) GetQR(c *gin.Context) {
	id, ok := facultyID(c)
	if !ok {
		return
	}
	url := qr.FacultyURL(h.baseURL(c.Request), id)
	png, err := h.qr.Encode(url)
	if err != nil {
		writeError(c, err)
		return
	}

	if c.Query("format") == "png" {
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"qr_code": qr.DataURL(png),
		"url":     url,
	})
}
