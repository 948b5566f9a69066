package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"faculty-availability-backend/internal/availability"
	"faculty-availability-backend/internal/mw"
	"faculty-availability-backend/internal/qr"
	"faculty-availability-backend/internal/store"
)

// writeError maps domain errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, availability.ErrUnauthorized):
		status, msg = http.StatusForbidden, "Unauthorized"
	case errors.Is(err, availability.ErrInvalidStatusCode):
		status, msg = http.StatusBadRequest, "Invalid status code"
	case errors.Is(err, availability.ErrInvalidDuration):
		status, msg = http.StatusBadRequest, "Invalid estimated duration"
	case errors.Is(err, availability.ErrMissingFields):
		status, msg = http.StatusBadRequest, "Missing required fields"
	case errors.Is(err, availability.ErrInvalidEmail):
		status, msg = http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, availability.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, store.ErrDuplicateEmail):
		status, msg = http.StatusConflict, "Email already registered"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidReference):
		status, msg = http.StatusNotFound, "Faculty not found"
	case errors.Is(err, store.ErrStorageUnavailable):
		status, msg = http.StatusServiceUnavailable, "Storage unavailable"
	case errors.Is(err, qr.ErrEncodingFailed):
		msg = "Failed to generate QR code"
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", mw.GetRequestID(c), c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
