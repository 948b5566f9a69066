package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"faculty-availability-backend/internal/availability"
	"faculty-availability-backend/internal/mw"
	"faculty-availability-backend/internal/parse"
)

func facultyID(c *gin.Context) (int64, bool) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid faculty ID"})
		return 0, false
	}
	return id, true
}

// ListFaculty handles GET /api/faculty.
func (h *Handler) ListFaculty(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetFaculty handles GET /api/faculty/:id.
func (h *Handler) GetFaculty(c *gin.Context) {
	id, ok := facultyID(c)
	if !ok {
		return
	}
	p, err := h.svc.Current(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type historyEntry struct {
	ID                int64  `json:"id"`
	StatusCode        int    `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	CustomMessage     string `json:"custom_message"`
	EstimatedDuration int    `json:"estimated_duration"`
	CreatedAt         string `json:"created_at"`
}

// GetHistory handles GET /api/faculty/:id/history?limit=N.
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := facultyID(c)
	if !ok {
		return
	}
	limit := parse.Limit(c.Query("limit"), 20, 100)
	updates, err := h.svc.History(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	entries := make([]historyEntry, 0, len(updates))
	for _, u := range updates {
		entries = append(entries, historyEntry{
			ID:                u.ID,
			StatusCode:        u.StatusCode,
			StatusMessage:     statusMessage(u.StatusCode),
			CustomMessage:     u.CustomMessage,
			EstimatedDuration: u.EstimatedDuration,
			CreatedAt:         u.CreatedAt.UTC().Format(timeFormat),
		})
	}
	c.JSON(http.StatusOK, entries)
}

type registerRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Department     string `json:"department"`
	OfficeLocation string `json:"office_location"`
	Password       string `json:"password"`
}

// Register handles POST /api/faculty/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), availability.Registration{
		Name:           req.Name,
		Email:          req.Email,
		Department:     req.Department,
		OfficeLocation: req.OfficeLocation,
		Password:       req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Faculty registered successfully",
		"faculty_id": sess.Faculty.ID,
		"token":      sess.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/faculty/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	f := sess.Faculty
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   sess.Token,
		"faculty": gin.H{
			"id":              f.ID,
			"name":            f.Name,
			"email":           f.Email,
			"department":      f.Department,
			"office_location": f.Office(),
		},
	})
}

type updateStatusRequest struct {
	StatusCode        *int   `json:"status_code"`
	CustomMessage     string `json:"custom_message"`
	EstimatedDuration *int   `json:"estimated_duration"`
}

// UpdateStatus handles POST /api/faculty/:id/status. The caller is the
// faculty member named by the bearer token.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := facultyID(c)
	if !ok {
		return
	}
	caller, ok := mw.FacultyID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return
	}
	if caller != id {
		writeError(c, availability.ErrUnauthorized)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	p, err := h.svc.UpdateStatus(c.Request.Context(), caller, id, availability.UpdateRequest{
		Code:              req.StatusCode,
		CustomMessage:     req.CustomMessage,
		EstimatedDuration: req.EstimatedDuration,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Status updated successfully",
		"status_message": p.StatusMessage,
		"status":         p,
	})
}
