package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"outpass/internal/api/middleware"
	"outpass/internal/core"
	"outpass/internal/qrimage"
	"outpass/internal/storage"
)

// StudentOutpassManager is the slice of the outpass manager the student
// surface needs
type StudentOutpassManager interface {
	Create(ctx context.Context, studentID string, req core.CreateOutpassRequest) (*core.Outpass, error)
	SelfServiceToken(ctx context.Context, studentID, outpassID string) (string, time.Time, error)
	ActiveOutpass(ctx context.Context, studentID string) (*core.Outpass, error)
}

// ReturnConfirmer commits a student's self-confirmed return
type ReturnConfirmer interface {
	ConfirmReturn(ctx context.Context, outpassID, studentID string) (*core.EntryExitLog, error)
}

// StudentsHandler handles the student-facing surface
type StudentsHandler struct {
	storage    storage.Storage
	manager    StudentOutpassManager
	reconciler ReturnConfirmer
	logger     *slog.Logger
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(storage storage.Storage, manager StudentOutpassManager, reconciler ReturnConfirmer, logger *slog.Logger) *StudentsHandler {
	return &StudentsHandler{
		storage:    storage,
		manager:    manager,
		reconciler: reconciler,
		logger:     logger,
	}
}

// CreateOutpass submits a new outpass application
// POST /student/outpasses
func (h *StudentsHandler) CreateOutpass(c *gin.Context) {
	var req struct {
		Reason        string    `json:"reason" binding:"required"`
		Place         string    `json:"place" binding:"required"`
		City          string    `json:"city" binding:"required"`
		ParentContact string    `json:"parent_contact" binding:"required"`
		FromTime      time.Time `json:"from_time" binding:"required"`
		ToTime        time.Time `json:"to_time" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	studentID := c.GetString(middleware.CallerIDKey)
	outpass, err := h.manager.Create(c.Request.Context(), studentID, core.CreateOutpassRequest{
		Reason:        req.Reason,
		Place:         req.Place,
		City:          req.City,
		ParentContact: req.ParentContact,
		FromTime:      req.FromTime,
		ToTime:        req.ToTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatOutpassResponse(outpass))
}

// ListOutpasses returns the student's outpass history
// GET /student/outpasses?status=&limit=&offset=
func (h *StudentsHandler) ListOutpasses(c *gin.Context) {
	studentID := c.GetString(middleware.CallerIDKey)

	var status core.OutpassStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := core.ParseOutpassStatus(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		status = parsed
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	outpasses, err := h.storage.ListOutpassesByStudent(c.Request.Context(), studentID, status, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list outpasses",
			"component", "api",
			"student_id", studentID,
			"error", err,
		)
		respondError(c, err)
		return
	}

	response := make([]gin.H, 0, len(outpasses))
	for _, outpass := range outpasses {
		response = append(response, formatOutpassResponse(outpass))
	}
	c.JSON(http.StatusOK, response)
}

// GetActiveOutpass returns the student's currently usable approved outpass
// GET /student/outpasses/active
func (h *StudentsHandler) GetActiveOutpass(c *gin.Context) {
	studentID := c.GetString(middleware.CallerIDKey)

	outpass, err := h.manager.ActiveOutpass(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, formatOutpassResponse(outpass))
}

// GetOutpass returns one outpass with its log and, when approved, the QR image
// GET /student/outpasses/:id
func (h *StudentsHandler) GetOutpass(c *gin.Context) {
	studentID := c.GetString(middleware.CallerIDKey)

	outpass, err := h.storage.GetOutpass(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if outpass.StudentID != studentID {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Outpass not found",
			"code":  "NOT_FOUND",
		})
		return
	}

	log, err := h.storage.GetLogByOutpass(c.Request.Context(), outpass.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := formatOutpassResponse(outpass)
	response["log"] = formatLogResponse(log)

	if outpass.IsApproved() && outpass.QRToken != "" {
		image, err := qrimage.RenderDataURL(outpass.QRToken)
		if err != nil {
			h.logger.Error("Failed to render QR image",
				"component", "api",
				"outpass_id", outpass.ID,
				"error", err,
			)
		} else {
			response["qr_image"] = image
		}
	}

	c.JSON(http.StatusOK, response)
}

// RefreshQR returns a scannable QR for the student's own outpass, reusing
// the stored token while it is unexpired
// POST /student/outpasses/:id/qr
func (h *StudentsHandler) RefreshQR(c *gin.Context) {
	studentID := c.GetString(middleware.CallerIDKey)

	token, expiry, err := h.manager.SelfServiceToken(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	image, err := qrimage.RenderDataURL(token)
	if err != nil {
		h.logger.Error("Failed to render QR image",
			"component", "api",
			"outpass_id", c.Param("id"),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"qr_image":   image,
		"expires_at": expiry.Format(time.RFC3339),
	})
}

// ConfirmReturn marks the student's own return when no gate scan happened
// POST /student/outpasses/:id/return
func (h *StudentsHandler) ConfirmReturn(c *gin.Context) {
	studentID := c.GetString(middleware.CallerIDKey)

	log, err := h.reconciler.ConfirmReturn(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Return confirmed",
		"log":     formatLogResponse(log),
	})
}

// ListNotifications returns the student's notification history
// GET /student/notifications?limit=
func (h *StudentsHandler) ListNotifications(c *gin.Context) {
	studentID := c.GetString(middleware.CallerIDKey)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	notifications, err := h.storage.ListNotifications(c.Request.Context(), studentID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		response = append(response, gin.H{
			"id":         n.ID,
			"event":      string(n.Event),
			"message":    n.Message,
			"status":     n.Status,
			"sent_via":   n.SentVia,
			"created_at": n.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

// GetStats returns the student's aggregated outpass history
// GET /student/stats
func (h *StudentsHandler) GetStats(c *gin.Context) {
	studentID := c.GetString(middleware.CallerIDKey)

	stats, err := h.storage.GetStudentStats(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_outpasses":    stats.TotalOutpasses,
		"approved_outpasses": stats.Approved,
		"pending_outpasses":  stats.Pending,
		"rejected_outpasses": stats.Rejected,
		"late_returns":       stats.LateReturns,
	})
}
