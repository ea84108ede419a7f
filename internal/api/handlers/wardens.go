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

// WardenOutpassManager is the slice of the outpass manager the warden
// surface needs
type WardenOutpassManager interface {
	Approve(ctx context.Context, outpassID, wardenID string) (*core.Outpass, error)
	Reject(ctx context.Context, outpassID, wardenID, reason string) (*core.Outpass, error)
}

// WardensHandler handles the warden-facing surface
type WardensHandler struct {
	storage storage.Storage
	manager WardenOutpassManager
	clock   core.Clock
	logger  *slog.Logger
}

// NewWardensHandler creates a new wardens handler
func NewWardensHandler(storage storage.Storage, manager WardenOutpassManager, clock core.Clock, logger *slog.Logger) *WardensHandler {
	return &WardensHandler{
		storage: storage,
		manager: manager,
		clock:   clock,
		logger:  logger,
	}
}

// ListPending returns outpass requests awaiting a decision
// GET /warden/outpasses/pending?limit=&offset=
func (h *WardensHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	outpasses, err := h.storage.ListOutpassesByStatus(c.Request.Context(), core.StatusPending, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.withStudents(c, outpasses))
}

// ListOutpasses returns all outpasses with an optional status filter
// GET /warden/outpasses?status=&limit=&offset=
func (h *WardensHandler) ListOutpasses(c *gin.Context) {
	var status core.OutpassStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := core.ParseOutpassStatus(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		status = parsed
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	outpasses, err := h.storage.ListOutpassesByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.withStudents(c, outpasses))
}

// Approve approves a pending outpass and returns the QR pass for display
// POST /warden/outpasses/:id/approve
func (h *WardensHandler) Approve(c *gin.Context) {
	wardenID := c.GetString(middleware.CallerIDKey)

	outpass, err := h.manager.Approve(c.Request.Context(), c.Param("id"), wardenID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := formatOutpassResponse(outpass)
	if image, renderErr := qrimage.RenderDataURL(outpass.QRToken); renderErr == nil {
		response["qr_image"] = image
	} else {
		h.logger.Error("Failed to render QR image",
			"component", "api",
			"outpass_id", outpass.ID,
			"error", renderErr,
		)
	}

	c.JSON(http.StatusOK, response)
}

// Reject rejects a pending outpass with a mandatory reason
// POST /warden/outpasses/:id/reject
func (h *WardensHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Rejection reason is required",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	wardenID := c.GetString(middleware.CallerIDKey)
	outpass, err := h.manager.Reject(c.Request.Context(), c.Param("id"), wardenID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, formatOutpassResponse(outpass))
}

// GetDashboard returns outpass totals for the warden dashboard
// GET /warden/dashboard
func (h *WardensHandler) GetDashboard(c *gin.Context) {
	counts, err := h.storage.CountOutpasses(c.Request.Context(), h.clock.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_outpasses":    counts.Total,
		"pending_outpasses":  counts.Pending,
		"approved_outpasses": counts.Approved,
		"rejected_outpasses": counts.Rejected,
		"today_outpasses":    counts.Today,
	})
}

// GetStudent returns a student's profile, stats and recent outpasses
// GET /warden/students/:rollNumber
func (h *WardensHandler) GetStudent(c *gin.Context) {
	student, err := h.storage.GetStudentByRollNumber(c.Request.Context(), c.Param("rollNumber"))
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.storage.GetStudentStats(c.Request.Context(), student.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	recent, err := h.storage.ListOutpassesByStudent(c.Request.Context(), student.ID, "", 10, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	outpasses := make([]gin.H, 0, len(recent))
	for _, outpass := range recent {
		outpasses = append(outpasses, formatOutpassResponse(outpass))
	}

	c.JSON(http.StatusOK, gin.H{
		"student": gin.H{
			"id":           student.ID,
			"roll_number":  student.RollNumber,
			"name":         student.Name,
			"email":        student.Email,
			"phone":        student.Phone,
			"room_number":  student.RoomNumber,
			"parent_name":  student.ParentName,
			"parent_phone": student.ParentPhone,
			"created_at":   student.CreatedAt.Format(time.RFC3339),
		},
		"stats": gin.H{
			"total_outpasses":    stats.TotalOutpasses,
			"approved_outpasses": stats.Approved,
			"pending_outpasses":  stats.Pending,
			"rejected_outpasses": stats.Rejected,
			"late_returns":       stats.LateReturns,
		},
		"recent_outpasses": outpasses,
	})
}

// withStudents decorates outpass responses with basic student identity so
// warden lists are reviewable without extra lookups
func (h *WardensHandler) withStudents(c *gin.Context, outpasses []*core.Outpass) []gin.H {
	response := make([]gin.H, 0, len(outpasses))
	for _, outpass := range outpasses {
		entry := formatOutpassResponse(outpass)
		if student, err := h.storage.GetStudent(c.Request.Context(), outpass.StudentID); err == nil {
			entry["student"] = gin.H{
				"roll_number": student.RollNumber,
				"name":        student.Name,
				"room_number": student.RoomNumber,
			}
		}
		response = append(response, entry)
	}
	return response
}
