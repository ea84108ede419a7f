package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"outpass/internal/api/middleware"
	"outpass/internal/core"
	"outpass/internal/storage"
)

// ScanValidator previews whether a scanned token permits an action
type ScanValidator interface {
	Validate(ctx context.Context, rawToken string, action core.ScanAction) (*core.ScanDecision, error)
}

// ActionRecorder commits a verified exit or entry
type ActionRecorder interface {
	RecordAction(ctx context.Context, outpassID string, action core.ScanAction, verifierID string) (*core.EntryExitLog, error)
}

// WatchmenHandler handles the gate-side surface
type WatchmenHandler struct {
	storage    storage.Storage
	validator  ScanValidator
	reconciler ActionRecorder
	clock      core.Clock
	logger     *slog.Logger
}

// NewWatchmenHandler creates a new watchmen handler
func NewWatchmenHandler(storage storage.Storage, validator ScanValidator, reconciler ActionRecorder, clock core.Clock, logger *slog.Logger) *WatchmenHandler {
	return &WatchmenHandler{
		storage:    storage,
		validator:  validator,
		reconciler: reconciler,
		clock:      clock,
		logger:     logger,
	}
}

type scanRequest struct {
	Token  string `json:"token" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// ValidateScan previews a scan without committing anything
// POST /watchman/scan/validate
func (h *WatchmenHandler) ValidateScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Token and action are required",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	action, err := core.ParseScanAction(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	decision, err := h.validator.Validate(c.Request.Context(), req.Token, action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatDecision(decision, action))
}

// Scan validates a scanned token and, when permissible, commits the action
// in the same request. A losing racer receives the same conflict answer as
// a plainly-late call.
// POST /watchman/scan
func (h *WatchmenHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Token and action are required",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	action, err := core.ParseScanAction(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	decision, err := h.validator.Validate(c.Request.Context(), req.Token, action)
	if err != nil {
		respondError(c, err)
		return
	}
	if !decision.CanProceed {
		c.JSON(http.StatusConflict, gin.H{
			"error": decision.Reason,
			"code":  "INVALID_ACTION",
		})
		return
	}

	watchmanID := c.GetString(middleware.CallerIDKey)
	log, err := h.reconciler.RecordAction(c.Request.Context(), decision.Outpass.ID, action, watchmanID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Gate scan committed",
		"component", "api",
		"outpass_id", decision.Outpass.ID,
		"action", string(action),
		"watchman_id", watchmanID,
	)

	response := h.formatDecision(decision, action)
	response["log"] = formatLogResponse(log)
	c.JSON(http.StatusOK, response)
}

// ListTodayLogs returns all logs created today
// GET /watchman/logs/today
func (h *WatchmenHandler) ListTodayLogs(c *gin.Context) {
	logs, err := h.storage.ListLogsForDate(c.Request.Context(), h.clock.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatLogs(c, logs))
}

// ListMyLogs returns the logs the calling watchman verified, for today or
// for an explicit ?date=YYYY-MM-DD
// GET /watchman/logs/mine
func (h *WatchmenHandler) ListMyLogs(c *gin.Context) {
	date := h.clock.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, date.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Date must be YYYY-MM-DD",
				"code":  "INVALID_REQUEST",
			})
			return
		}
		date = parsed
	}

	watchmanID := c.GetString(middleware.CallerIDKey)
	logs, err := h.storage.ListLogsByVerifier(c.Request.Context(), watchmanID, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatLogs(c, logs))
}

// ListPendingReturns returns students who exited but have not returned
// GET /watchman/logs/pending-returns
func (h *WatchmenHandler) ListPendingReturns(c *gin.Context) {
	logs, err := h.storage.ListPendingReturns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatLogs(c, logs))
}

// GetDashboard returns today's gate activity counters
// GET /watchman/dashboard
func (h *WatchmenHandler) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	todayLogs, err := h.storage.ListLogsForDate(ctx, h.clock.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	pending, err := h.storage.ListPendingReturns(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	exits, entries := 0, 0
	for _, log := range todayLogs {
		if log.ExitTime != nil {
			exits++
		}
		if log.EntryTime != nil {
			entries++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"today_exits":     exits,
		"today_entries":   entries,
		"pending_returns": len(pending),
	})
}

func (h *WatchmenHandler) formatDecision(decision *core.ScanDecision, action core.ScanAction) gin.H {
	return gin.H{
		"can_proceed": decision.CanProceed,
		"reason":      decision.Reason,
		"action":      string(action),
		"student": gin.H{
			"roll_number": decision.Student.RollNumber,
			"name":        decision.Student.Name,
			"room_number": decision.Student.RoomNumber,
		},
		"outpass": formatOutpassResponse(decision.Outpass),
	}
}

func (h *WatchmenHandler) formatLogs(c *gin.Context, logs []*core.EntryExitLog) []gin.H {
	response := make([]gin.H, 0, len(logs))
	for _, log := range logs {
		entry := formatLogResponse(log)
		if student, err := h.storage.GetStudent(c.Request.Context(), log.StudentID); err == nil {
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
