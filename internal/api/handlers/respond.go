package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"outpass/internal/core"
)

// respondError maps core error kinds 1:1 onto HTTP responses. Anything
// outside the known kinds is an internal failure and is not echoed back.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NOT_FOUND"})
	case errors.Is(err, core.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "INVALID_STATE"})
	case errors.Is(err, core.ErrInvalidAction):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "INVALID_ACTION"})
	case errors.Is(err, core.ErrMalformedToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "MALFORMED_TOKEN"})
	case errors.Is(err, core.ErrExpiredToken):
		c.JSON(http.StatusGone, gin.H{"error": err.Error(), "code": "EXPIRED_TOKEN"})
	case errors.Is(err, core.ErrOutOfWindow):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "OUT_OF_WINDOW"})
	case errors.Is(err, core.ErrNoActiveOutpass):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NO_ACTIVE_OUTPASS"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "INTERNAL_ERROR",
		})
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// formatOutpassResponse transforms an outpass into the API response shape.
// The raw QR token is deliberately omitted; token material is only exposed
// through the QR endpoints.
func formatOutpassResponse(o *core.Outpass) gin.H {
	return gin.H{
		"id":               o.ID,
		"student_id":       o.StudentID,
		"reason":           o.Reason,
		"place":            o.Place,
		"city":             o.City,
		"parent_contact":   o.ParentContact,
		"from_time":        o.FromTime.Format(time.RFC3339),
		"to_time":          o.ToTime.Format(time.RFC3339),
		"status":           string(o.Status),
		"decided_by":       o.DecidedBy,
		"decided_at":       formatTime(o.DecidedAt),
		"rejection_reason": o.RejectionReason,
		"qr_expires_at":    formatTime(o.QRExpiresAt),
		"created_at":       o.CreatedAt.Format(time.RFC3339),
	}
}

// formatLogResponse transforms an entry/exit log into the API response shape
func formatLogResponse(l *core.EntryExitLog) gin.H {
	if l == nil {
		return nil
	}
	return gin.H{
		"id":                l.ID,
		"outpass_id":        l.OutpassID,
		"student_id":        l.StudentID,
		"exit_time":         formatTime(l.ExitTime),
		"exit_verified_by":  l.ExitVerifiedBy,
		"entry_time":        formatTime(l.EntryTime),
		"entry_verified_by": l.EntryVerifiedBy,
		"return_status":     string(l.ReturnStatus),
		"late_minutes":      l.LateMinutes,
	}
}
