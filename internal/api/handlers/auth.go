package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"outpass/internal/auth"
	"outpass/internal/core"
	"outpass/internal/idgen"
	"outpass/internal/storage"
)

// AuthHandler handles registration and login for all three roles
type AuthHandler struct {
	storage    storage.Storage
	signingKey string
	issuer     string
	ttl        time.Duration
	logger     *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(storage storage.Storage, signingKey, issuer string, ttl time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		storage:    storage,
		signingKey: signingKey,
		issuer:     issuer,
		ttl:        ttl,
		logger:     logger,
	}
}

// Register creates an account for any of the three roles and issues a
// session token for it. Student accounts carry the hostel and parent
// details used for approvals and notifications; watchmen carry a gate.
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Role        string `json:"role" binding:"required"`
		Name        string `json:"name" binding:"required"`
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required,min=6"`
		Phone       string `json:"phone"`
		RollNumber  string `json:"roll_number"`
		RoomNumber  string `json:"room_number"`
		ParentName  string `json:"parent_name"`
		ParentPhone string `json:"parent_phone"`
		GateNumber  string `json:"gate_number"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("Failed to hash password",
			"component", "api",
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	ctx := c.Request.Context()
	role := auth.Role(req.Role)
	var subject string

	switch role {
	case auth.RoleStudent:
		if req.RollNumber == "" || req.RoomNumber == "" || req.ParentName == "" || req.ParentPhone == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "roll_number, room_number, parent_name and parent_phone are required",
				"code":  "VALIDATION_ERROR",
			})
			return
		}
		if _, lookupErr := h.storage.GetStudentByEmail(ctx, req.Email); lookupErr == nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Account already exists",
				"code":  "CONFLICT",
			})
			return
		}
		if _, lookupErr := h.storage.GetStudentByRollNumber(ctx, req.RollNumber); lookupErr == nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Account already exists",
				"code":  "CONFLICT",
			})
			return
		}
		student := &core.Student{
			ID:           idgen.NewStudent(),
			RollNumber:   req.RollNumber,
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			RoomNumber:   req.RoomNumber,
			ParentName:   req.ParentName,
			ParentPhone:  req.ParentPhone,
			PasswordHash: hash,
		}
		if err := h.storage.CreateStudent(ctx, student); err != nil {
			h.registrationFailed(c, string(role), err)
			return
		}
		subject = student.ID

	case auth.RoleWarden:
		if _, lookupErr := h.storage.GetWardenByEmail(ctx, req.Email); lookupErr == nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Account already exists",
				"code":  "CONFLICT",
			})
			return
		}
		warden := &core.Warden{
			ID:           idgen.NewWarden(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
		}
		if err := h.storage.CreateWarden(ctx, warden); err != nil {
			h.registrationFailed(c, string(role), err)
			return
		}
		subject = warden.ID

	case auth.RoleWatchman:
		if _, lookupErr := h.storage.GetWatchmanByEmail(ctx, req.Email); lookupErr == nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Account already exists",
				"code":  "CONFLICT",
			})
			return
		}
		watchman := &core.Watchman{
			ID:           idgen.NewWatchman(),
			Name:         req.Name,
			Email:        req.Email,
			GateNumber:   req.GateNumber,
			PasswordHash: hash,
		}
		if err := h.storage.CreateWatchman(ctx, watchman); err != nil {
			h.registrationFailed(c, string(role), err)
			return
		}
		subject = watchman.ID

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown role",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	token, expiry, err := auth.IssueLoginToken(subject, role, h.issuer, h.signingKey, h.ttl)
	if err != nil {
		h.logger.Error("Failed to issue login token",
			"component", "api",
			"role", req.Role,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         subject,
		"role":       req.Role,
		"token":      token,
		"expires_at": expiry.Format(time.RFC3339),
	})
}

func (h *AuthHandler) registrationFailed(c *gin.Context, role string, err error) {
	h.logger.Error("Failed to create account",
		"component", "api",
		"role", role,
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	})
}

// Login authenticates a caller and issues a role-scoped session token
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Role     string `json:"role" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return
	}

	var subject, hash string
	var err error

	ctx := c.Request.Context()
	switch auth.Role(req.Role) {
	case auth.RoleStudent:
		if student, lookupErr := h.storage.GetStudentByEmail(ctx, req.Email); lookupErr == nil {
			subject, hash = student.ID, student.PasswordHash
		} else {
			err = lookupErr
		}
	case auth.RoleWarden:
		if warden, lookupErr := h.storage.GetWardenByEmail(ctx, req.Email); lookupErr == nil {
			subject, hash = warden.ID, warden.PasswordHash
		} else {
			err = lookupErr
		}
	case auth.RoleWatchman:
		if watchman, lookupErr := h.storage.GetWatchmanByEmail(ctx, req.Email); lookupErr == nil {
			subject, hash = watchman.ID, watchman.PasswordHash
		} else {
			err = lookupErr
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown role",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	// Identical response for unknown account and wrong password
	if err != nil || !auth.CheckPassword(hash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid credentials",
			"code":  "UNAUTHORIZED",
		})
		return
	}

	token, expiry, err := auth.IssueLoginToken(subject, auth.Role(req.Role), h.issuer, h.signingKey, h.ttl)
	if err != nil {
		h.logger.Error("Failed to issue login token",
			"component", "api",
			"role", req.Role,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiry.Format(time.RFC3339),
		"role":       req.Role,
	})
}
