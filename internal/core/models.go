package core

import (
	"fmt"
	"strings"
	"time"
)

// OutpassStatus represents the current state of an outpass request
type OutpassStatus string

const (
	StatusPending  OutpassStatus = "pending"
	StatusApproved OutpassStatus = "approved"
	StatusRejected OutpassStatus = "rejected"
)

// IsTerminal reports whether no further status transition is permitted.
// Approved and rejected outpasses never change status again; a student
// must create a new outpass for further requests.
func (s OutpassStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseOutpassStatus validates a status string at the type boundary
func ParseOutpassStatus(raw string) (OutpassStatus, error) {
	switch OutpassStatus(raw) {
	case StatusPending, StatusApproved, StatusRejected:
		return OutpassStatus(raw), nil
	}
	return "", fmt.Errorf("%w: unknown outpass status %q", ErrValidation, raw)
}

// ScanAction is the direction of a gate scan
type ScanAction string

const (
	ActionExit  ScanAction = "exit"
	ActionEntry ScanAction = "entry"
)

// ParseScanAction validates an action string at the type boundary
func ParseScanAction(raw string) (ScanAction, error) {
	switch ScanAction(raw) {
	case ActionExit, ActionEntry:
		return ScanAction(raw), nil
	}
	return "", fmt.Errorf("%w: action must be %q or %q", ErrValidation, ActionExit, ActionEntry)
}

// ReturnStatus tracks whether a student has returned, and how
type ReturnStatus string

const (
	ReturnPending ReturnStatus = "pending"
	ReturnOnTime  ReturnStatus = "on_time"
	ReturnLate    ReturnStatus = "late"
)

// NotificationEvent identifies why a parent notification fired
type NotificationEvent string

const (
	EventOutpassApplied  NotificationEvent = "outpass_applied"
	EventOutpassApproved NotificationEvent = "outpass_approved"
	EventOutpassRejected NotificationEvent = "outpass_rejected"
	EventExitLogged      NotificationEvent = "exit_logged"
	EventEntryLogged     NotificationEvent = "entry_logged"
	EventLateReturn      NotificationEvent = "late_return"
)

// Student is a hostel resident who can request outpasses
type Student struct {
	ID           string
	RollNumber   string // institutional ID, e.g. "STU001"
	Name         string
	Email        string
	Phone        string
	RoomNumber   string
	ParentName   string
	ParentPhone  string
	ParentChatID int64 // Telegram chat for parent notifications, 0 if not linked
	PasswordHash string
	CreatedAt    time.Time
}

// Warden approves or rejects outpass requests
type Warden struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Watchman verifies exit and entry scans at the gate
type Watchman struct {
	ID           string
	Name         string
	Email        string
	GateNumber   string
	PasswordHash string
	CreatedAt    time.Time
}

// Outpass is a time-bounded permission for a student to leave the hostel.
// It is never deleted; rejected and completed outpasses remain as audit records.
type Outpass struct {
	ID              string
	StudentID       string
	Reason          string
	Place           string
	City            string
	ParentContact   string
	FromTime        time.Time
	ToTime          time.Time
	Status          OutpassStatus
	DecidedBy       string // warden id, empty while pending
	DecidedAt       *time.Time
	RejectionReason string
	QRToken         string // signed token string, empty until approved
	QRExpiresAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks creation-time invariants against the given instant
func (o *Outpass) Validate(now time.Time) error {
	if strings.TrimSpace(o.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if strings.TrimSpace(o.Place) == "" {
		return fmt.Errorf("%w: destination place is required", ErrValidation)
	}
	if strings.TrimSpace(o.City) == "" {
		return fmt.Errorf("%w: destination city is required", ErrValidation)
	}
	if strings.TrimSpace(o.ParentContact) == "" {
		return fmt.Errorf("%w: emergency contact is required", ErrValidation)
	}
	if !o.FromTime.After(now) {
		return fmt.Errorf("%w: from time must be in the future", ErrValidation)
	}
	if !o.ToTime.After(o.FromTime) {
		return fmt.Errorf("%w: to time must be after from time", ErrValidation)
	}
	return nil
}

// IsApproved reports whether the outpass is in the approved state
func (o *Outpass) IsApproved() bool {
	return o.Status == StatusApproved
}

// WindowContains reports whether now lies within the authorized leave window
func (o *Outpass) WindowContains(now time.Time) bool {
	return InWindow(now, o.FromTime, o.ToTime)
}

// CanRefreshToken reports whether a fresh QR token may still be issued:
// the outpass must be approved and its return deadline not yet elapsed.
func (o *Outpass) CanRefreshToken(now time.Time) bool {
	return o.IsApproved() && !now.After(o.ToTime)
}

// HasLiveToken reports whether the stored token is still unexpired
func (o *Outpass) HasLiveToken(now time.Time) bool {
	return o.QRToken != "" && o.QRExpiresAt != nil && !Expired(now, *o.QRExpiresAt)
}

// EntryExitLog records the actual departure and return for one outpass.
// At most one log exists per outpass, created lazily on the first exit scan.
// Once EntryTime is set the log is terminal and no field may change.
type EntryExitLog struct {
	ID              string
	OutpassID       string
	StudentID       string
	ExitTime        *time.Time
	ExitVerifiedBy  string // watchman id, empty until exit verified
	EntryTime       *time.Time
	EntryVerifiedBy string // watchman id, empty for self-confirmed returns
	ReturnStatus    ReturnStatus
	LateMinutes     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Scan denial reasons shared between the read-only validator and the
// commit-time guard so both report identically.
const (
	ReasonAlreadyExited    = "already exited"
	ReasonAlreadyCompleted = "outpass already completed"
	ReasonMustExitFirst    = "must exit first"
	ReasonAlreadyReturned  = "already returned"
)

// EvaluateAction decides whether the given scan action is permissible for
// the current log state. A nil log means no scan has happened yet.
// Returns ok=true with an empty reason, or ok=false with the denial reason.
func EvaluateAction(log *EntryExitLog, action ScanAction) (bool, string) {
	switch action {
	case ActionExit:
		if log == nil || log.ExitTime == nil {
			return true, ""
		}
		if log.EntryTime == nil {
			return false, ReasonAlreadyExited
		}
		return false, ReasonAlreadyCompleted
	case ActionEntry:
		if log == nil || log.ExitTime == nil {
			return false, ReasonMustExitFirst
		}
		if log.EntryTime != nil {
			return false, ReasonAlreadyReturned
		}
		return true, ""
	}
	return false, "unknown action"
}

// Notification is the audit record of one parent notification dispatch
type Notification struct {
	ID        string
	StudentID string
	Event     NotificationEvent
	Message   string
	Status    string // "sent" or "failed"
	SentVia   string // delivery channel, e.g. "telegram" or "log"
	CreatedAt time.Time
}

// TokenClaims is the canonical logical payload carried by every outpass QR
// token. Both issuance paths encode exactly this shape and the validator
// rejects anything else. The window claims are informational; the live
// outpass record is authoritative at scan time.
type TokenClaims struct {
	OutpassID  string
	StudentID  string
	WindowFrom time.Time
	WindowTo   time.Time
	IssuedAt   time.Time
	ExpiresAt  time.Time
}
