package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"outpass/internal/idgen"
)

// Token validity periods. The approval-time token covers the whole leave
// day; self-service refreshes are short-lived because the student can
// regenerate them on demand.
const (
	ApprovalTokenTTL    = 24 * time.Hour
	SelfServiceTokenTTL = 5 * time.Minute
)

// timeFormat is used in parent-facing notification messages
const timeFormat = "2006-01-02 15:04"

// Storage defines required persistence operations. Mutations that commit a
// state transition must be atomic check-then-write: the implementation keys
// the update on the expected prior state and reports the documented error
// when another writer got there first.
type Storage interface {
	CreateOutpass(ctx context.Context, outpass *Outpass) error
	GetOutpass(ctx context.Context, id string) (*Outpass, error)
	// DecideOutpass persists a pending→approved/rejected transition.
	// Conditional on the stored status still being pending; returns
	// ErrInvalidState when a concurrent decision won.
	DecideOutpass(ctx context.Context, outpass *Outpass) error
	// SetOutpassToken persists refreshed QR material without touching the
	// status. Conditional on the outpass being approved; returns
	// ErrNoActiveOutpass otherwise.
	SetOutpassToken(ctx context.Context, id, token string, expiry time.Time) error
	// GetActiveOutpass returns the most recent approved outpass for the
	// student whose QR expiry is still in the future, or (nil, nil).
	GetActiveOutpass(ctx context.Context, studentID string, now time.Time) (*Outpass, error)

	GetStudent(ctx context.Context, id string) (*Student, error)

	// GetLogByOutpass returns (nil, nil) when no log exists yet.
	GetLogByOutpass(ctx context.Context, outpassID string) (*EntryExitLog, error)
	// CreateLog inserts the single log row for an outpass; returns
	// ErrInvalidAction when a row already exists (concurrent exit scan).
	CreateLog(ctx context.Context, log *EntryExitLog) error
	// SetLogExit records the exit fields on an existing log. Conditional
	// on exit_time still being unset; returns ErrInvalidAction otherwise.
	SetLogExit(ctx context.Context, log *EntryExitLog) error
	// CompleteLog records the return fields. Conditional on entry_time
	// still being unset; returns ErrInvalidAction when already returned.
	CompleteLog(ctx context.Context, log *EntryExitLog) error
}

// TokenIssuer signs a canonical claims payload into a scannable token string
type TokenIssuer interface {
	Issue(claims TokenClaims) (string, error)
}

// TokenDecoder parses a scanned raw value back into the canonical claims.
// Returns ErrMalformedToken for undecodable input and ErrExpiredToken when
// the embedded expiry has passed.
type TokenDecoder interface {
	Decode(raw string) (*TokenClaims, error)
}

// Notifier dispatches a parent notification. Best effort: failures are
// logged by the caller, never propagated.
type Notifier interface {
	Notify(ctx context.Context, studentID string, event NotificationEvent, message string) error
}

// OutpassManager owns the outpass lifecycle: creation, warden decisions
// and QR token issuance.
type OutpassManager struct {
	storage  Storage
	issuer   TokenIssuer
	notifier Notifier
	clock    Clock
	logger   *slog.Logger
}

// NewOutpassManager creates a new outpass manager
func NewOutpassManager(storage Storage, issuer TokenIssuer, notifier Notifier, clock Clock, logger *slog.Logger) *OutpassManager {
	return &OutpassManager{
		storage:  storage,
		issuer:   issuer,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// CreateOutpassRequest carries the student-supplied fields of a new request
type CreateOutpassRequest struct {
	Reason        string
	Place         string
	City          string
	ParentContact string
	FromTime      time.Time
	ToTime        time.Time
}

// Create registers a new outpass request in the pending state
func (m *OutpassManager) Create(ctx context.Context, studentID string, req CreateOutpassRequest) (*Outpass, error) {
	student, err := m.storage.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	outpass := &Outpass{
		ID:            idgen.NewOutpass(),
		StudentID:     student.ID,
		Reason:        req.Reason,
		Place:         req.Place,
		City:          req.City,
		ParentContact: req.ParentContact,
		FromTime:      req.FromTime,
		ToTime:        req.ToTime,
		Status:        StatusPending,
	}

	if err := outpass.Validate(now); err != nil {
		return nil, err
	}

	if err := m.storage.CreateOutpass(ctx, outpass); err != nil {
		return nil, fmt.Errorf("failed to save outpass: %w", err)
	}

	m.notify(ctx, student.ID, EventOutpassApplied, fmt.Sprintf(
		"Your ward %s has applied for an outpass from %s to %s. Reason: %s",
		student.Name, outpass.FromTime.Format(timeFormat), outpass.ToTime.Format(timeFormat), outpass.Reason))

	return outpass, nil
}

// Approve transitions a pending outpass to approved, records the deciding
// warden and issues the approval-time QR token. The approved state is
// terminal; a concurrent decision loser receives ErrInvalidState.
func (m *OutpassManager) Approve(ctx context.Context, outpassID, wardenID string) (*Outpass, error) {
	outpass, err := m.storage.GetOutpass(ctx, outpassID)
	if err != nil {
		return nil, err
	}

	if outpass.Status != StatusPending {
		return nil, fmt.Errorf("%w: outpass is %s", ErrInvalidState, outpass.Status)
	}

	now := m.clock.Now()
	expiry := now.Add(ApprovalTokenTTL)

	token, err := m.issuer.Issue(TokenClaims{
		OutpassID:  outpass.ID,
		StudentID:  outpass.StudentID,
		WindowFrom: outpass.FromTime,
		WindowTo:   outpass.ToTime,
		IssuedAt:   now,
		ExpiresAt:  expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue QR token: %w", err)
	}

	outpass.Status = StatusApproved
	outpass.DecidedBy = wardenID
	outpass.DecidedAt = &now
	outpass.QRToken = token
	outpass.QRExpiresAt = &expiry

	if err := m.storage.DecideOutpass(ctx, outpass); err != nil {
		return nil, err
	}

	m.notify(ctx, outpass.StudentID, EventOutpassApproved, fmt.Sprintf(
		"Your ward's outpass for %s to %s has been approved. The QR pass is ready.",
		outpass.FromTime.Format(timeFormat), outpass.ToTime.Format(timeFormat)))

	return outpass, nil
}

// Reject transitions a pending outpass to rejected with a mandatory reason
func (m *OutpassManager) Reject(ctx context.Context, outpassID, wardenID, reason string) (*Outpass, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	outpass, err := m.storage.GetOutpass(ctx, outpassID)
	if err != nil {
		return nil, err
	}

	if outpass.Status != StatusPending {
		return nil, fmt.Errorf("%w: outpass is %s", ErrInvalidState, outpass.Status)
	}

	now := m.clock.Now()
	outpass.Status = StatusRejected
	outpass.DecidedBy = wardenID
	outpass.DecidedAt = &now
	outpass.RejectionReason = reason

	if err := m.storage.DecideOutpass(ctx, outpass); err != nil {
		return nil, err
	}

	m.notify(ctx, outpass.StudentID, EventOutpassRejected, fmt.Sprintf(
		"Your ward's outpass for %s to %s has been rejected. Reason: %s",
		outpass.FromTime.Format(timeFormat), outpass.ToTime.Format(timeFormat), reason))

	return outpass, nil
}

// SelfServiceToken returns a scannable token for the student's own outpass.
// While an unexpired token exists it is returned unchanged; otherwise a
// fresh short-lived token is minted and persisted onto the outpass record.
func (m *OutpassManager) SelfServiceToken(ctx context.Context, studentID, outpassID string) (string, time.Time, error) {
	outpass, err := m.storage.GetOutpass(ctx, outpassID)
	if err != nil {
		return "", time.Time{}, err
	}
	if outpass.StudentID != studentID {
		return "", time.Time{}, fmt.Errorf("%w: outpass %s", ErrNotFound, outpassID)
	}

	now := m.clock.Now()
	if !outpass.CanRefreshToken(now) {
		return "", time.Time{}, fmt.Errorf("%w: outpass %s", ErrNoActiveOutpass, outpassID)
	}

	// Idempotent while the stored token is live: no duplicate issuance.
	if outpass.HasLiveToken(now) {
		return outpass.QRToken, *outpass.QRExpiresAt, nil
	}

	expiry := now.Add(SelfServiceTokenTTL)
	token, err := m.issuer.Issue(TokenClaims{
		OutpassID:  outpass.ID,
		StudentID:  outpass.StudentID,
		WindowFrom: outpass.FromTime,
		WindowTo:   outpass.ToTime,
		IssuedAt:   now,
		ExpiresAt:  expiry,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue QR token: %w", err)
	}

	if err := m.storage.SetOutpassToken(ctx, outpass.ID, token, expiry); err != nil {
		return "", time.Time{}, err
	}

	return token, expiry, nil
}

// ActiveOutpass returns the student's current approved outpass with a live
// QR expiry, or ErrNoActiveOutpass.
func (m *OutpassManager) ActiveOutpass(ctx context.Context, studentID string) (*Outpass, error) {
	outpass, err := m.storage.GetActiveOutpass(ctx, studentID, m.clock.Now())
	if err != nil {
		return nil, err
	}
	if outpass == nil {
		return nil, fmt.Errorf("%w: student %s", ErrNoActiveOutpass, studentID)
	}
	return outpass, nil
}

func (m *OutpassManager) notify(ctx context.Context, studentID string, event NotificationEvent, message string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, studentID, event, message); err != nil {
		m.logger.Warn("Notification dispatch failed",
			"component", "core",
			"student_id", studentID,
			"event", string(event),
			"error", err,
		)
	}
}
