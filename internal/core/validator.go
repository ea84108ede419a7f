package core

import (
	"context"
	"fmt"
	"log/slog"
)

// ScanDecision is the outcome of validating a scanned token for an action.
// Validation never mutates state; the commit happens separately through the
// LogReconciler so callers can preview validity first.
type ScanDecision struct {
	CanProceed bool
	Reason     string
	Student    *Student
	Outpass    *Outpass
	Log        *EntryExitLog
}

// ScanValidator decodes QR tokens and decides whether a gate action is
// currently permissible.
type ScanValidator struct {
	storage Storage
	decoder TokenDecoder
	clock   Clock
	logger  *slog.Logger
}

// NewScanValidator creates a new scan validator
func NewScanValidator(storage Storage, decoder TokenDecoder, clock Clock, logger *slog.Logger) *ScanValidator {
	return &ScanValidator{
		storage: storage,
		decoder: decoder,
		clock:   clock,
		logger:  logger,
	}
}

// Validate decodes rawToken and checks, in order: token shape, token
// expiry, existence and approval of the referenced outpass, the live
// outpass window, and the exit/entry ordering against the current log.
// The live outpass record is authoritative for the validity window; the
// claims embedded in the token may be stale.
func (v *ScanValidator) Validate(ctx context.Context, rawToken string, action ScanAction) (*ScanDecision, error) {
	claims, err := v.decoder.Decode(rawToken)
	if err != nil {
		return nil, err
	}

	outpass, err := v.storage.GetOutpass(ctx, claims.OutpassID)
	if err != nil {
		return nil, err
	}
	if !outpass.IsApproved() {
		return nil, fmt.Errorf("%w: outpass %s is %s", ErrNotFound, outpass.ID, outpass.Status)
	}

	student, err := v.storage.GetStudent(ctx, outpass.StudentID)
	if err != nil {
		return nil, err
	}

	now := v.clock.Now()
	if !outpass.WindowContains(now) {
		return nil, fmt.Errorf("%w: valid %s to %s", ErrOutOfWindow,
			outpass.FromTime.Format(timeFormat), outpass.ToTime.Format(timeFormat))
	}

	log, err := v.storage.GetLogByOutpass(ctx, outpass.ID)
	if err != nil {
		return nil, err
	}

	ok, reason := EvaluateAction(log, action)

	v.logger.Debug("Scan validated",
		"component", "core",
		"outpass_id", outpass.ID,
		"action", string(action),
		"can_proceed", ok,
		"reason", reason,
	)

	return &ScanDecision{
		CanProceed: ok,
		Reason:     reason,
		Student:    student,
		Outpass:    outpass,
		Log:        log,
	}, nil
}
