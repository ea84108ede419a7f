package core

import (
	"context"
	"fmt"
	"log/slog"

	"outpass/internal/idgen"
)

// LogReconciler commits exit and entry events against the single
// EntryExitLog per outpass and computes on-time vs. late returns.
type LogReconciler struct {
	storage  Storage
	notifier Notifier
	clock    Clock
	logger   *slog.Logger
}

// NewLogReconciler creates a new log reconciler
func NewLogReconciler(storage Storage, notifier Notifier, clock Clock, logger *slog.Logger) *LogReconciler {
	return &LogReconciler{
		storage:  storage,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// RecordAction commits an exit or entry scan. The ordering checks from
// validation are re-run here as a commit-time guard; the storage layer
// additionally enforces them atomically, so at most one of two racing
// scans wins and the loser receives ErrInvalidAction.
func (r *LogReconciler) RecordAction(ctx context.Context, outpassID string, action ScanAction, verifierID string) (*EntryExitLog, error) {
	outpass, err := r.storage.GetOutpass(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if !outpass.IsApproved() {
		return nil, fmt.Errorf("%w: outpass is %s", ErrInvalidState, outpass.Status)
	}

	log, err := r.storage.GetLogByOutpass(ctx, outpassID)
	if err != nil {
		return nil, err
	}

	if ok, reason := EvaluateAction(log, action); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, reason)
	}

	switch action {
	case ActionExit:
		return r.recordExit(ctx, outpass, log, verifierID)
	case ActionEntry:
		return r.recordEntry(ctx, outpass, log, verifierID)
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
}

// ConfirmReturn lets a student mark their own return when the gate scan
// was unavailable. Lateness is computed exactly as for a verified entry;
// the verifier field stays empty. A log whose entry is already recorded
// yields ErrInvalidState.
func (r *LogReconciler) ConfirmReturn(ctx context.Context, outpassID, studentID string) (*EntryExitLog, error) {
	outpass, err := r.storage.GetOutpass(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if outpass.StudentID != studentID {
		return nil, fmt.Errorf("%w: outpass %s", ErrNotFound, outpassID)
	}
	if !outpass.IsApproved() {
		return nil, fmt.Errorf("%w: outpass is %s", ErrInvalidState, outpass.Status)
	}

	log, err := r.storage.GetLogByOutpass(ctx, outpassID)
	if err != nil {
		return nil, err
	}
	if log != nil && log.EntryTime != nil {
		return nil, fmt.Errorf("%w: return already confirmed", ErrInvalidState)
	}
	if log == nil || log.ExitTime == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, ReasonMustExitFirst)
	}

	return r.recordEntry(ctx, outpass, log, "")
}

func (r *LogReconciler) recordExit(ctx context.Context, outpass *Outpass, log *EntryExitLog, verifierID string) (*EntryExitLog, error) {
	now := r.clock.Now()
	if log == nil {
		log = &EntryExitLog{
			ID:             idgen.NewLog(),
			OutpassID:      outpass.ID,
			StudentID:      outpass.StudentID,
			ExitTime:       &now,
			ExitVerifiedBy: verifierID,
			ReturnStatus:   ReturnPending,
		}
		if err := r.storage.CreateLog(ctx, log); err != nil {
			return nil, err
		}
	} else {
		// A row without an exit can only come from a partially written
		// migration or manual intervention; finish it in place.
		log.ExitTime = &now
		log.ExitVerifiedBy = verifierID
		log.ReturnStatus = ReturnPending
		if err := r.storage.SetLogExit(ctx, log); err != nil {
			return nil, err
		}
	}

	r.logger.Info("Exit recorded",
		"component", "core",
		"outpass_id", outpass.ID,
		"student_id", outpass.StudentID,
		"verified_by", verifierID,
	)

	r.notify(ctx, outpass.StudentID, EventExitLogged, fmt.Sprintf(
		"Your ward has left the hostel at %s. Expected return by %s.",
		now.Format(timeFormat), outpass.ToTime.Format(timeFormat)))

	return log, nil
}

func (r *LogReconciler) recordEntry(ctx context.Context, outpass *Outpass, log *EntryExitLog, verifierID string) (*EntryExitLog, error) {
	now := r.clock.Now()
	lateBy := LateMinutes(now, outpass.ToTime)

	log.EntryTime = &now
	log.EntryVerifiedBy = verifierID
	log.LateMinutes = lateBy
	if lateBy > 0 {
		log.ReturnStatus = ReturnLate
	} else {
		log.ReturnStatus = ReturnOnTime
	}

	if err := r.storage.CompleteLog(ctx, log); err != nil {
		return nil, err
	}

	r.logger.Info("Entry recorded",
		"component", "core",
		"outpass_id", outpass.ID,
		"student_id", outpass.StudentID,
		"return_status", string(log.ReturnStatus),
		"late_minutes", lateBy,
	)

	if lateBy > 0 {
		r.notify(ctx, outpass.StudentID, EventLateReturn, fmt.Sprintf(
			"Your ward has returned at %s, %d minutes past the approved time.",
			now.Format(timeFormat), lateBy))
	} else {
		r.notify(ctx, outpass.StudentID, EventEntryLogged, fmt.Sprintf(
			"Your ward has returned on time at %s.", now.Format(timeFormat)))
	}

	return log, nil
}

func (r *LogReconciler) notify(ctx context.Context, studentID string, event NotificationEvent, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, studentID, event, message); err != nil {
		r.logger.Warn("Notification dispatch failed",
			"component", "core",
			"student_id", studentID,
			"event", string(event),
			"error", err,
		)
	}
}
