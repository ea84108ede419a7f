package storage

import (
	"context"
	"time"

	"outpass/internal/core"
)

// OutpassCounts aggregates outpass totals for the warden dashboard
type OutpassCounts struct {
	Total    int
	Pending  int
	Approved int
	Rejected int
	Today    int
}

// StudentStats aggregates one student's outpass history
type StudentStats struct {
	TotalOutpasses int
	Approved       int
	Pending        int
	Rejected       int
	LateReturns    int
}

// Storage defines the interface for data persistence
type Storage interface {
	// Students
	CreateStudent(ctx context.Context, student *core.Student) error
	GetStudent(ctx context.Context, id string) (*core.Student, error)
	GetStudentByEmail(ctx context.Context, email string) (*core.Student, error)
	GetStudentByRollNumber(ctx context.Context, rollNumber string) (*core.Student, error)

	// Wardens
	CreateWarden(ctx context.Context, warden *core.Warden) error
	GetWarden(ctx context.Context, id string) (*core.Warden, error)
	GetWardenByEmail(ctx context.Context, email string) (*core.Warden, error)

	// Watchmen
	CreateWatchman(ctx context.Context, watchman *core.Watchman) error
	GetWatchman(ctx context.Context, id string) (*core.Watchman, error)
	GetWatchmanByEmail(ctx context.Context, email string) (*core.Watchman, error)

	// Outpasses
	CreateOutpass(ctx context.Context, outpass *core.Outpass) error
	GetOutpass(ctx context.Context, id string) (*core.Outpass, error)
	DecideOutpass(ctx context.Context, outpass *core.Outpass) error
	SetOutpassToken(ctx context.Context, id, token string, expiry time.Time) error
	GetActiveOutpass(ctx context.Context, studentID string, now time.Time) (*core.Outpass, error)
	ListOutpassesByStudent(ctx context.Context, studentID string, status core.OutpassStatus, limit, offset int) ([]*core.Outpass, error)
	ListOutpassesByStatus(ctx context.Context, status core.OutpassStatus, limit, offset int) ([]*core.Outpass, error)
	CountOutpasses(ctx context.Context, today time.Time) (*OutpassCounts, error)
	GetStudentStats(ctx context.Context, studentID string) (*StudentStats, error)

	// Entry/exit logs
	GetLogByOutpass(ctx context.Context, outpassID string) (*core.EntryExitLog, error)
	CreateLog(ctx context.Context, log *core.EntryExitLog) error
	SetLogExit(ctx context.Context, log *core.EntryExitLog) error
	CompleteLog(ctx context.Context, log *core.EntryExitLog) error
	ListPendingReturns(ctx context.Context) ([]*core.EntryExitLog, error)
	ListLogsForDate(ctx context.Context, date time.Time) ([]*core.EntryExitLog, error)
	ListLogsByVerifier(ctx context.Context, watchmanID string, date time.Time) ([]*core.EntryExitLog, error)

	// Notifications
	RecordNotification(ctx context.Context, n *core.Notification) error
	ListNotifications(ctx context.Context, studentID string, limit int) ([]*core.Notification, error)

	// Lifecycle
	Close() error
}
