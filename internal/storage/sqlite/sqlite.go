package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"outpass/internal/core"
	"outpass/internal/storage"
)

// SQLiteStorage implements storage.Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS students (
			id TEXT PRIMARY KEY,
			roll_number TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			room_number TEXT NOT NULL DEFAULT '',
			parent_name TEXT NOT NULL DEFAULT '',
			parent_phone TEXT NOT NULL DEFAULT '',
			parent_chat_id INTEGER NOT NULL DEFAULT 0,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS wardens (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS watchmen (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			gate_number TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS outpasses (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			place TEXT NOT NULL,
			city TEXT NOT NULL,
			parent_contact TEXT NOT NULL,
			from_time DATETIME NOT NULL,
			to_time DATETIME NOT NULL,
			status TEXT NOT NULL,
			decided_by TEXT NOT NULL DEFAULT '',
			decided_at DATETIME,
			rejection_reason TEXT NOT NULL DEFAULT '',
			qr_token TEXT NOT NULL DEFAULT '',
			qr_expires_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (student_id) REFERENCES students(id)
		);

		CREATE TABLE IF NOT EXISTS entry_exit_logs (
			id TEXT PRIMARY KEY,
			outpass_id TEXT NOT NULL UNIQUE,
			student_id TEXT NOT NULL,
			exit_time DATETIME,
			exit_verified_by TEXT NOT NULL DEFAULT '',
			entry_time DATETIME,
			entry_verified_by TEXT NOT NULL DEFAULT '',
			return_status TEXT NOT NULL,
			late_minutes INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (outpass_id) REFERENCES outpasses(id),
			FOREIGN KEY (student_id) REFERENCES students(id)
		);

		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			event TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL,
			sent_via TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (student_id) REFERENCES students(id)
		);

		CREATE INDEX IF NOT EXISTS idx_outpasses_student ON outpasses(student_id);
		CREATE INDEX IF NOT EXISTS idx_outpasses_status ON outpasses(status);
		CREATE INDEX IF NOT EXISTS idx_logs_student ON entry_exit_logs(student_id);
		CREATE INDEX IF NOT EXISTS idx_notifications_student ON notifications(student_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// CreateStudent creates a new student record
func (s *SQLiteStorage) CreateStudent(ctx context.Context, student *core.Student) error {
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, roll_number, name, email, phone, room_number,
			parent_name, parent_phone, parent_chat_id, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, student.ID, student.RollNumber, student.Name, student.Email, student.Phone,
		student.RoomNumber, student.ParentName, student.ParentPhone, student.ParentChatID,
		student.PasswordHash, student.CreatedAt)
	return err
}

func (s *SQLiteStorage) getStudent(ctx context.Context, where string, arg any) (*core.Student, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, roll_number, name, email, phone, room_number,
			parent_name, parent_phone, parent_chat_id, password_hash, created_at
		FROM students WHERE `+where, arg)

	var student core.Student
	err := row.Scan(&student.ID, &student.RollNumber, &student.Name, &student.Email,
		&student.Phone, &student.RoomNumber, &student.ParentName, &student.ParentPhone,
		&student.ParentChatID, &student.PasswordHash, &student.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: student", core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// GetStudent retrieves a student by ID
func (s *SQLiteStorage) GetStudent(ctx context.Context, id string) (*core.Student, error) {
	return s.getStudent(ctx, "id = ?", id)
}

// GetStudentByEmail retrieves a student by email
func (s *SQLiteStorage) GetStudentByEmail(ctx context.Context, email string) (*core.Student, error) {
	return s.getStudent(ctx, "email = ?", email)
}

// GetStudentByRollNumber retrieves a student by institutional roll number
func (s *SQLiteStorage) GetStudentByRollNumber(ctx context.Context, rollNumber string) (*core.Student, error) {
	return s.getStudent(ctx, "roll_number = ?", rollNumber)
}

// CreateWarden creates a new warden record
func (s *SQLiteStorage) CreateWarden(ctx context.Context, warden *core.Warden) error {
	if warden.CreatedAt.IsZero() {
		warden.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wardens (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, warden.ID, warden.Name, warden.Email, warden.PasswordHash, warden.CreatedAt)
	return err
}

func (s *SQLiteStorage) getWarden(ctx context.Context, where string, arg any) (*core.Warden, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at FROM wardens WHERE `+where, arg)

	var warden core.Warden
	err := row.Scan(&warden.ID, &warden.Name, &warden.Email, &warden.PasswordHash, &warden.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: warden", core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &warden, nil
}

// GetWarden retrieves a warden by ID
func (s *SQLiteStorage) GetWarden(ctx context.Context, id string) (*core.Warden, error) {
	return s.getWarden(ctx, "id = ?", id)
}

// GetWardenByEmail retrieves a warden by email
func (s *SQLiteStorage) GetWardenByEmail(ctx context.Context, email string) (*core.Warden, error) {
	return s.getWarden(ctx, "email = ?", email)
}

// CreateWatchman creates a new watchman record
func (s *SQLiteStorage) CreateWatchman(ctx context.Context, watchman *core.Watchman) error {
	if watchman.CreatedAt.IsZero() {
		watchman.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchmen (id, name, email, gate_number, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, watchman.ID, watchman.Name, watchman.Email, watchman.GateNumber,
		watchman.PasswordHash, watchman.CreatedAt)
	return err
}

func (s *SQLiteStorage) getWatchman(ctx context.Context, where string, arg any) (*core.Watchman, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, gate_number, password_hash, created_at
		FROM watchmen WHERE `+where, arg)

	var watchman core.Watchman
	err := row.Scan(&watchman.ID, &watchman.Name, &watchman.Email, &watchman.GateNumber,
		&watchman.PasswordHash, &watchman.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: watchman", core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &watchman, nil
}

// GetWatchman retrieves a watchman by ID
func (s *SQLiteStorage) GetWatchman(ctx context.Context, id string) (*core.Watchman, error) {
	return s.getWatchman(ctx, "id = ?", id)
}

// GetWatchmanByEmail retrieves a watchman by email
func (s *SQLiteStorage) GetWatchmanByEmail(ctx context.Context, email string) (*core.Watchman, error) {
	return s.getWatchman(ctx, "email = ?", email)
}

const outpassColumns = `id, student_id, reason, place, city, parent_contact,
	from_time, to_time, status, decided_by, decided_at, rejection_reason,
	qr_token, qr_expires_at, created_at, updated_at`

func scanOutpass(scan func(...any) error) (*core.Outpass, error) {
	var outpass core.Outpass
	var status string
	var decidedAt, qrExpiresAt sql.NullTime

	err := scan(&outpass.ID, &outpass.StudentID, &outpass.Reason, &outpass.Place,
		&outpass.City, &outpass.ParentContact, &outpass.FromTime, &outpass.ToTime,
		&status, &outpass.DecidedBy, &decidedAt, &outpass.RejectionReason,
		&outpass.QRToken, &qrExpiresAt, &outpass.CreatedAt, &outpass.UpdatedAt)
	if err != nil {
		return nil, err
	}

	parsed, err := core.ParseOutpassStatus(status)
	if err != nil {
		return nil, err
	}
	outpass.Status = parsed

	if decidedAt.Valid {
		t := decidedAt.Time
		outpass.DecidedAt = &t
	}
	if qrExpiresAt.Valid {
		t := qrExpiresAt.Time
		outpass.QRExpiresAt = &t
	}
	return &outpass, nil
}

// CreateOutpass creates a new outpass request
func (s *SQLiteStorage) CreateOutpass(ctx context.Context, outpass *core.Outpass) error {
	now := time.Now().UTC()
	outpass.CreatedAt = now
	outpass.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outpasses (id, student_id, reason, place, city, parent_contact,
			from_time, to_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, outpass.ID, outpass.StudentID, outpass.Reason, outpass.Place, outpass.City,
		outpass.ParentContact, outpass.FromTime, outpass.ToTime, string(outpass.Status),
		outpass.CreatedAt, outpass.UpdatedAt)
	return err
}

// GetOutpass retrieves an outpass by ID
func (s *SQLiteStorage) GetOutpass(ctx context.Context, id string) (*core.Outpass, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+outpassColumns+` FROM outpasses WHERE id = ?`, id)

	outpass, err := scanOutpass(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: outpass %s", core.ErrNotFound, id)
	}
	return outpass, err
}

// DecideOutpass persists a pending→approved/rejected transition. The update
// is conditional on the stored status still being pending so concurrent
// decisions cannot both win.
func (s *SQLiteStorage) DecideOutpass(ctx context.Context, outpass *core.Outpass) error {
	outpass.UpdatedAt = time.Now().UTC()

	var decidedAt, qrExpiresAt sql.NullTime
	if outpass.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: *outpass.DecidedAt, Valid: true}
	}
	if outpass.QRExpiresAt != nil {
		qrExpiresAt = sql.NullTime{Time: *outpass.QRExpiresAt, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE outpasses
		SET status = ?, decided_by = ?, decided_at = ?, rejection_reason = ?,
			qr_token = ?, qr_expires_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(outpass.Status), outpass.DecidedBy, decidedAt, outpass.RejectionReason,
		outpass.QRToken, qrExpiresAt, outpass.UpdatedAt, outpass.ID, string(core.StatusPending))
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: outpass is no longer pending", core.ErrInvalidState)
	}
	return nil
}

// SetOutpassToken persists refreshed QR material for an approved outpass
func (s *SQLiteStorage) SetOutpassToken(ctx context.Context, id, token string, expiry time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE outpasses
		SET qr_token = ?, qr_expires_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, token, expiry, time.Now().UTC(), id, string(core.StatusApproved))
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: outpass %s", core.ErrNoActiveOutpass, id)
	}
	return nil
}

// GetActiveOutpass returns the most recent approved outpass for a student
// whose QR expiry is still in the future, or (nil, nil) when none exists.
func (s *SQLiteStorage) GetActiveOutpass(ctx context.Context, studentID string, now time.Time) (*core.Outpass, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+outpassColumns+` FROM outpasses
		WHERE student_id = ? AND status = ? AND qr_expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1
	`, studentID, string(core.StatusApproved), now)

	outpass, err := scanOutpass(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return outpass, err
}

func (s *SQLiteStorage) listOutpasses(ctx context.Context, where string, args []any, limit, offset int) ([]*core.Outpass, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + outpassColumns + ` FROM outpasses`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outpasses []*core.Outpass
	for rows.Next() {
		outpass, err := scanOutpass(rows.Scan)
		if err != nil {
			return nil, err
		}
		outpasses = append(outpasses, outpass)
	}
	return outpasses, rows.Err()
}

// ListOutpassesByStudent returns a student's outpasses, newest first.
// An empty status means no status filter.
func (s *SQLiteStorage) ListOutpassesByStudent(ctx context.Context, studentID string, status core.OutpassStatus, limit, offset int) ([]*core.Outpass, error) {
	where := "student_id = ?"
	args := []any{studentID}
	if status != "" {
		where += " AND status = ?"
		args = append(args, string(status))
	}
	return s.listOutpasses(ctx, where, args, limit, offset)
}

// ListOutpassesByStatus returns outpasses in a given status, newest first.
// An empty status means all outpasses.
func (s *SQLiteStorage) ListOutpassesByStatus(ctx context.Context, status core.OutpassStatus, limit, offset int) ([]*core.Outpass, error) {
	if status == "" {
		return s.listOutpasses(ctx, "", nil, limit, offset)
	}
	return s.listOutpasses(ctx, "status = ?", []any{string(status)}, limit, offset)
}

// CountOutpasses aggregates totals for the warden dashboard
func (s *SQLiteStorage) CountOutpasses(ctx context.Context, today time.Time) (*storage.OutpassCounts, error) {
	dayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'pending' THEN 1 END),
			COUNT(CASE WHEN status = 'approved' THEN 1 END),
			COUNT(CASE WHEN status = 'rejected' THEN 1 END),
			COUNT(CASE WHEN created_at >= ? AND created_at < ? THEN 1 END)
		FROM outpasses
	`, dayStart, dayEnd)

	var counts storage.OutpassCounts
	if err := row.Scan(&counts.Total, &counts.Pending, &counts.Approved,
		&counts.Rejected, &counts.Today); err != nil {
		return nil, err
	}
	return &counts, nil
}

// GetStudentStats aggregates one student's outpass history
func (s *SQLiteStorage) GetStudentStats(ctx context.Context, studentID string) (*storage.StudentStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(o.id),
			COUNT(CASE WHEN o.status = 'approved' THEN 1 END),
			COUNT(CASE WHEN o.status = 'pending' THEN 1 END),
			COUNT(CASE WHEN o.status = 'rejected' THEN 1 END),
			COUNT(CASE WHEN l.return_status = 'late' THEN 1 END)
		FROM outpasses o
		LEFT JOIN entry_exit_logs l ON o.id = l.outpass_id
		WHERE o.student_id = ?
	`, studentID)

	var stats storage.StudentStats
	if err := row.Scan(&stats.TotalOutpasses, &stats.Approved, &stats.Pending,
		&stats.Rejected, &stats.LateReturns); err != nil {
		return nil, err
	}
	return &stats, nil
}

const logColumns = `id, outpass_id, student_id, exit_time, exit_verified_by,
	entry_time, entry_verified_by, return_status, late_minutes, created_at, updated_at`

func scanLog(scan func(...any) error) (*core.EntryExitLog, error) {
	var log core.EntryExitLog
	var exitTime, entryTime sql.NullTime
	var returnStatus string

	err := scan(&log.ID, &log.OutpassID, &log.StudentID, &exitTime, &log.ExitVerifiedBy,
		&entryTime, &log.EntryVerifiedBy, &returnStatus, &log.LateMinutes,
		&log.CreatedAt, &log.UpdatedAt)
	if err != nil {
		return nil, err
	}

	log.ReturnStatus = core.ReturnStatus(returnStatus)
	if exitTime.Valid {
		t := exitTime.Time
		log.ExitTime = &t
	}
	if entryTime.Valid {
		t := entryTime.Time
		log.EntryTime = &t
	}
	return &log, nil
}

// GetLogByOutpass returns the log for an outpass, or (nil, nil) when no
// scan has happened yet.
func (s *SQLiteStorage) GetLogByOutpass(ctx context.Context, outpassID string) (*core.EntryExitLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM entry_exit_logs WHERE outpass_id = ?`, outpassID)

	log, err := scanLog(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return log, err
}

// CreateLog inserts the single log row for an outpass. The UNIQUE
// constraint on outpass_id makes concurrent first-exit scans race safely:
// exactly one insert wins and the loser gets ErrInvalidAction.
func (s *SQLiteStorage) CreateLog(ctx context.Context, log *core.EntryExitLog) error {
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now

	var exitTime, entryTime sql.NullTime
	if log.ExitTime != nil {
		exitTime = sql.NullTime{Time: *log.ExitTime, Valid: true}
	}
	if log.EntryTime != nil {
		entryTime = sql.NullTime{Time: *log.EntryTime, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entry_exit_logs (id, outpass_id, student_id, exit_time, exit_verified_by,
			entry_time, entry_verified_by, return_status, late_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.OutpassID, log.StudentID, exitTime, log.ExitVerifiedBy,
		entryTime, log.EntryVerifiedBy, string(log.ReturnStatus), log.LateMinutes,
		log.CreatedAt, log.UpdatedAt)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s", core.ErrInvalidAction, core.ReasonAlreadyExited)
	}
	return err
}

// SetLogExit records the exit fields on an existing log row. Conditional
// on exit_time still being unset so racing scans cannot overwrite it.
func (s *SQLiteStorage) SetLogExit(ctx context.Context, log *core.EntryExitLog) error {
	if log.ExitTime == nil {
		return fmt.Errorf("%w: exit time is required", core.ErrValidation)
	}
	log.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE entry_exit_logs
		SET exit_time = ?, exit_verified_by = ?, return_status = ?, updated_at = ?
		WHERE id = ? AND exit_time IS NULL
	`, *log.ExitTime, log.ExitVerifiedBy, string(log.ReturnStatus), log.UpdatedAt, log.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", core.ErrInvalidAction, core.ReasonAlreadyExited)
	}
	return nil
}

// CompleteLog records the return fields. Conditional on entry_time still
// being unset, which also makes the completed log immutable.
func (s *SQLiteStorage) CompleteLog(ctx context.Context, log *core.EntryExitLog) error {
	if log.EntryTime == nil {
		return fmt.Errorf("%w: entry time is required", core.ErrValidation)
	}
	log.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE entry_exit_logs
		SET entry_time = ?, entry_verified_by = ?, return_status = ?, late_minutes = ?, updated_at = ?
		WHERE id = ? AND exit_time IS NOT NULL AND entry_time IS NULL
	`, *log.EntryTime, log.EntryVerifiedBy, string(log.ReturnStatus), log.LateMinutes,
		log.UpdatedAt, log.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", core.ErrInvalidAction, core.ReasonAlreadyReturned)
	}
	return nil
}

// ListPendingReturns returns logs of students who exited but have not
// returned yet, oldest exit first.
func (s *SQLiteStorage) ListPendingReturns(ctx context.Context) ([]*core.EntryExitLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+logColumns+` FROM entry_exit_logs
		WHERE exit_time IS NOT NULL AND entry_time IS NULL
		ORDER BY exit_time ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLogs(rows)
}

// ListLogsForDate returns all logs created on the given calendar day
func (s *SQLiteStorage) ListLogsForDate(ctx context.Context, date time.Time) ([]*core.EntryExitLog, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+logColumns+` FROM entry_exit_logs
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at DESC
	`, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLogs(rows)
}

// ListLogsByVerifier returns the given day's logs where the watchman
// verified either side of the movement, most recent first.
func (s *SQLiteStorage) ListLogsByVerifier(ctx context.Context, watchmanID string, date time.Time) ([]*core.EntryExitLog, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+logColumns+` FROM entry_exit_logs
		WHERE (exit_verified_by = ? OR entry_verified_by = ?)
			AND created_at >= ? AND created_at < ?
		ORDER BY created_at DESC
	`, watchmanID, watchmanID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLogs(rows)
}

func collectLogs(rows *sql.Rows) ([]*core.EntryExitLog, error) {
	var logs []*core.EntryExitLog
	for rows.Next() {
		log, err := scanLog(rows.Scan)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// RecordNotification stores the audit record of a notification dispatch
func (s *SQLiteStorage) RecordNotification(ctx context.Context, n *core.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, student_id, event, message, status, sent_via, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.StudentID, string(n.Event), n.Message, n.Status, n.SentVia, n.CreatedAt)
	return err
}

// ListNotifications returns a student's notifications, newest first
func (s *SQLiteStorage) ListNotifications(ctx context.Context, studentID string, limit int) ([]*core.Notification, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, event, message, status, sent_via, created_at
		FROM notifications
		WHERE student_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*core.Notification
	for rows.Next() {
		var n core.Notification
		var event string
		if err := rows.Scan(&n.ID, &n.StudentID, &event, &n.Message, &n.Status,
			&n.SentVia, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Event = core.NotificationEvent(event)
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// Ensure the implementation satisfies the interface
var _ storage.Storage = (*SQLiteStorage)(nil)
