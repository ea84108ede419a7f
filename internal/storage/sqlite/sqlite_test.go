package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass/internal/core"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	storage, err := New(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		storage.Close()
	})

	return storage
}

func seedStudent(t *testing.T, storage *SQLiteStorage) *core.Student {
	t.Helper()
	student := &core.Student{
		ID:           "std_1",
		RollNumber:   "STU001",
		Name:         "Asha Verma",
		Email:        "asha@example.com",
		RoomNumber:   "B-214",
		PasswordHash: "hash",
	}
	require.NoError(t, storage.CreateStudent(context.Background(), student))
	return student
}

func seedOutpass(t *testing.T, storage *SQLiteStorage, id string, status core.OutpassStatus) *core.Outpass {
	t.Helper()
	from := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	outpass := &core.Outpass{
		ID:            id,
		StudentID:     "std_1",
		Reason:        "Shopping",
		Place:         "Mall",
		City:          "Springfield",
		ParentContact: "+1-555-0100",
		FromTime:      from,
		ToTime:        from.Add(4 * time.Hour),
		Status:        core.StatusPending,
	}
	require.NoError(t, storage.CreateOutpass(context.Background(), outpass))

	if status != core.StatusPending {
		now := time.Now().UTC()
		outpass.Status = status
		outpass.DecidedBy = "wrd_1"
		outpass.DecidedAt = &now
		if status == core.StatusApproved {
			expiry := now.Add(24 * time.Hour)
			outpass.QRToken = "token-" + id
			outpass.QRExpiresAt = &expiry
		}
		require.NoError(t, storage.DecideOutpass(context.Background(), outpass))
	}
	return outpass
}

func TestSQLiteStorage_Students(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	student := seedStudent(t, storage)

	retrieved, err := storage.GetStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.RollNumber, retrieved.RollNumber)
	assert.Equal(t, student.Email, retrieved.Email)

	byEmail, err := storage.GetStudentByEmail(ctx, student.Email)
	require.NoError(t, err)
	assert.Equal(t, student.ID, byEmail.ID)

	byRoll, err := storage.GetStudentByRollNumber(ctx, student.RollNumber)
	require.NoError(t, err)
	assert.Equal(t, student.ID, byRoll.ID)

	_, err = storage.GetStudent(ctx, "nonexistent")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteStorage_WardensAndWatchmen(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	warden := &core.Warden{ID: "wrd_1", Name: "Mr. Rao", Email: "rao@example.com", PasswordHash: "hash"}
	require.NoError(t, storage.CreateWarden(ctx, warden))

	gotWarden, err := storage.GetWardenByEmail(ctx, warden.Email)
	require.NoError(t, err)
	assert.Equal(t, warden.ID, gotWarden.ID)

	watchman := &core.Watchman{ID: "wm_1", Name: "Gate One", Email: "gate1@example.com", GateNumber: "1", PasswordHash: "hash"}
	require.NoError(t, storage.CreateWatchman(ctx, watchman))

	gotWatchman, err := storage.GetWatchman(ctx, watchman.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", gotWatchman.GateNumber)

	_, err = storage.GetWardenByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteStorage_Outpasses(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)
	outpass := seedOutpass(t, storage, "op_1", core.StatusPending)

	retrieved, err := storage.GetOutpass(ctx, outpass.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, retrieved.Status)
	assert.Empty(t, retrieved.QRToken)
	assert.Nil(t, retrieved.QRExpiresAt)
	assert.Nil(t, retrieved.DecidedAt)
	assert.True(t, retrieved.FromTime.Equal(outpass.FromTime))

	_, err = storage.GetOutpass(ctx, "nonexistent")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteStorage_DecideOutpass(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)
	outpass := seedOutpass(t, storage, "op_1", core.StatusPending)

	now := time.Now().UTC()
	expiry := now.Add(24 * time.Hour)
	outpass.Status = core.StatusApproved
	outpass.DecidedBy = "wrd_1"
	outpass.DecidedAt = &now
	outpass.QRToken = "signed-token"
	outpass.QRExpiresAt = &expiry
	require.NoError(t, storage.DecideOutpass(ctx, outpass))

	retrieved, err := storage.GetOutpass(ctx, outpass.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusApproved, retrieved.Status)
	assert.Equal(t, "wrd_1", retrieved.DecidedBy)
	assert.Equal(t, "signed-token", retrieved.QRToken)
	require.NotNil(t, retrieved.QRExpiresAt)

	// A second decision finds the row no longer pending
	outpass.Status = core.StatusRejected
	err = storage.DecideOutpass(ctx, outpass)
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestSQLiteStorage_SetOutpassToken(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)
	pending := seedOutpass(t, storage, "op_1", core.StatusPending)
	approved := seedOutpass(t, storage, "op_2", core.StatusApproved)

	err := storage.SetOutpassToken(ctx, pending.ID, "tok", time.Now().UTC().Add(5*time.Minute))
	assert.ErrorIs(t, err, core.ErrNoActiveOutpass)

	newExpiry := time.Now().UTC().Add(5 * time.Minute)
	require.NoError(t, storage.SetOutpassToken(ctx, approved.ID, "fresh-token", newExpiry))

	retrieved, err := storage.GetOutpass(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", retrieved.QRToken)
	// Status untouched
	assert.Equal(t, core.StatusApproved, retrieved.Status)
}

func TestSQLiteStorage_GetActiveOutpass(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)

	// No outpasses at all
	active, err := storage.GetActiveOutpass(ctx, "std_1", time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, active)

	approved := seedOutpass(t, storage, "op_1", core.StatusApproved)

	active, err = storage.GetActiveOutpass(ctx, "std_1", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, approved.ID, active.ID)

	// Past the QR expiry nothing is active
	active, err = storage.GetActiveOutpass(ctx, "std_1", approved.QRExpiresAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSQLiteStorage_ListOutpasses(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)
	seedOutpass(t, storage, "op_1", core.StatusApproved)
	seedOutpass(t, storage, "op_2", core.StatusPending)
	seedOutpass(t, storage, "op_3", core.StatusRejected)

	all, err := storage.ListOutpassesByStudent(ctx, "std_1", "", 20, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pendingOnly, err := storage.ListOutpassesByStudent(ctx, "std_1", core.StatusPending, 20, 0)
	require.NoError(t, err)
	require.Len(t, pendingOnly, 1)
	assert.Equal(t, "op_2", pendingOnly[0].ID)

	byStatus, err := storage.ListOutpassesByStatus(ctx, core.StatusRejected, 20, 0)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "op_3", byStatus[0].ID)

	counts, err := storage.CountOutpasses(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 1, counts.Pending)
	assert.Equal(t, 1, counts.Approved)
	assert.Equal(t, 1, counts.Rejected)
	assert.Equal(t, 3, counts.Today)
}

func TestSQLiteStorage_Logs(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)
	outpass := seedOutpass(t, storage, "op_1", core.StatusApproved)

	// No log before the first exit scan
	log, err := storage.GetLogByOutpass(ctx, outpass.ID)
	require.NoError(t, err)
	assert.Nil(t, log)

	exitTime := time.Date(2026, 3, 14, 14, 5, 0, 0, time.UTC)
	log = &core.EntryExitLog{
		ID:             "log_1",
		OutpassID:      outpass.ID,
		StudentID:      "std_1",
		ExitTime:       &exitTime,
		ExitVerifiedBy: "wm_1",
		ReturnStatus:   core.ReturnPending,
	}
	require.NoError(t, storage.CreateLog(ctx, log))

	retrieved, err := storage.GetLogByOutpass(ctx, outpass.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	require.NotNil(t, retrieved.ExitTime)
	assert.True(t, retrieved.ExitTime.Equal(exitTime))
	assert.Nil(t, retrieved.EntryTime)
	assert.Equal(t, core.ReturnPending, retrieved.ReturnStatus)

	// The unique constraint rejects a second log for the same outpass
	dup := &core.EntryExitLog{
		ID:           "log_2",
		OutpassID:    outpass.ID,
		StudentID:    "std_1",
		ExitTime:     &exitTime,
		ReturnStatus: core.ReturnPending,
	}
	err = storage.CreateLog(ctx, dup)
	assert.ErrorIs(t, err, core.ErrInvalidAction)

	pending, err := storage.ListPendingReturns(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	entryTime := exitTime.Add(4 * time.Hour)
	retrieved.EntryTime = &entryTime
	retrieved.EntryVerifiedBy = "wm_2"
	retrieved.ReturnStatus = core.ReturnLate
	retrieved.LateMinutes = 5
	require.NoError(t, storage.CompleteLog(ctx, retrieved))

	completed, err := storage.GetLogByOutpass(ctx, outpass.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.EntryTime)
	assert.Equal(t, core.ReturnLate, completed.ReturnStatus)
	assert.Equal(t, 5, completed.LateMinutes)

	// Completed logs are immutable
	err = storage.CompleteLog(ctx, completed)
	assert.ErrorIs(t, err, core.ErrInvalidAction)

	pending, err = storage.ListPendingReturns(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLiteStorage_ListLogsByVerifier(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)
	first := seedOutpass(t, storage, "op_1", core.StatusApproved)
	second := seedOutpass(t, storage, "op_2", core.StatusApproved)

	exitTime := time.Date(2026, 3, 14, 14, 5, 0, 0, time.UTC)
	require.NoError(t, storage.CreateLog(ctx, &core.EntryExitLog{
		ID:             "log_1",
		OutpassID:      first.ID,
		StudentID:      "std_1",
		ExitTime:       &exitTime,
		ExitVerifiedBy: "wm_1",
		ReturnStatus:   core.ReturnPending,
	}))

	// The second movement is exited by wm_2 and returned past wm_1
	log := &core.EntryExitLog{
		ID:             "log_2",
		OutpassID:      second.ID,
		StudentID:      "std_1",
		ExitTime:       &exitTime,
		ExitVerifiedBy: "wm_2",
		ReturnStatus:   core.ReturnPending,
	}
	require.NoError(t, storage.CreateLog(ctx, log))
	entryTime := exitTime.Add(3 * time.Hour)
	log.EntryTime = &entryTime
	log.EntryVerifiedBy = "wm_1"
	log.ReturnStatus = core.ReturnOnTime
	require.NoError(t, storage.CompleteLog(ctx, log))

	today := time.Now().UTC()

	logs, err := storage.ListLogsByVerifier(ctx, "wm_1", today)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = storage.ListLogsByVerifier(ctx, "wm_2", today)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "log_2", logs[0].ID)

	logs, err = storage.ListLogsByVerifier(ctx, "wm_1", today.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSQLiteStorage_SetLogExit(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)
	outpass := seedOutpass(t, storage, "op_1", core.StatusApproved)

	// Row without an exit, as left by a partial write
	log := &core.EntryExitLog{
		ID:           "log_1",
		OutpassID:    outpass.ID,
		StudentID:    "std_1",
		ReturnStatus: core.ReturnPending,
	}
	require.NoError(t, storage.CreateLog(ctx, log))

	exitTime := time.Date(2026, 3, 14, 14, 5, 0, 0, time.UTC)
	log.ExitTime = &exitTime
	log.ExitVerifiedBy = "wm_1"
	require.NoError(t, storage.SetLogExit(ctx, log))

	retrieved, err := storage.GetLogByOutpass(ctx, outpass.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved.ExitTime)
	assert.True(t, retrieved.ExitTime.Equal(exitTime))
	assert.Equal(t, "wm_1", retrieved.ExitVerifiedBy)

	// A second write loses to the stored exit
	later := exitTime.Add(time.Minute)
	log.ExitTime = &later
	err = storage.SetLogExit(ctx, log)
	assert.ErrorIs(t, err, core.ErrInvalidAction)

	log.ExitTime = nil
	assert.ErrorIs(t, storage.SetLogExit(ctx, log), core.ErrValidation)
}

func TestSQLiteStorage_StudentStats(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)
	approved := seedOutpass(t, storage, "op_1", core.StatusApproved)
	seedOutpass(t, storage, "op_2", core.StatusRejected)

	exitTime := time.Date(2026, 3, 14, 14, 5, 0, 0, time.UTC)
	entryTime := exitTime.Add(5 * time.Hour)
	log := &core.EntryExitLog{
		ID:           "log_1",
		OutpassID:    approved.ID,
		StudentID:    "std_1",
		ExitTime:     &exitTime,
		ReturnStatus: core.ReturnPending,
	}
	require.NoError(t, storage.CreateLog(ctx, log))
	log.EntryTime = &entryTime
	log.ReturnStatus = core.ReturnLate
	log.LateMinutes = 65
	require.NoError(t, storage.CompleteLog(ctx, log))

	stats, err := storage.GetStudentStats(ctx, "std_1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOutpasses)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 1, stats.LateReturns)
}

func TestSQLiteStorage_Notifications(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedStudent(t, storage)

	n := &core.Notification{
		ID:        "ntf_1",
		StudentID: "std_1",
		Event:     core.EventOutpassApproved,
		Message:   "approved",
		Status:    "sent",
		SentVia:   "log",
	}
	require.NoError(t, storage.RecordNotification(ctx, n))

	list, err := storage.ListNotifications(ctx, "std_1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.EventOutpassApproved, list[0].Event)
	assert.Equal(t, "sent", list[0].Status)
}
