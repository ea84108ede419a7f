package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDecoder struct {
	claims map[string]*TokenClaims
	errs   map[string]error
}

func newMockDecoder() *mockDecoder {
	return &mockDecoder{
		claims: make(map[string]*TokenClaims),
		errs:   make(map[string]error),
	}
}

func (m *mockDecoder) Decode(raw string) (*TokenClaims, error) {
	if err, ok := m.errs[raw]; ok {
		return nil, err
	}
	if claims, ok := m.claims[raw]; ok {
		return claims, nil
	}
	return nil, fmt.Errorf("%w: unknown token", ErrMalformedToken)
}

// seedApprovedOutpass stores an approved outpass whose window spans
// [now-1h, now+3h] and registers a decodable token for it.
func seedApprovedOutpass(storage *mockStorage, decoder *mockDecoder, clock Clock) (*Outpass, string) {
	now := clock.Now()
	outpass := &Outpass{
		ID:        "op_1",
		StudentID: "std_1",
		Status:    StatusApproved,
		FromTime:  now.Add(-time.Hour),
		ToTime:    now.Add(3 * time.Hour),
	}
	storage.outpasses[outpass.ID] = outpass

	token := "token-op_1"
	decoder.claims[token] = &TokenClaims{
		OutpassID:  outpass.ID,
		StudentID:  outpass.StudentID,
		WindowFrom: outpass.FromTime,
		WindowTo:   outpass.ToTime,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ApprovalTokenTTL),
	}
	return outpass, token
}

func TestScanValidator_Validate_Exit(t *testing.T) {
	storage := newMockStorage()
	seedStudent(storage)
	decoder := newMockDecoder()
	clock := testClock()
	outpass, token := seedApprovedOutpass(storage, decoder, clock)
	validator := NewScanValidator(storage, decoder, clock, testLogger())

	decision, err := validator.Validate(context.Background(), token, ActionExit)
	require.NoError(t, err)

	assert.True(t, decision.CanProceed)
	assert.Empty(t, decision.Reason)
	assert.Equal(t, outpass.ID, decision.Outpass.ID)
	assert.Equal(t, "std_1", decision.Student.ID)
	assert.Nil(t, decision.Log)
}

func TestScanValidator_Validate_TokenErrors(t *testing.T) {
	storage := newMockStorage()
	seedStudent(storage)
	decoder := newMockDecoder()
	clock := testClock()
	seedApprovedOutpass(storage, decoder, clock)
	decoder.errs["expired"] = fmt.Errorf("%w: past expiry", ErrExpiredToken)
	validator := NewScanValidator(storage, decoder, clock, testLogger())

	_, err := validator.Validate(context.Background(), "garbage", ActionExit)
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = validator.Validate(context.Background(), "expired", ActionExit)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestScanValidator_Validate_NotApproved(t *testing.T) {
	storage := newMockStorage()
	seedStudent(storage)
	decoder := newMockDecoder()
	clock := testClock()
	outpass, token := seedApprovedOutpass(storage, decoder, clock)
	validator := NewScanValidator(storage, decoder, clock, testLogger())

	// A token that outlives its outpass decision must not pass
	storage.outpasses[outpass.ID].Status = StatusRejected

	_, err := validator.Validate(context.Background(), token, ActionExit)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanValidator_Validate_OutOfWindow(t *testing.T) {
	storage := newMockStorage()
	seedStudent(storage)
	decoder := newMockDecoder()
	clock := testClock()
	outpass, token := seedApprovedOutpass(storage, decoder, clock)
	validator := NewScanValidator(storage, decoder, clock, testLogger())

	clock.Set(outpass.FromTime.Add(-time.Minute))
	_, err := validator.Validate(context.Background(), token, ActionExit)
	assert.ErrorIs(t, err, ErrOutOfWindow)

	// Token claims are informational; tightening the live record wins
	clock.Set(outpass.FromTime.Add(time.Hour))
	storage.outpasses[outpass.ID].ToTime = clock.Now().Add(-time.Minute)
	_, err = validator.Validate(context.Background(), token, ActionExit)
	assert.ErrorIs(t, err, ErrOutOfWindow)
}

func TestScanValidator_Validate_LogOrdering(t *testing.T) {
	storage := newMockStorage()
	seedStudent(storage)
	decoder := newMockDecoder()
	clock := testClock()
	outpass, token := seedApprovedOutpass(storage, decoder, clock)
	validator := NewScanValidator(storage, decoder, clock, testLogger())

	// Entry with no log yet
	decision, err := validator.Validate(context.Background(), token, ActionEntry)
	require.NoError(t, err)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, ReasonMustExitFirst, decision.Reason)

	exitTime := clock.Now()
	storage.logs[outpass.ID] = &EntryExitLog{
		ID:        "log_1",
		OutpassID: outpass.ID,
		StudentID: outpass.StudentID,
		ExitTime:  &exitTime,
	}

	// Exit already recorded
	decision, err = validator.Validate(context.Background(), token, ActionExit)
	require.NoError(t, err)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, ReasonAlreadyExited, decision.Reason)

	// Entry now permitted
	decision, err = validator.Validate(context.Background(), token, ActionEntry)
	require.NoError(t, err)
	assert.True(t, decision.CanProceed)

	entryTime := exitTime.Add(2 * time.Hour)
	storage.logs[outpass.ID].EntryTime = &entryTime

	decision, err = validator.Validate(context.Background(), token, ActionEntry)
	require.NoError(t, err)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, ReasonAlreadyReturned, decision.Reason)

	decision, err = validator.Validate(context.Background(), token, ActionExit)
	require.NoError(t, err)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, ReasonAlreadyCompleted, decision.Reason)
}
