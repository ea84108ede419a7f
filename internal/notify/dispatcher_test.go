package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass/internal/core"
)

type mockStorage struct {
	mu       sync.Mutex
	students map[string]*core.Student
	records  []*core.Notification
}

func newMockStorage() *mockStorage {
	return &mockStorage{students: make(map[string]*core.Student)}
}

func (m *mockStorage) GetStudent(ctx context.Context, id string) (*core.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[id]
	if !ok {
		return nil, fmt.Errorf("%w: student %s", core.ErrNotFound, id)
	}
	return student, nil
}

func (m *mockStorage) RecordNotification(ctx context.Context, n *core.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, n)
	return nil
}

func (m *mockStorage) recorded() []*core.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.Notification(nil), m.records...)
}

type mockSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (m *mockSender) Send(ctx context.Context, student *core.Student, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("delivery refused")
	}
	m.sent = append(m.sent, message)
	return nil
}

func (m *mockSender) Channel() string {
	return "mock"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForRecords(t *testing.T, storage *mockStorage, want int) []*core.Notification {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		records := storage.recorded()
		if len(records) >= want {
			return records
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d notification records, got %d", want, len(records))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDispatcher_DeliversAndRecords(t *testing.T) {
	storage := newMockStorage()
	storage.students["std_1"] = &core.Student{ID: "std_1", Name: "Asha Verma"}
	sender := &mockSender{}
	queue := NewInMemory(4)
	dispatcher := NewDispatcher(storage, sender, queue, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	err := dispatcher.Notify(ctx, "std_1", core.EventOutpassApproved, "Your ward's outpass has been approved.")
	require.NoError(t, err)

	records := waitForRecords(t, storage, 1)
	assert.Equal(t, "std_1", records[0].StudentID)
	assert.Equal(t, core.EventOutpassApproved, records[0].Event)
	assert.Equal(t, "sent", records[0].Status)
	assert.Equal(t, "mock", records[0].SentVia)
	assert.NotEmpty(t, records[0].ID)
}

func TestDispatcher_RecordsFailedDelivery(t *testing.T) {
	storage := newMockStorage()
	storage.students["std_1"] = &core.Student{ID: "std_1", Name: "Asha Verma"}
	sender := &mockSender{fail: true}
	queue := NewInMemory(4)
	dispatcher := NewDispatcher(storage, sender, queue, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	err := dispatcher.Notify(ctx, "std_1", core.EventLateReturn, "Your ward is late.")
	require.NoError(t, err)

	records := waitForRecords(t, storage, 1)
	assert.Equal(t, "failed", records[0].Status)
}

func TestDispatcher_DropsUnknownStudent(t *testing.T) {
	storage := newMockStorage()
	sender := &mockSender{}
	queue := NewInMemory(4)
	dispatcher := NewDispatcher(storage, sender, queue, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	err := dispatcher.Notify(ctx, "std_ghost", core.EventExitLogged, "left")
	require.NoError(t, err)

	// Give the worker a moment; nothing should be recorded
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, storage.recorded())
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Empty(t, sender.sent)
}

func TestInMemoryQueue_PublishConsume(t *testing.T) {
	queue := NewInMemory(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, queue.Publish(ctx, Message{Type: "a", Body: []byte("one")}))

	msgs, err := queue.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, "a", msg.Type)
		assert.Equal(t, []byte("one"), msg.Body)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMessageSerialization(t *testing.T) {
	msg := Message{Type: "outpass_approved", Body: []byte(`{"student_id":"std_1"}`)}

	round, ok := deserialize(serialize(msg))
	require.True(t, ok)
	assert.Equal(t, msg.Type, round.Type)
	assert.Equal(t, msg.Body, round.Body)

	_, ok = deserialize("no-separator")
	assert.False(t, ok)
}
