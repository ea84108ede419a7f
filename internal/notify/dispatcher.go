package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"outpass/internal/core"
	"outpass/internal/idgen"
)

// Storage is the persistence surface the dispatcher needs
type Storage interface {
	GetStudent(ctx context.Context, id string) (*core.Student, error)
	RecordNotification(ctx context.Context, n *core.Notification) error
}

// envelope is the queued wire form of one notification
type envelope struct {
	StudentID string `json:"student_id"`
	Event     string `json:"event"`
	Message   string `json:"message"`
}

// Dispatcher implements core.Notifier. Notify enqueues; a background
// worker resolves the student, delivers through the configured sender and
// records the outcome. Delivery failures never reach the caller, so a
// failed message cannot roll back the state transition that triggered it.
type Dispatcher struct {
	storage Storage
	sender  Sender
	queue   Queue
	logger  *slog.Logger
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(storage Storage, sender Sender, queue Queue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		storage: storage,
		sender:  sender,
		queue:   queue,
		logger:  logger,
	}
}

// Notify enqueues a parent notification for asynchronous delivery
func (d *Dispatcher) Notify(ctx context.Context, studentID string, event core.NotificationEvent, message string) error {
	body, err := json.Marshal(envelope{
		StudentID: studentID,
		Event:     string(event),
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return d.queue.Publish(ctx, Message{Type: string(event), Body: body})
}

// Run consumes the queue until the context is cancelled. Intended to run
// as a single background goroutine.
func (d *Dispatcher) Run(ctx context.Context) error {
	msgs, err := d.queue.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for msg := range msgs {
		d.deliver(ctx, msg)
	}
	return ctx.Err()
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	var env envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		d.logger.Error("Dropping undecodable notification",
			"component", "notify",
			"type", msg.Type,
			"error", err,
		)
		return
	}

	student, err := d.storage.GetStudent(ctx, env.StudentID)
	if err != nil {
		d.logger.Error("Notification target not found",
			"component", "notify",
			"student_id", env.StudentID,
			"error", err,
		)
		return
	}

	status := "sent"
	if err := d.sender.Send(ctx, student, env.Message); err != nil {
		status = "failed"
		d.logger.Warn("Notification delivery failed",
			"component", "notify",
			"student_id", student.ID,
			"event", env.Event,
			"error", err,
		)
	}

	record := &core.Notification{
		ID:        idgen.New(),
		StudentID: student.ID,
		Event:     core.NotificationEvent(env.Event),
		Message:   env.Message,
		Status:    status,
		SentVia:   d.sender.Channel(),
	}
	if err := d.storage.RecordNotification(ctx, record); err != nil {
		d.logger.Error("Failed to record notification",
			"component", "notify",
			"student_id", student.ID,
			"error", err,
		)
	}
}

// Ensure the dispatcher satisfies the core contract
var _ core.Notifier = (*Dispatcher)(nil)
