package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"outpass/internal/core"
)

// Sender delivers one composed message to a student's parent
type Sender interface {
	Send(ctx context.Context, student *core.Student, message string) error
	Channel() string
}

// TelegramSender delivers parent notifications over Telegram
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSender creates a sender from a bot token
func NewTelegramSender(token string) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	return &TelegramSender{api: api}, nil
}

// Send delivers the message to the parent's linked chat
func (t *TelegramSender) Send(ctx context.Context, student *core.Student, message string) error {
	if student.ParentChatID == 0 {
		return fmt.Errorf("student %s has no linked parent chat", student.ID)
	}
	msg := tgbotapi.NewMessage(student.ParentChatID, message)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Channel names the delivery channel for the audit record
func (t *TelegramSender) Channel() string {
	return "telegram"
}

// LogSender writes notifications to the log only. Used when no Telegram
// token is configured and in tests.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message
func (l *LogSender) Send(ctx context.Context, student *core.Student, message string) error {
	l.logger.Info("Parent notification",
		"component", "notify",
		"student_id", student.ID,
		"parent", student.ParentName,
		"message", message,
	)
	return nil
}

// Channel names the delivery channel for the audit record
func (l *LogSender) Channel() string {
	return "log"
}
