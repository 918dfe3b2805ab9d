// Package notify is the email boundary. Delivery is best-effort and always
// decoupled from the state transition that triggered it: messages go through
// the background job queue, and a failed send never rolls anything back.
package notify

import (
	"context"
	"log/slog"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender interface {
	SendEmail(ctx context.Context, m Message) error
}

// LogSender writes messages to the log instead of delivering them. It is
// the development default; deployments plug in a real sender.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendEmail(ctx context.Context, m Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email",
		slog.String("to", m.To),
		slog.String("subject", m.Subject),
	)
	return nil
}
