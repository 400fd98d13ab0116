package events

import (
	"context"
	"log/slog"
)

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishUserRegistered(ctx context.Context, ev UserRegistered) error {
	p.log.InfoContext(ctx, "event.user_registered",
		"user_id", ev.UserID,
		"occurred_at", ev.OccurredAt,
	)
	return nil
}
