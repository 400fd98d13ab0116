package events

import (
	"context"
	"time"
)

const TypeUserRegistered = "user.registered"

// UserRegistered is emitted after a successful registration. It never
// carries credentials.
type UserRegistered struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishUserRegistered(ctx context.Context, ev UserRegistered) error
}
