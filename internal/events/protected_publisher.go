package events

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type ProtectedPublisherConfig struct {
	Timeout          time.Duration // hard timeout per publish
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

// ProtectedPublisher keeps a slow or dead broker from stalling registration.
type ProtectedPublisher struct {
	inner   Publisher
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

func NewProtectedPublisher(inner Publisher, cfg ProtectedPublisherConfig) *ProtectedPublisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	threshold := uint32(cfg.FailureThreshold)

	return &ProtectedPublisher{
		inner:   inner,
		timeout: cfg.Timeout,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "user-events",
			MaxRequests: uint32(cfg.HalfOpenMaxCalls),
			Timeout:     cfg.Cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= threshold
			},
		}),
	}
}

func (p *ProtectedPublisher) PublishUserRegistered(ctx context.Context, ev UserRegistered) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		return nil, p.inner.PublishUserRegistered(pubCtx, ev)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State is "closed", "half-open" or "open".
func (p *ProtectedPublisher) State() string {
	return p.cb.State().String()
}
