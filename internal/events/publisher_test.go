package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_EncodesEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	err := p.PublishUserRegistered(context.Background(), UserRegistered{
		UserID:     "u1",
		Email:      "a@example.com",
		FirstName:  "A",
		LastName:   "B",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "u1" {
		t.Fatalf("expected key u1, got %q", msg.Key)
	}

	var got UserRegistered
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != TypeUserRegistered || got.Email != "a@example.com" || !got.OccurredAt.Equal(at) {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestKafkaPublisher_PropagatesWriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("no leader")}}

	if err := p.PublishUserRegistered(context.Background(), UserRegistered{UserID: "u1"}); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "t"); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Fatalf("expected error without topic")
	}
}

type stubPublisher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubPublisher) PublishUserRegistered(context.Context, UserRegistered) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

const testCooldown = 20 * time.Millisecond

func TestProtectedPublisher_OpensAfterThreshold(t *testing.T) {
	inner := &stubPublisher{err: errors.New("broker down")}
	p := NewProtectedPublisher(inner, ProtectedPublisherConfig{FailureThreshold: 2, Cooldown: time.Minute})

	ctx := context.Background()
	_ = p.PublishUserRegistered(ctx, UserRegistered{})
	_ = p.PublishUserRegistered(ctx, UserRegistered{})

	if p.State() != "open" {
		t.Fatalf("expected open, got %s", p.State())
	}

	if err := p.PublishUserRegistered(ctx, UserRegistered{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open circuit must not call inner, calls=%d", inner.calls)
	}
}

func TestProtectedPublisher_HalfOpenRecovers(t *testing.T) {
	inner := &stubPublisher{err: errors.New("broker down")}
	p := NewProtectedPublisher(inner, ProtectedPublisherConfig{FailureThreshold: 1, Cooldown: testCooldown})

	ctx := context.Background()
	_ = p.PublishUserRegistered(ctx, UserRegistered{})

	if p.State() != "open" {
		t.Fatalf("expected open, got %s", p.State())
	}

	time.Sleep(2 * testCooldown)
	inner.mu.Lock()
	inner.err = nil
	inner.mu.Unlock()

	if err := p.PublishUserRegistered(ctx, UserRegistered{}); err != nil {
		t.Fatalf("trial call should pass: %v", err)
	}
	if p.State() != "closed" {
		t.Fatalf("expected closed after successful trial, got %s", p.State())
	}
}

func TestProtectedPublisher_FailedTrialReopens(t *testing.T) {
	inner := &stubPublisher{err: errors.New("broker down")}
	p := NewProtectedPublisher(inner, ProtectedPublisherConfig{FailureThreshold: 1, Cooldown: testCooldown})

	ctx := context.Background()
	_ = p.PublishUserRegistered(ctx, UserRegistered{})

	time.Sleep(2 * testCooldown)
	_ = p.PublishUserRegistered(ctx, UserRegistered{})

	if p.State() != "open" {
		t.Fatalf("failed trial should reopen, got %s", p.State())
	}
	if err := p.PublishUserRegistered(ctx, UserRegistered{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen right after reopening, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("calls = %d, want 2", inner.calls)
	}
}

type slowPublisher struct{}

func (slowPublisher) PublishUserRegistered(ctx context.Context, _ UserRegistered) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestProtectedPublisher_BoundsEachPublish(t *testing.T) {
	p := NewProtectedPublisher(slowPublisher{}, ProtectedPublisherConfig{Timeout: 10 * time.Millisecond})

	start := time.Now()
	err := p.PublishUserRegistered(context.Background(), UserRegistered{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("publish was not bounded by the timeout")
	}
}
