package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/geocoder89/hirebase/internal/observability"
)

type SessionPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	Interval   time.Duration
	RunTimeout time.Duration
	// Retention keeps dead sessions around for this long after they expire
	// or are revoked.
	Retention time.Duration
}

// Janitor periodically deletes refresh sessions that can never be rotated
// again.
type Janitor struct {
	cfg     Config
	store   SessionPurger
	log     *slog.Logger
	prom    *observability.Prom
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) bool
	backoff backoff.BackOff

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, store SessionPurger, log *slog.Logger, prom *observability.Prom) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Janitor{
		cfg:     cfg,
		store:   store,
		log:     log,
		prom:    prom,
		now:     time.Now,
		sleep:   sleepCtx,
		backoff: newPurgeBackOff(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (j *Janitor) setReady(v bool) {
	j.readyMu.Lock()
	j.ready = v
	j.readyMu.Unlock()
}

func (j *Janitor) Ready() bool {
	j.readyMu.RLock()
	defer j.readyMu.RUnlock()
	return j.ready
}

// RunOnce purges everything that went dead before now minus Retention.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	runCtx, cancel := context.WithTimeout(ctx, j.cfg.RunTimeout)
	defer cancel()

	cutoff := j.now().UTC().Add(-j.cfg.Retention)

	n, err := j.store.PurgeExpired(runCtx, cutoff)
	if err != nil {
		j.record("error", 0)
		return 0, err
	}

	j.record("ok", n)
	return n, nil
}

func (j *Janitor) record(result string, purged int64) {
	if j.prom == nil {
		return
	}
	j.prom.JanitorRuns.WithLabelValues(result).Inc()
	if purged > 0 {
		j.prom.SessionsPurged.Add(float64(purged))
	}
}

// Run purges once immediately, then every Interval until ctx is done.
// Consecutive failures retry with exponential backoff, never waiting longer
// than Interval.
func (j *Janitor) Run(ctx context.Context) error {
	j.setReady(true)
	defer j.setReady(false)

	failures := 0
	j.backoff.Reset()

	for {
		n, err := j.RunOnce(ctx)

		wait := j.cfg.Interval

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			j.log.WarnContext(ctx, "session purge failed", "attempt", failures+1, "err", err)

			if b := j.backoff.NextBackOff(); b < wait {
				wait = b
			}
			failures++
		} else {
			if failures > 0 {
				j.backoff.Reset()
			}
			failures = 0
			if n > 0 {
				j.log.InfoContext(ctx, "purged sessions", "count", n)
			}
		}

		if !j.sleep(ctx, wait) {
			j.log.Info("janitor received shutdown signal")
			return nil
		}
	}
}
