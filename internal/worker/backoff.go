package worker

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// newPurgeBackOff waits 2s, 4s, 8s ... up to 5m between failed purges, with
// jitter so replicas don't hit the store together.
func newPurgeBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffBase
	b.Multiplier = 2
	b.MaxInterval = backoffCap
	b.RandomizationFactor = 0.1
	b.Reset()
	return b
}
