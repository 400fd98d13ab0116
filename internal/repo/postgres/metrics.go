package postgres

import "github.com/geocoder89/hirebase/internal/observability"

type observer struct {
	prom *observability.Prom
}

// observe times fn under op when metrics are wired; otherwise it just runs fn.
func (o observer) observe(op string, fn func() error) error {
	if o.prom == nil {
		return fn()
	}
	return o.prom.ObserveDB(op, fn)
}
