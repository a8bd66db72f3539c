package clock

import (
	"time"

	"roomscribe/internal/ports"
)

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

func (System) NewTicker(d time.Duration) ports.Ticker {
	return systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }
