// Package timing provides the wall-clock implementation of the Clock service.
package timing

import (
	"time"

	"voiceid/internal/domain/service"
)

// realClock is a concrete implementation of the Clock interface backed by the
// system clock.
type realClock struct{}

// NewClock is the constructor for realClock.
func NewClock() service.Clock {
	return &realClock{}
}

// Now returns the current wall-clock time.
func (c *realClock) Now() time.Time {
	return time.Now()
}

// NewTicker returns a ticker firing every d.
func (c *realClock) NewTicker(d time.Duration) service.Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
