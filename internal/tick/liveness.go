package tick

import (
	"sync/atomic"
	"time"
)

// Liveness holds the shared feed timestamps the heartbeat monitor
// watches. Writes come from the ingestion path, reads from the monitor
// goroutine; both sides go through atomics so neither ever blocks the
// other.
type Liveness struct {
	lastMessageNano atomic.Int64
	lastPriceNano   atomic.Int64
}

// NewLiveness allocates a liveness tracker with no observed activity.
func NewLiveness() *Liveness {
	return &Liveness{}
}

// TouchMessage records an accepted snapshot or delta.
func (l *Liveness) TouchMessage(at time.Time) {
	l.lastMessageNano.Store(at.UnixNano())
}

// TouchPrice records a price-bearing update.
func (l *Liveness) TouchPrice(at time.Time) {
	l.lastPriceNano.Store(at.UnixNano())
}

// LastMessage returns the time of the last accepted message. The
// second result is false before any message has been observed.
func (l *Liveness) LastMessage() (time.Time, bool) {
	nano := l.lastMessageNano.Load()
	if nano == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nano), true
}

// LastPrice returns the time of the last price-bearing update. The
// second result is false before any price has been observed.
func (l *Liveness) LastPrice() (time.Time, bool) {
	nano := l.lastPriceNano.Load()
	if nano == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nano), true
}
