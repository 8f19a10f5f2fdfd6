package heartbeat

import (
	"time"

	"github.com/yanun0323/logs"

	"tickflow/internal/obs"
	"tickflow/internal/tick"
)

// Kind names a liveness category.
type Kind string

const (
	KindMessage Kind = "message"
	KindPrice   Kind = "price"
)

// Warning reports a stale liveness category. Warnings never halt
// processing anywhere.
type Warning struct {
	Kind      Kind
	Elapsed   time.Duration
	Threshold time.Duration
}

// Config controls the monitor schedule and thresholds.
type Config struct {
	CheckInterval    time.Duration
	MessageThreshold time.Duration
	PriceThreshold   time.Duration
}

func (c Config) withDefaults() Config {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 5 * time.Second
	}
	if c.MessageThreshold <= 0 {
		c.MessageThreshold = 60 * time.Second
	}
	if c.PriceThreshold <= 0 {
		c.PriceThreshold = 300 * time.Second
	}
	return c
}

// Monitor watches the shared liveness timestamps on its own timer and
// emits a warning when a category goes stale. It only ever reads the
// timestamps, so it cannot delay ingestion.
//
// Warnings are edge triggered: one warning when a threshold is
// crossed, re-armed once a qualifying update arrives.
type Monitor struct {
	cfg      Config
	liveness *tick.Liveness
	warn     func(Warning)
	metrics  *obs.Metrics
	clock    func() time.Time

	messageStale bool
	priceStale   bool

	stop chan struct{}
	done chan struct{}
}

// NewMonitor creates a monitor over the given liveness tracker. A nil
// warn callback falls back to logging.
func NewMonitor(cfg Config, liveness *tick.Liveness, warn func(Warning), metrics *obs.Metrics) *Monitor {
	if warn == nil {
		warn = logWarning
	}
	return &Monitor{
		cfg:      cfg.withDefaults(),
		liveness: liveness,
		warn:     warn,
		metrics:  metrics,
		clock:    time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithClock swaps the time source, for deterministic tests.
func (m *Monitor) WithClock(clock func() time.Time) *Monitor {
	if clock != nil {
		m.clock = clock
	}
	return m
}

// Start launches the monitor goroutine.
func (m *Monitor) Start() {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.Check(m.clock())
			}
		}
	}()
}

// Stop signals the monitor and joins it.
func (m *Monitor) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done
}

// Check runs one liveness inspection at the given time. Exported so
// tests can drive the monitor without its timer.
func (m *Monitor) Check(now time.Time) {
	if last, ok := m.liveness.LastMessage(); ok {
		m.messageStale = m.inspect(KindMessage, now.Sub(last), m.cfg.MessageThreshold, m.messageStale)
	}
	if last, ok := m.liveness.LastPrice(); ok {
		m.priceStale = m.inspect(KindPrice, now.Sub(last), m.cfg.PriceThreshold, m.priceStale)
	}
}

func (m *Monitor) inspect(kind Kind, elapsed, threshold time.Duration, stale bool) bool {
	if elapsed <= threshold {
		return false
	}
	if stale {
		return true
	}
	m.metrics.IncHeartbeatWarning()
	m.warn(Warning{Kind: kind, Elapsed: elapsed, Threshold: threshold})
	return true
}

func logWarning(w Warning) {
	logs.Warnf("heartbeat: no %s update for %.0fs (threshold %.0fs)",
		w.Kind, w.Elapsed.Seconds(), w.Threshold.Seconds())
}
