package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickflow/internal/bus"
	"tickflow/internal/model"
	"tickflow/internal/obs"
	"tickflow/internal/strategy"
	"tickflow/pkg/exception"
)

// Policy selects the behavior when a subscriber's queue saturates.
type Policy uint8

const (
	// PolicyDrop discards the newest event when the queue is full.
	// This matches the ingestion-first posture: a slow subscriber must
	// never stall the feed.
	PolicyDrop Policy = iota
	// PolicyBlock waits up to BlockTimeout for queue space, then drops.
	PolicyBlock
)

// Config controls dispatcher behavior.
type Config struct {
	QueueCapacity int
	Policy        Policy
	BlockTimeout  time.Duration
	WindowSize    int
	DrainOnClose  bool
	LogSkips      bool
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 1024
	}
	if c.Policy == PolicyBlock && c.BlockTimeout <= 0 {
		c.BlockTimeout = 100 * time.Millisecond
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 200
	}
	return c
}

// Dispatcher routes normalized events to the subscriber registered for
// the event's token. Each subscriber gets a bounded queue and one
// worker goroutine, so delivery preserves per-token arrival order
// while different subscribers progress independently. A failure inside
// one subscriber never reaches the ingestion path or its neighbors.
type Dispatcher struct {
	cfg     Config
	metrics *obs.Metrics

	mu     sync.RWMutex
	subs   map[model.Token]*subscription
	closed bool

	wg           sync.WaitGroup
	workerCtx    context.Context
	workerCancel context.CancelFunc
}

type subscription struct {
	sub   strategy.Subscriber
	sctx  *strategy.Context
	queue *bus.Queue
}

// NewDispatcher creates a dispatcher with the given config.
func NewDispatcher(cfg Config, metrics *obs.Metrics) *Dispatcher {
	workerCtx, workerCancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:          cfg.withDefaults(),
		metrics:      metrics,
		subs:         make(map[model.Token]*subscription),
		workerCtx:    workerCtx,
		workerCancel: workerCancel,
	}
}

// Register binds a subscriber to its token, creating its context and
// starting its delivery worker. Exactly one subscriber per token.
func (d *Dispatcher) Register(sub strategy.Subscriber) (*strategy.Context, error) {
	if sub == nil {
		return nil, exception.ErrNilSubscriber
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, exception.ErrDispatcherClosed
	}
	token := sub.Token()
	if _, exists := d.subs[token]; exists {
		return nil, errors.Wrapf(exception.ErrSubscriberRegistered, "token %q", token)
	}

	s := &subscription{
		sub:   sub,
		sctx:  strategy.NewContext(token, d.cfg.WindowSize),
		queue: bus.NewQueue(d.cfg.QueueCapacity),
	}
	d.subs[token] = s

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		s.queue.Run(d.workerCtx, func(event model.Event) {
			d.deliver(s, event)
		})
	}()

	logs.Infof("registered subscriber %s for token %s", sub.Name(), token)
	return s.sctx, nil
}

// Unregister detaches the subscriber for token and tears down its
// context. The worker drains whatever is already queued, then exits.
func (d *Dispatcher) Unregister(token model.Token) {
	d.mu.Lock()
	s, ok := d.subs[token]
	if ok {
		delete(d.subs, token)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	s.queue.Close()
	logs.Infof("unregistered subscriber %s for token %s", s.sub.Name(), token)
}

// Dispatch routes one normalized event. Unrouted tokens are expected
// and cheap; queue saturation follows the configured policy.
func (d *Dispatcher) Dispatch(event model.Event) {
	d.mu.RLock()
	s, ok := d.subs[event.Token]
	d.mu.RUnlock()
	if !ok {
		d.metrics.IncDispatchSkip()
		if d.cfg.LogSkips {
			logs.Debugf("no subscriber for token %s, dropping %s event", event.Token, event.Kind)
		}
		return
	}

	var err error
	switch d.cfg.Policy {
	case PolicyBlock:
		err = s.queue.Publish(event, d.cfg.BlockTimeout)
	default:
		err = s.queue.TryPublish(event)
	}
	switch err {
	case nil:
		d.metrics.IncDispatched()
	case exception.ErrQueueFull:
		d.metrics.IncQueueDrop()
		logs.Warnf("subscriber %s queue full, dropping %s event for token %s",
			s.sub.Name(), event.Kind, event.Token)
	case exception.ErrQueueClosed:
		// racing an unregister; nothing to do
	}
}

func (d *Dispatcher) deliver(s *subscription, event model.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.IncDeliveryError()
			logs.Errorf("subscriber %s panicked on token %s %s event: %v",
				s.sub.Name(), event.Token, event.Kind, r)
		}
	}()

	if err := s.sctx.AppendTick(event); err != nil {
		// a routing defect, not a subscriber bug: surface loudly and
		// leave the context untouched
		d.metrics.IncDeliveryError()
		logs.Errorf("routing invariant violated for subscriber %s: %+v", s.sub.Name(), err)
		return
	}
	if err := s.sub.OnTick(s.sctx, event); err != nil {
		d.metrics.IncDeliveryError()
		logs.Errorf("subscriber %s failed on token %s %s event: %+v",
			s.sub.Name(), event.Token, event.Kind, err)
	}
}

// Close stops accepting events and joins all workers. Queued events
// are drained when DrainOnClose is set, discarded otherwise.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	subs := make([]*subscription, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	d.subs = make(map[model.Token]*subscription)
	d.mu.Unlock()

	for _, s := range subs {
		s.queue.Close()
	}
	if !d.cfg.DrainOnClose {
		d.workerCancel()
	}
	d.wg.Wait()
	d.workerCancel()
}
