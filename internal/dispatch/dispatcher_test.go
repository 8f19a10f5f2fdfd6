package dispatch

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickflow/internal/model"
	"tickflow/internal/model/enum"
	"tickflow/internal/obs"
	"tickflow/internal/strategy"
	"tickflow/pkg/exception"
)

func priceEvent(token model.Token, price string) model.Event {
	return model.Event{
		Kind:     enum.EventDelta,
		Token:    token,
		Price:    decimal.RequireFromString(price),
		HasPrice: true,
	}
}

type recordingSub struct {
	name  string
	token model.Token

	mu     sync.Mutex
	prices []string
	fail   error
	panics bool
}

func (s *recordingSub) Name() string       { return s.name }
func (s *recordingSub) Token() model.Token { return s.token }

func (s *recordingSub) OnTick(_ *strategy.Context, event model.Event) error {
	if s.panics {
		panic("subscriber blew up")
	}
	s.mu.Lock()
	s.prices = append(s.prices, event.Price.String())
	s.mu.Unlock()
	return s.fail
}

func (s *recordingSub) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prices...)
}

func TestDispatchPreservesPerTokenOrder(t *testing.T) {
	metrics := obs.NewMetrics()
	d := NewDispatcher(Config{DrainOnClose: true}, metrics)
	sub := &recordingSub{name: "order", token: "22"}
	_, err := d.Register(sub)
	require.NoError(t, err)

	want := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		price := fmt.Sprintf("%d", 1000+i)
		want = append(want, price)
		d.Dispatch(priceEvent("22", price))
	}
	d.Close()

	assert.Equal(t, want, sub.seen())
	assert.EqualValues(t, 100, metrics.Read().Dispatched)
}

func TestDispatchSkipsUnroutedTokens(t *testing.T) {
	metrics := obs.NewMetrics()
	d := NewDispatcher(Config{DrainOnClose: true}, metrics)
	sub := &recordingSub{name: "routed", token: "22"}
	_, err := d.Register(sub)
	require.NoError(t, err)

	d.Dispatch(priceEvent("999", "50"))
	d.Dispatch(priceEvent("22", "100"))
	d.Close()

	assert.Equal(t, []string{"100"}, sub.seen())
	snap := metrics.Read()
	assert.EqualValues(t, 1, snap.DispatchSkips)
	assert.EqualValues(t, 1, snap.Dispatched)
}

func TestRegisterRejectsDuplicateToken(t *testing.T) {
	d := NewDispatcher(Config{DrainOnClose: true}, nil)
	defer d.Close()

	_, err := d.Register(&recordingSub{name: "first", token: "22"})
	require.NoError(t, err)

	_, err = d.Register(&recordingSub{name: "second", token: "22"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), exception.ErrSubscriberRegistered.Error())
}

func TestRegisterRejectsNilAndClosed(t *testing.T) {
	d := NewDispatcher(Config{DrainOnClose: true}, nil)

	_, err := d.Register(nil)
	assert.ErrorIs(t, err, exception.ErrNilSubscriber)

	d.Close()
	_, err = d.Register(&recordingSub{name: "late", token: "22"})
	assert.ErrorIs(t, err, exception.ErrDispatcherClosed)
}

func TestSubscriberErrorIsIsolated(t *testing.T) {
	metrics := obs.NewMetrics()
	d := NewDispatcher(Config{DrainOnClose: true}, metrics)
	failing := &recordingSub{name: "failing", token: "22", fail: fmt.Errorf("strategy bug")}
	healthy := &recordingSub{name: "healthy", token: "2885"}
	_, err := d.Register(failing)
	require.NoError(t, err)
	_, err = d.Register(healthy)
	require.NoError(t, err)

	d.Dispatch(priceEvent("22", "100"))
	d.Dispatch(priceEvent("2885", "200"))
	d.Dispatch(priceEvent("22", "101"))
	d.Close()

	assert.Equal(t, []string{"100", "101"}, failing.seen(), "a failing subscriber keeps receiving")
	assert.Equal(t, []string{"200"}, healthy.seen())
	assert.EqualValues(t, 2, metrics.Read().DeliveryErrors)
}

func TestSubscriberPanicIsIsolated(t *testing.T) {
	metrics := obs.NewMetrics()
	d := NewDispatcher(Config{DrainOnClose: true}, metrics)
	panicking := &recordingSub{name: "panicking", token: "22", panics: true}
	healthy := &recordingSub{name: "healthy", token: "2885"}
	_, err := d.Register(panicking)
	require.NoError(t, err)
	_, err = d.Register(healthy)
	require.NoError(t, err)

	d.Dispatch(priceEvent("22", "100"))
	d.Dispatch(priceEvent("2885", "200"))
	d.Close()

	assert.Equal(t, []string{"200"}, healthy.seen())
	assert.EqualValues(t, 1, metrics.Read().DeliveryErrors)
}

func TestDropPolicyCountsQueueDrops(t *testing.T) {
	metrics := obs.NewMetrics()
	d := NewDispatcher(Config{QueueCapacity: 1, DrainOnClose: true}, metrics)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	slow := strategy.Func{
		SubName:  "slow",
		SubToken: "22",
		Handler: func(_ *strategy.Context, _ model.Event) error {
			once.Do(func() { close(started) })
			<-release
			return nil
		},
	}
	_, err := d.Register(slow)
	require.NoError(t, err)

	// first event occupies the worker, second fills the queue
	d.Dispatch(priceEvent("22", "1"))
	<-started
	d.Dispatch(priceEvent("22", "2"))

	require.Eventually(t, func() bool {
		d.Dispatch(priceEvent("22", "3"))
		return metrics.Read().QueueDrops > 0
	}, time.Second, time.Millisecond)

	close(release)
	d.Close()
}

func TestContextAccumulatesPrices(t *testing.T) {
	d := NewDispatcher(Config{WindowSize: 3, DrainOnClose: true}, nil)
	sub := &recordingSub{name: "window", token: "22"}
	sctx, err := d.Register(sub)
	require.NoError(t, err)

	for _, p := range []string{"1", "2", "3", "4"} {
		d.Dispatch(priceEvent("22", p))
	}
	d.Close()

	last, ok := sctx.LastPrice()
	require.True(t, ok)
	assert.Equal(t, "4", last.String())

	prices := sctx.Prices(3)
	require.Len(t, prices, 3)
	assert.Equal(t, "2", prices[0].String())
	assert.Equal(t, "4", prices[2].String())
}

func TestUnregisterStopsDelivery(t *testing.T) {
	d := NewDispatcher(Config{DrainOnClose: true}, nil)
	sub := &recordingSub{name: "gone", token: "22"}
	_, err := d.Register(sub)
	require.NoError(t, err)

	d.Dispatch(priceEvent("22", "100"))
	d.Unregister("22")
	d.Dispatch(priceEvent("22", "101"))
	d.Close()

	assert.Equal(t, []string{"100"}, sub.seen())
}
