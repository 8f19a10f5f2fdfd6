package strategy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickflow/internal/model"
)

func feedPrices(t *testing.T, m *Momentum, ctx *Context, prices []string) {
	t.Helper()
	for _, p := range prices {
		event := tickEvent(m.Token(), p)
		require.NoError(t, ctx.AppendTick(event))
		require.NoError(t, m.OnTick(ctx, event))
	}
}

func TestMomentumGoesLongOnRally(t *testing.T) {
	m := NewMomentum("momentum-22", "22", 2, 4)
	ctx := NewContext("22", 50)

	var signals []Signal
	m.WithSignalFunc(func(sig Signal, _ model.Event) {
		signals = append(signals, sig)
	})

	// flat warmup, then a steady rally
	prices := []string{"100", "100", "100", "100"}
	for i := 1; i <= 6; i++ {
		prices = append(prices, fmt.Sprintf("%d", 100+i*2))
	}
	feedPrices(t, m, ctx, prices)

	require.NotEmpty(t, signals)
	assert.Equal(t, SignalLong, signals[0])
	assert.Equal(t, SignalLong, m.LastSignal())
}

func TestMomentumExitsOnReversal(t *testing.T) {
	m := NewMomentum("momentum-22", "22", 2, 4)
	ctx := NewContext("22", 50)

	var signals []Signal
	m.WithSignalFunc(func(sig Signal, _ model.Event) {
		signals = append(signals, sig)
	})

	prices := []string{"100", "100", "100", "100"}
	for i := 1; i <= 6; i++ {
		prices = append(prices, fmt.Sprintf("%d", 100+i*2))
	}
	for i := 1; i <= 8; i++ {
		prices = append(prices, fmt.Sprintf("%d", 112-i*2))
	}
	feedPrices(t, m, ctx, prices)

	require.GreaterOrEqual(t, len(signals), 2)
	assert.Equal(t, SignalLong, signals[0])
	assert.Equal(t, SignalExit, signals[1])
	assert.Equal(t, SignalExit, m.LastSignal())
}

func TestMomentumSilentDuringWarmup(t *testing.T) {
	m := NewMomentum("momentum-22", "22", 2, 4)
	ctx := NewContext("22", 50)

	fired := false
	m.WithSignalFunc(func(Signal, model.Event) { fired = true })

	feedPrices(t, m, ctx, []string{"100", "105", "110"})

	assert.False(t, fired, "no signal before the long window fills")
	assert.Equal(t, Signal(""), m.LastSignal())
}

func TestMomentumDoesNotRepeatSignal(t *testing.T) {
	m := NewMomentum("momentum-22", "22", 2, 4)
	ctx := NewContext("22", 50)

	count := 0
	m.WithSignalFunc(func(Signal, model.Event) { count++ })

	prices := []string{"100", "100", "100", "100"}
	for i := 1; i <= 20; i++ {
		prices = append(prices, fmt.Sprintf("%d", 100+i*2))
	}
	feedPrices(t, m, ctx, prices)

	assert.Equal(t, 1, count, "a sustained rally emits one LONG, not many")
}

func TestMomentumDefaults(t *testing.T) {
	m := NewMomentum("m", "22", 0, 0)
	assert.Equal(t, 5, m.short)
	assert.Equal(t, 20, m.long)

	m = NewMomentum("m", "22", 10, 5)
	assert.Equal(t, 10, m.short)
	assert.Equal(t, 20, m.long, "long must exceed short")
}
