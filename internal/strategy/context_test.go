package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickflow/internal/model"
	"tickflow/internal/model/enum"
)

func tickEvent(token model.Token, price string) model.Event {
	return model.Event{
		Kind:     enum.EventDelta,
		Token:    token,
		Price:    decimal.RequireFromString(price),
		HasPrice: true,
	}
}

func pricelessEvent(token model.Token) model.Event {
	return model.Event{Kind: enum.EventDelta, Token: token}
}

func TestContextAppendTick(t *testing.T) {
	ctx := NewContext("22", 10)

	require.NoError(t, ctx.AppendTick(tickEvent("22", "100.5")))
	require.NoError(t, ctx.AppendTick(tickEvent("22", "101")))

	last, ok := ctx.LastPrice()
	require.True(t, ok)
	assert.Equal(t, "101", last.String())
	assert.Equal(t, 2, ctx.Window().Len())
}

func TestContextRejectsForeignToken(t *testing.T) {
	ctx := NewContext("22", 10)
	require.NoError(t, ctx.AppendTick(tickEvent("22", "100")))

	err := ctx.AppendTick(tickEvent("2885", "200"))
	require.Error(t, err)

	// state must be untouched by the rejected event
	last, ok := ctx.LastPrice()
	require.True(t, ok)
	assert.Equal(t, "100", last.String())
	assert.Equal(t, 1, ctx.Window().Len())
}

func TestContextSkipsPricelessEvents(t *testing.T) {
	ctx := NewContext("22", 10)

	require.NoError(t, ctx.AppendTick(pricelessEvent("22")))
	_, ok := ctx.LastPrice()
	assert.False(t, ok)
	assert.Equal(t, 0, ctx.Window().Len())
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Push(decimal.NewFromInt(int64(i)))
	}

	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 3, w.Cap())

	values := w.Values()
	require.Len(t, values, 3)
	assert.Equal(t, "3", values[0].String())
	assert.Equal(t, "5", values[2].String())
}

func TestWindowLast(t *testing.T) {
	w := NewWindow(5)
	for i := 1; i <= 4; i++ {
		w.Push(decimal.NewFromInt(int64(i)))
	}

	last := w.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "3", last[0].String())
	assert.Equal(t, "4", last[1].String())

	assert.Len(t, w.Last(10), 4, "asking beyond length returns everything")
}

func TestWindowMean(t *testing.T) {
	w := NewWindow(4)
	_, ok := w.Mean()
	assert.False(t, ok)

	w.Push(decimal.NewFromInt(2))
	w.Push(decimal.NewFromInt(4))
	m, ok := w.Mean()
	require.True(t, ok)
	assert.True(t, m.Equal(decimal.NewFromInt(3)))
}
