package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickflow/internal/model"
)

func TestScriptFeedsInOrder(t *testing.T) {
	script, err := ScriptFromFrames([][]byte{
		[]byte(`{"t":"tk","e":"NSE","tk":"22","lp":"100.00"}`),
		[]byte(`{"t":"tf","e":"NSE","tk":"22","lp":"101.00"}`),
		[]byte(`{"t":"tf","e":"NSE","tk":"22","v":"5"}`),
	})
	require.NoError(t, err)

	var tokens []model.Token
	var prices []string
	err = script.Run(context.Background(), func(msg model.RawMessage) {
		tokens = append(tokens, msg.Token)
		if msg.HasPrice {
			prices = append(prices, msg.Price.String())
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []model.Token{"22", "22", "22"}, tokens)
	assert.Equal(t, []string{"100", "101"}, prices)
}

func TestScriptRejectsBadFrame(t *testing.T) {
	_, err := ScriptFromFrames([][]byte{
		[]byte(`{"t":"tk","tk":"22"}`),
		[]byte(`not json`),
	})
	assert.Error(t, err)
}

func TestScriptStopsOnCanceledContext(t *testing.T) {
	script, err := ScriptFromFrames([][]byte{
		[]byte(`{"t":"tk","tk":"22","lp":"100.00"}`),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	delivered := 0
	err = script.Run(ctx, func(model.RawMessage) { delivered++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, delivered)
}
