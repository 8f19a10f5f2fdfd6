package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickflow/internal/model/enum"
	"tickflow/pkg/exception"
)

func TestDecodeRawSnapshot(t *testing.T) {
	msg, err := DecodeRaw([]byte(`{"t":"tk","e":"NSE","tk":"22","ts":"ACC-EQ","lp":"1318.00","v":"1000","o":"1310.00"}`))
	require.NoError(t, err)

	assert.Equal(t, enum.MessageSnapshot, msg.Type)
	assert.Equal(t, Token("22"), msg.Token)
	assert.Equal(t, "NSE", msg.Exchange)
	assert.Equal(t, "ACC-EQ", msg.DisplayName)
	require.True(t, msg.HasPrice)
	assert.Equal(t, "1318", msg.Price.String())

	// every wire key except the type tag survives in Fields
	assert.Equal(t, "1000", msg.Fields["v"])
	assert.Equal(t, "1310.00", msg.Fields["o"])
	assert.Equal(t, "1318.00", msg.Fields["lp"])
	_, hasTag := msg.Fields[KeyType]
	assert.False(t, hasTag)
}

func TestDecodeRawDeltaWithoutPrice(t *testing.T) {
	msg, err := DecodeRaw([]byte(`{"t":"tf","e":"NSE","tk":"22","v":"5000"}`))
	require.NoError(t, err)

	assert.Equal(t, enum.MessageDelta, msg.Type)
	assert.False(t, msg.HasPrice, "absent lp means absent, never zero")
	assert.True(t, msg.Price.IsZero())
}

func TestDecodeRawMalformedPrice(t *testing.T) {
	msg, err := DecodeRaw([]byte(`{"t":"tf","tk":"22","lp":"not-a-number"}`))
	require.NoError(t, err, "one bad field must not kill the frame")

	assert.False(t, msg.HasPrice)
	assert.Equal(t, "not-a-number", msg.Fields["lp"])
}

func TestDecodeRawUnknownType(t *testing.T) {
	msg, err := DecodeRaw([]byte(`{"t":"om","tk":"22"}`))
	require.NoError(t, err)
	assert.Equal(t, enum.MessageUnknown, msg.Type)
	assert.False(t, msg.Type.IsAvailable())
}

func TestDecodeRawRequiredKeys(t *testing.T) {
	_, err := DecodeRaw([]byte(`{"tk":"22","lp":"100.00"}`))
	assert.ErrorIs(t, err, exception.ErrMissingTypeTag)

	_, err = DecodeRaw([]byte(`{"t":"tk","lp":"100.00"}`))
	assert.ErrorIs(t, err, exception.ErrMissingToken)

	_, err = DecodeRaw([]byte(`garbage`))
	assert.Error(t, err)
}

func TestDecodeRawStringifiesNonStringFields(t *testing.T) {
	msg, err := DecodeRaw([]byte(`{"t":"tf","tk":"22","v":5000,"pc":-0.25,"ok":true,"x":null}`))
	require.NoError(t, err)

	assert.Equal(t, "5000", msg.Fields["v"])
	assert.Equal(t, "-0.25", msg.Fields["pc"])
	assert.Equal(t, "true", msg.Fields["ok"])
	assert.Equal(t, "", msg.Fields["x"])
}

func TestEncodeRawRoundtrip(t *testing.T) {
	original := []byte(`{"t":"tk","e":"NSE","tk":"22","ts":"ACC-EQ","lp":"1318.00"}`)
	msg, err := DecodeRaw(original)
	require.NoError(t, err)

	encoded, err := EncodeRaw(msg)
	require.NoError(t, err)

	var got, want map[string]string
	require.NoError(t, json.Unmarshal(encoded, &got))
	require.NoError(t, json.Unmarshal(original, &want))
	assert.Equal(t, want, got)

	again, err := DecodeRaw(encoded)
	require.NoError(t, err)
	assert.Equal(t, msg.Type, again.Type)
	assert.Equal(t, msg.Token, again.Token)
	assert.Equal(t, msg.Fields, again.Fields)
}

func TestRecordCloneIsDeep(t *testing.T) {
	rec := Record{Token: "22", Fields: map[string]string{"v": "1"}}
	clone := rec.Clone()
	clone.Fields["v"] = "2"
	assert.Equal(t, "1", rec.Fields["v"])
}
