package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"tickflow/internal/model/enum"
	"tickflow/pkg/exception"
)

// Token is the opaque instrument identity key. It is never parsed or
// interpreted; equality is the only operation performed on it.
type Token string

// Wire keys of the touchline feed.
const (
	KeyType        = "t"
	KeyExchange    = "e"
	KeyToken       = "tk"
	KeyDisplayName = "ts"
	KeyPrice       = "lp"
)

// RawMessage is a single decoded feed message. Fields carries every
// wire key except the type tag, values as uninterpreted text, so the
// original payload survives normalization intact.
type RawMessage struct {
	Type        enum.MessageType
	Exchange    string
	Token       Token
	DisplayName string
	Price       decimal.Decimal
	HasPrice    bool
	Fields      map[string]string
}

// DecodeRaw parses a wire frame into a RawMessage.
func DecodeRaw(data []byte) (RawMessage, error) {
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		return RawMessage{}, errors.Wrap(err, "decode raw frame")
	}
	return DecodeRawFrame(frame)
}

// DecodeRawFrame builds a RawMessage from an already unmarshaled wire
// frame.
//
// The type tag and token are required. A price that fails to parse is
// kept as opaque text in Fields and reported as absent, the stream
// must survive malformed single fields.
func DecodeRawFrame(frame map[string]any) (RawMessage, error) {
	tag, ok := frame[KeyType].(string)
	if !ok {
		return RawMessage{}, exception.ErrMissingTypeTag
	}

	msg := RawMessage{
		Type:   enum.MessageTypeFromWire(tag),
		Fields: make(map[string]string, len(frame)),
	}

	for key, value := range frame {
		if key == KeyType {
			continue
		}
		msg.Fields[key] = stringifyField(value)
	}

	msg.Token = Token(msg.Fields[KeyToken])
	if msg.Token == "" {
		return RawMessage{}, exception.ErrMissingToken
	}

	msg.Exchange = msg.Fields[KeyExchange]
	msg.DisplayName = msg.Fields[KeyDisplayName]

	if lp, ok := msg.Fields[KeyPrice]; ok {
		if price, err := decimal.NewFromString(lp); err == nil {
			msg.Price = price
			msg.HasPrice = true
		}
	}

	return msg, nil
}

// EncodeRaw renders a RawMessage back into its wire frame.
func EncodeRaw(msg RawMessage) ([]byte, error) {
	frame := make(map[string]string, len(msg.Fields)+1)
	for key, value := range msg.Fields {
		frame[key] = value
	}
	frame[KeyType] = msg.Type.Wire()
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, errors.Wrap(err, "encode raw frame")
	}
	return data, nil
}

func stringifyField(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
