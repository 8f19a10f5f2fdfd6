package model

import (
	"github.com/shopspring/decimal"

	"tickflow/internal/model/enum"
)

// Event is the normalized output unit delivered to subscribers.
//
// For delta events whose originating message omitted a price, Price
// carries the previous record's price forward; it is never defaulted
// to zero. Raw is the originating message, unmodified.
type Event struct {
	Kind     enum.EventKind
	Token    Token
	Exchange string
	Price    decimal.Decimal
	HasPrice bool
	Raw      RawMessage
}
