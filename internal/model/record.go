package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the reconstructed state of one token. A Record exists only
// after a snapshot established the token; absence in the store is the
// "not established" state.
type Record struct {
	Token         Token
	Exchange      string
	DisplayName   string
	Fields        map[string]string
	Price         decimal.Decimal
	HasPrice      bool
	LastMessageAt time.Time
	LastPriceAt   time.Time
}

// Clone returns a deep copy safe to hand outside the owning store.
func (r Record) Clone() Record {
	out := r
	out.Fields = make(map[string]string, len(r.Fields))
	for key, value := range r.Fields {
		out.Fields[key] = value
	}
	return out
}
