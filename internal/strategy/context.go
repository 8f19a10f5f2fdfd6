package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"tickflow/internal/model"
	"tickflow/pkg/exception"
)

// Context is a subscriber's single-token state holder. It is created
// when the subscriber registers and torn down with it, and is mutated
// only by that subscriber's delivery worker, so it carries no lock.
//
// A Context never reasons about display names; the token is its only
// identity.
type Context struct {
	token     model.Token
	window    *Window
	lastPrice decimal.Decimal
	hasLast   bool
}

// NewContext binds a context to one token with the given window size.
func NewContext(token model.Token, windowSize int) *Context {
	return &Context{
		token:  token,
		window: NewWindow(windowSize),
	}
}

// Token returns the bound token.
func (c *Context) Token() model.Token {
	return c.token
}

// AppendTick folds a normalized event into the context.
//
// An event for a foreign token means the dispatcher routed wrongly;
// that is a corruption risk, so it fails loudly and leaves the context
// untouched rather than being coerced or dropped.
func (c *Context) AppendTick(event model.Event) error {
	if event.Token != c.token {
		return errors.Wrapf(exception.ErrTokenMismatch,
			"context bound to %q got event for %q", c.token, event.Token)
	}
	if event.HasPrice {
		c.window.Push(event.Price)
		c.lastPrice = event.Price
		c.hasLast = true
	}
	return nil
}

// LastPrice returns the most recent price seen, if any.
func (c *Context) LastPrice() (decimal.Decimal, bool) {
	return c.lastPrice, c.hasLast
}

// Window exposes the rolling price window.
func (c *Context) Window() *Window {
	return c.window
}

// Prices returns up to n of the newest price samples, oldest-first.
func (c *Context) Prices(n int) []decimal.Decimal {
	return c.window.Last(n)
}
