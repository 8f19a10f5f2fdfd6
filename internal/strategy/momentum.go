package strategy

import (
	"github.com/yanun0323/logs"

	"tickflow/internal/model"
)

// Signal is a momentum state transition.
type Signal string

const (
	SignalLong Signal = "LONG"
	SignalExit Signal = "EXIT"
)

// Momentum is a demo SMA-crossover strategy: long when the short
// average crosses above the long average, exit on the way back down.
// It only emits signals; order placement lives outside this system.
type Momentum struct {
	name  string
	token model.Token
	short int
	long  int

	lastSignal Signal
	onSignal   func(Signal, model.Event)
}

// NewMomentum creates a momentum strategy for one token. Short and
// long default to 5 and 20 samples.
func NewMomentum(name string, token model.Token, short, long int) *Momentum {
	if short <= 0 {
		short = 5
	}
	if long <= short {
		long = 20
	}
	return &Momentum{
		name:  name,
		token: token,
		short: short,
		long:  long,
	}
}

// WithSignalFunc registers a callback invoked on each signal change.
func (m *Momentum) WithSignalFunc(fn func(Signal, model.Event)) *Momentum {
	m.onSignal = fn
	return m
}

func (m *Momentum) Name() string {
	return m.name
}

func (m *Momentum) Token() model.Token {
	return m.token
}

// LastSignal returns the most recent emitted signal, if any.
func (m *Momentum) LastSignal() Signal {
	return m.lastSignal
}

func (m *Momentum) OnTick(ctx *Context, event model.Event) error {
	prices := ctx.Prices(m.long + 5)
	if len(prices) < m.long {
		return nil
	}

	shortSMA := mean(prices[len(prices)-m.short:])
	longSMA := mean(prices[len(prices)-m.long:])

	switch {
	case shortSMA.GreaterThan(longSMA) && m.lastSignal != SignalLong:
		m.signal(SignalLong, event)
	case shortSMA.LessThan(longSMA) && m.lastSignal == SignalLong:
		m.signal(SignalExit, event)
	}
	return nil
}

func (m *Momentum) signal(sig Signal, event model.Event) {
	m.lastSignal = sig
	logs.Infof("strategy %s: %s token=%s price=%s", m.name, sig, event.Token, event.Price)
	if m.onSignal != nil {
		m.onSignal(sig, event)
	}
}
