package strategy

import "tickflow/internal/model"

// Subscriber consumes normalized events for exactly one token. The
// dispatcher resolves the token once at registration and never
// re-resolves per event.
type Subscriber interface {
	// Name identifies the subscriber in logs.
	Name() string

	// Token is the single token this subscriber accepts.
	Token() model.Token

	// OnTick handles one delivered event after it has been folded into
	// ctx. Errors are isolated at the dispatcher boundary.
	OnTick(ctx *Context, event model.Event) error
}

// Func adapts a plain function into a Subscriber.
type Func struct {
	SubName  string
	SubToken model.Token
	Handler  func(ctx *Context, event model.Event) error
}

func (f Func) Name() string {
	return f.SubName
}

func (f Func) Token() model.Token {
	return f.SubToken
}

func (f Func) OnTick(ctx *Context, event model.Event) error {
	if f.Handler == nil {
		return nil
	}
	return f.Handler(ctx, event)
}
