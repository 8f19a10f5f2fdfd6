package transport

import (
	"context"

	"tickflow/internal/model"
)

// Handler consumes decoded raw messages in arrival order.
type Handler func(model.RawMessage)

// Transport feeds raw messages into the pipeline. The live websocket
// client, the script transport and recorder playback all satisfy this,
// and downstream components cannot tell them apart.
type Transport interface {
	// Run delivers messages to handler until the source is exhausted
	// or the context is canceled. Same-token messages are delivered in
	// source order.
	Run(ctx context.Context, handler Handler) error
}
