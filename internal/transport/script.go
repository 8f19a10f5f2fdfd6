package transport

import (
	"context"
	"time"

	"github.com/yanun0323/errors"

	"tickflow/internal/model"
)

// Script replays a fixed ordered message sequence through the same
// entry point the live transport uses. It exists so determinism and
// live/replay parity can be verified against an identical pipeline.
type Script struct {
	messages []model.RawMessage
	interval time.Duration
}

// NewScript creates a script transport over the given sequence.
func NewScript(messages []model.RawMessage) *Script {
	return &Script{messages: messages}
}

// ScriptFromFrames decodes captured wire frames into a script.
func ScriptFromFrames(frames [][]byte) (*Script, error) {
	messages := make([]model.RawMessage, 0, len(frames))
	for i, frame := range frames {
		msg, err := model.DecodeRaw(frame)
		if err != nil {
			return nil, errors.Wrapf(err, "decode frame %d", i)
		}
		messages = append(messages, msg)
	}
	return NewScript(messages), nil
}

// WithInterval paces playback with a fixed delay between messages.
func (s *Script) WithInterval(interval time.Duration) *Script {
	s.interval = interval
	return s
}

// Run feeds the scripted sequence to handler in order.
func (s *Script) Run(ctx context.Context, handler Handler) error {
	for i, msg := range s.messages {
		if i > 0 && s.interval > 0 {
			t := time.NewTimer(s.interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		handler(msg)
	}
	return nil
}
