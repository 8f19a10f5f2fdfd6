package shoonya

import (
	"context"
	"strings"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"tickflow/internal/model"
	"tickflow/internal/transport"
)

const (
	tagConnectAck = "ck"
	tagSubscribe  = "t"
	tagSnapshot   = "tk"
)

// Client reads a Shoonya-style touchline websocket feed and hands the
// decoded frames to the pipeline. Session setup (login, keepalive)
// happens outside; this client only subscribes scrips and reads.
type Client struct {
	wss *ws.WebSocket
}

// NewClient creates a feed client for the given websocket URL.
func NewClient(ctx context.Context, wsURL string) *Client {
	return &Client{
		wss: ws.New(ctx, wsURL),
	}
}

// Close tears down the websocket.
func (c *Client) Close() {
	c.wss.Close()
}

// StartWebsocket opens the connection.
func (c *Client) StartWebsocket(ctx context.Context) error {
	if err := c.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	return nil
}

type subscribeRequest struct {
	Type string `json:"t"`
	Keys string `json:"k"`
}

// Subscribe requests touchline data for scrips ("EXCHANGE|token" keys)
// and waits for the first snapshot acknowledging the subscription.
func (c *Client) Subscribe(ctx context.Context, scrips []string) error {
	if len(scrips) == 0 {
		return errors.New("no scrips to subscribe")
	}

	if err := c.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			payload := subscribeRequest{
				Type: tagSubscribe,
				Keys: strings.Join(scrips, "#"),
			}
			if err := client.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var frame map[string]any
			if err := m.Unmarshal(&frame); err != nil {
				return false, nil
			}
			tag, _ := frame[model.KeyType].(string)
			return tag == tagSnapshot, nil
		},
	}); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

// Run decodes feed frames and delivers them to handler until the
// context ends or the connection closes. Control frames and frames
// that fail to decode are skipped; a broken single frame must not
// stall the feed.
func (c *Client) Run(ctx context.Context, handler transport.Handler) error {
	ch, cancel := c.wss.Subscribe()
	defer cancel()

	for {
		select {
		case <-sys.Shutdown():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}

			var frame map[string]any
			if err := m.Unmarshal(&frame); err != nil {
				logs.Errorf("unmarshal feed frame, err: %+v", err)
				continue
			}

			if tag, _ := frame[model.KeyType].(string); tag == tagConnectAck {
				continue
			}

			msg, err := model.DecodeRawFrame(frame)
			if err != nil {
				logs.Warnf("skipping undecodable frame, err: %+v", err)
				continue
			}

			handler(msg)
		}
	}
}
