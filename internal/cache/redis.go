package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickflow/internal/model"
)

const defaultTTL = 2 * time.Minute

// LatestPrice is the JSON document mirrored per token.
type LatestPrice struct {
	Token       string `json:"token"`
	Exchange    string `json:"exchange,omitempty"`
	Price       string `json:"price"`
	Kind        string `json:"kind"`
	UpdatedUnix int64  `json:"updatedUnix"`
}

// Mirror pushes the latest normalized price per token into Redis so
// outside consumers (dashboards, other processes) can read it without
// touching the pipeline. It sits behind the dispatcher sink as an
// observer and never fails the data path: Redis trouble is logged and
// dropped.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMirror wraps a Redis client.
func NewMirror(client *redis.Client, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Mirror{client: client, ttl: ttl}
}

// Observe mirrors one normalized event. Events without a price are
// skipped, the cache only ever holds real prices.
func (m *Mirror) Observe(ctx context.Context, event model.Event) {
	if m == nil || !event.HasPrice {
		return
	}
	if err := m.set(ctx, event); err != nil {
		logs.Warnf("price mirror write failed, err: %+v", err)
	}
}

func (m *Mirror) set(ctx context.Context, event model.Event) error {
	doc := LatestPrice{
		Token:       string(event.Token),
		Exchange:    event.Exchange,
		Price:       event.Price.String(),
		Kind:        event.Kind.String(),
		UpdatedUnix: time.Now().Unix(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshal latest price")
	}
	key := latestKey(event.Token)
	if err := m.client.Set(ctx, key, data, m.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

// Latest reads the mirrored price for a token.
func (m *Mirror) Latest(ctx context.Context, token model.Token) (LatestPrice, error) {
	data, err := m.client.Get(ctx, latestKey(token)).Bytes()
	if err != nil {
		return LatestPrice{}, errors.Wrapf(err, "get latest price for %s", token)
	}
	var doc LatestPrice
	if err := json.Unmarshal(data, &doc); err != nil {
		return LatestPrice{}, errors.Wrap(err, "unmarshal latest price")
	}
	return doc, nil
}

func latestKey(token model.Token) string {
	return fmt.Sprintf("latest:%s", token)
}
