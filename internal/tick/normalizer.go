package tick

import (
	"time"

	"github.com/yanun0323/logs"

	"tickflow/internal/model"
	"tickflow/internal/model/enum"
	"tickflow/internal/obs"
	"tickflow/pkg/exception"
)

// Sink receives normalized events in application order.
type Sink func(model.Event)

// Normalizer reconstructs per-token state from snapshots and deltas
// and emits normalized events to its sink. It is driven by a single
// ingestion goroutine; the live websocket feed, the script transport
// and recorder playback all enter through Process, so downstream
// behavior is identical regardless of the source.
type Normalizer struct {
	store    *Store
	liveness *Liveness
	sink     Sink
	metrics  *obs.Metrics
	clock    func() time.Time

	logRaw     bool
	printTicks bool
}

// NewNormalizer creates a normalizer owning the given store.
func NewNormalizer(store *Store, liveness *Liveness, sink Sink, metrics *obs.Metrics) *Normalizer {
	return &Normalizer{
		store:    store,
		liveness: liveness,
		sink:     sink,
		metrics:  metrics,
		clock:    time.Now,
	}
}

// WithClock swaps the time source, for deterministic tests.
func (n *Normalizer) WithClock(clock func() time.Time) *Normalizer {
	if clock != nil {
		n.clock = clock
	}
	return n
}

// WithVerboseRaw enables raw-message logging for every processed frame.
func (n *Normalizer) WithVerboseRaw(enabled bool) *Normalizer {
	n.logRaw = enabled
	return n
}

// WithTickPrint enables a log line per emitted event.
func (n *Normalizer) WithTickPrint(enabled bool) *Normalizer {
	n.printTicks = enabled
	return n
}

// Process is the single entry point for raw messages. Unknown message
// types and protocol violations are logged and swallowed here; only
// the transport's own read loop can stop ingestion.
func (n *Normalizer) Process(raw model.RawMessage) {
	if n.logRaw {
		logs.Debugf("raw message: type=%s token=%s fields=%v", raw.Type, raw.Token, raw.Fields)
	}

	switch raw.Type {
	case enum.MessageSnapshot:
		n.ApplySnapshot(raw)
	case enum.MessageDelta:
		if err := n.ApplyDelta(raw); err != nil {
			logs.Warnf("delta dropped: token=%s, err: %+v", raw.Token, err)
		}
	default:
		n.metrics.IncUnknownType()
		logs.Warnf("ignoring message with unknown type tag: token=%s", raw.Token)
	}
}

// ApplySnapshot unconditionally replaces the token's record with one
// built from the snapshot's fields. Snapshots are taken as truth
// regardless of prior state, so this never fails. The display name and
// exchange captured at establishment survive later snapshots that omit
// them.
func (n *Normalizer) ApplySnapshot(raw model.RawMessage) model.Event {
	now := n.clock()

	rec := model.Record{
		Token:         raw.Token,
		Exchange:      raw.Exchange,
		DisplayName:   raw.DisplayName,
		Fields:        raw.Fields,
		Price:         raw.Price,
		HasPrice:      raw.HasPrice,
		LastMessageAt: now,
	}
	if raw.HasPrice {
		rec.LastPriceAt = now
	}

	if prev, ok := n.store.Get(raw.Token); ok {
		if rec.DisplayName == "" {
			rec.DisplayName = prev.DisplayName
		}
		if rec.Exchange == "" {
			rec.Exchange = prev.Exchange
		}
	}

	n.store.replace(rec)
	n.liveness.TouchMessage(now)
	if raw.HasPrice {
		n.liveness.TouchPrice(now)
	}
	n.metrics.IncMessage()
	n.metrics.IncSnapshot()

	event := model.Event{
		Kind:     enum.EventSnapshot,
		Token:    raw.Token,
		Exchange: rec.Exchange,
		Price:    raw.Price,
		HasPrice: raw.HasPrice,
		Raw:      raw,
	}
	n.emit(event)
	return event
}

// ApplyDelta merges the delta's fields into the token's established
// record. Only fields present in the delta are touched; an omitted
// price means "unchanged", never zero. A delta for a token with no
// prior snapshot is a protocol violation: nothing is created, nothing
// is emitted.
//
// The merge is idempotent, applying the same delta twice leaves the
// record identical to applying it once.
func (n *Normalizer) ApplyDelta(raw model.RawMessage) error {
	now := n.clock()

	var (
		price    = raw.Price
		hasPrice = raw.HasPrice
		exchange string
	)
	ok := n.store.update(raw.Token, func(rec *model.Record) {
		for key, value := range raw.Fields {
			rec.Fields[key] = value
		}
		if raw.HasPrice {
			rec.Price = raw.Price
			rec.HasPrice = true
			rec.LastPriceAt = now
		} else {
			// carry-forward: the event repeats the record's price
			price = rec.Price
			hasPrice = rec.HasPrice
		}
		rec.LastMessageAt = now
		exchange = rec.Exchange
	})
	if !ok {
		n.metrics.IncProtocolViolation()
		return exception.ErrTokenNotEstablished
	}

	n.liveness.TouchMessage(now)
	if raw.HasPrice {
		n.liveness.TouchPrice(now)
	}
	n.metrics.IncMessage()
	n.metrics.IncDelta()

	n.emit(model.Event{
		Kind:     enum.EventDelta,
		Token:    raw.Token,
		Exchange: exchange,
		Price:    price,
		HasPrice: hasPrice,
		Raw:      raw,
	})
	return nil
}

func (n *Normalizer) emit(event model.Event) {
	if n.printTicks {
		if event.HasPrice {
			logs.Infof("tick %s token=%s price=%s", event.Kind, event.Token, event.Price)
		} else {
			logs.Infof("tick %s token=%s price=-", event.Kind, event.Token)
		}
	}
	if n.sink != nil {
		n.sink(event)
	}
}
