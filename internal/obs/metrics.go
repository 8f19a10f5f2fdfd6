package obs

import "sync/atomic"

// Metrics collects lightweight pipeline counters. All methods are safe
// for concurrent use and tolerate a nil receiver so call sites never
// need to guard.
type Metrics struct {
	messages           uint64
	snapshots          uint64
	deltas             uint64
	unknownTypes       uint64
	protocolViolations uint64
	dispatched         uint64
	dispatchSkips      uint64
	queueDrops         uint64
	deliveryErrors     uint64
	heartbeatWarnings  uint64
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Messages           uint64
	Snapshots          uint64
	Deltas             uint64
	UnknownTypes       uint64
	ProtocolViolations uint64
	Dispatched         uint64
	DispatchSkips      uint64
	QueueDrops         uint64
	DeliveryErrors     uint64
	HeartbeatWarnings  uint64
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncMessage records an accepted raw message.
func (m *Metrics) IncMessage() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.messages, 1)
}

// IncSnapshot records an applied snapshot.
func (m *Metrics) IncSnapshot() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.snapshots, 1)
}

// IncDelta records an accepted delta.
func (m *Metrics) IncDelta() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.deltas, 1)
}

// IncUnknownType records a message with an unrecognized type tag.
func (m *Metrics) IncUnknownType() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.unknownTypes, 1)
}

// IncProtocolViolation records a delta that arrived before any snapshot.
func (m *Metrics) IncProtocolViolation() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.protocolViolations, 1)
}

// IncDispatched records an event handed to a subscriber queue.
func (m *Metrics) IncDispatched() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.dispatched, 1)
}

// IncDispatchSkip records an event for a token with no subscriber.
func (m *Metrics) IncDispatchSkip() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.dispatchSkips, 1)
}

// IncQueueDrop records an event dropped by a full subscriber queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncDeliveryError records a failure raised inside a subscriber.
func (m *Metrics) IncDeliveryError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.deliveryErrors, 1)
}

// IncHeartbeatWarning records an emitted staleness warning.
func (m *Metrics) IncHeartbeatWarning() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.heartbeatWarnings, 1)
}

// Read captures the current counter values.
func (m *Metrics) Read() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Messages:           atomic.LoadUint64(&m.messages),
		Snapshots:          atomic.LoadUint64(&m.snapshots),
		Deltas:             atomic.LoadUint64(&m.deltas),
		UnknownTypes:       atomic.LoadUint64(&m.unknownTypes),
		ProtocolViolations: atomic.LoadUint64(&m.protocolViolations),
		Dispatched:         atomic.LoadUint64(&m.dispatched),
		DispatchSkips:      atomic.LoadUint64(&m.dispatchSkips),
		QueueDrops:         atomic.LoadUint64(&m.queueDrops),
		DeliveryErrors:     atomic.LoadUint64(&m.deliveryErrors),
		HeartbeatWarnings:  atomic.LoadUint64(&m.heartbeatWarnings),
	}
}
