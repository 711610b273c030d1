// Package notify delivers Input reports as GATT notifications: per-link
// FIFO queues with a single in-flight flag, CCCD gating, and
// priority-aware backpressure. Every mutating method assumes it only
// runs on the single executor goroutine and takes no internal lock of
// its own for that reason; callers serialize access onto one goroutine
// per engine.
package notify

import (
	"time"

	"github.com/nimblehid/hogp/gatt"
	"github.com/nimblehid/hogp/hidcore"
	"github.com/nimblehid/hogp/link"
)

// Priority orders queue eviction on overflow: a High item evicts the
// oldest Normal item rather than being rejected.
type Priority int

const (
	Normal Priority = iota
	High
)

// Request is a queued notification awaiting delivery.
type Request struct {
	CharRef     gatt.CharRef
	Bytes       []byte
	EnqueueTime time.Time
	Priority    Priority
}

// Sender is the GATT server capability the engine needs: transmitting a
// notification for a link/characteristic. The engine holds this
// interface rather than a concrete facade type so it never gains a
// back-reference to the server.
type Sender interface {
	SendNotification(l link.ID, ref gatt.CharRef, bytes []byte) error
}

// ErrQueueFull is returned by Enqueue when the link's queue is at capacity
// and no strictly-lower-priority victim exists to evict.
type ErrQueueFull struct {
	Link link.ID
}

func (e *ErrQueueFull) Error() string { return "notify: queue full for link " + string(e.Link) }

// Kind implements hidcore.Kinded.
func (e *ErrQueueFull) Kind() hidcore.Kind { return hidcore.KindQueueFull }

// ErrSuspended is returned by Enqueue when the owning service is
// suspended.
type ErrSuspended struct{}

func (e *ErrSuspended) Error() string { return "notify: service suspended" }

// Kind implements hidcore.Kinded.
func (e *ErrSuspended) Kind() hidcore.Kind { return hidcore.KindSuspended }

// DropReason is recorded (via the Diagnostics callback) whenever a
// request is discarded instead of sent.
type DropReason int

const (
	DropNotificationsNotEnabled DropReason = iota
	DropEvicted
)

type linkState struct {
	queue    []Request
	inFlight bool
	current  Request
	enabled  map[gatt.CharRef]bool
}

// Engine owns the per-link notification queues. Capacity bounds each
// queue. OnDrop, if set, is called whenever a request is dropped or
// evicted instead of sent; the facade wires it to the diagnostics tap so
// the engine never imports diag directly.
type Engine struct {
	Capacity int
	Sender   Sender
	OnDrop   func(l link.ID, ref gatt.CharRef, reason DropReason)
	OnSent   func(l link.ID, ref gatt.CharRef, bytes []byte, success bool)

	// Suspended, if set, reports whether the owning service's HID Control
	// Point is in Suspend; Enqueue refuses Input reports while it returns
	// true. The facade wires this to the registry's suspended flag.
	Suspended func() bool

	// AssumeEnabled bypasses the per-characteristic CCCD gate on drain.
	// Set when the underlying stack tracks subscriptions itself and never
	// surfaces descriptor writes to user code (tinygo's server role): the
	// stack already refuses to notify an unsubscribed central, so gating
	// here a second time would drop everything.
	AssumeEnabled bool

	links map[link.ID]*linkState
}

// NewEngine returns an Engine with the given per-link queue capacity.
func NewEngine(capacity int, sender Sender) *Engine {
	return &Engine{
		Capacity: capacity,
		Sender:   sender,
		links:    make(map[link.ID]*linkState),
	}
}

func (e *Engine) state(l link.ID) *linkState {
	s, ok := e.links[l]
	if !ok {
		s = &linkState{enabled: make(map[gatt.CharRef]bool)}
		e.links[l] = s
	}
	return s
}

// ResetLink clears a link's queue and CCCD state, as happens on every new
// connection and on disconnect. A request still in flight
// is reported as a failed send before the state is discarded, so its
// completion is never left dangling.
func (e *Engine) ResetLink(l link.ID) {
	if s, ok := e.links[l]; ok && s.inFlight && e.OnSent != nil {
		e.OnSent(l, s.current.CharRef, s.current.Bytes, false)
	}
	e.links[l] = &linkState{enabled: make(map[gatt.CharRef]bool)}
}

// Enable marks a characteristic's CCCD as NotificationsEnabled for l.
func (e *Engine) Enable(l link.ID, ref gatt.CharRef) {
	e.state(l).enabled[ref] = true
}

// Disable marks a characteristic's CCCD as Disabled for l.
func (e *Engine) Disable(l link.ID, ref gatt.CharRef) {
	delete(e.state(l).enabled, ref)
}

// Enabled reports whether ref's CCCD is currently NotificationsEnabled on
// l.
func (e *Engine) Enabled(l link.ID, ref gatt.CharRef) bool {
	return e.state(l).enabled[ref]
}

// Pending returns the number of queued-but-undelivered requests for ref on
// l, for queue-depth metric sampling.
func (e *Engine) Pending(l link.ID, ref gatt.CharRef) int {
	s := e.state(l)
	n := 0
	for _, r := range s.queue {
		if r.CharRef == ref {
			n++
		}
	}
	return n
}

// Len returns the total queue depth for l.
func (e *Engine) Len(l link.ID) int {
	return len(e.state(l).queue)
}

// Enqueue appends req to l's queue, evicting or rejecting when full,
// and immediately attempts delivery if nothing is currently in flight.
// Eviction requires a strictly lower-priority victim: a High request
// supplants the oldest Normal one, Normal-on-Normal overflow is
// rejected.
//
// occupied counts the item currently in flight (if any) alongside the
// queue itself: an in-flight send still holds a slot against the
// configured capacity until OnNotifyComplete frees it, so "full" means
// capacity reports outstanding, not capacity queued.
func (e *Engine) Enqueue(l link.ID, req Request) error {
	if e.Suspended != nil && e.Suspended() {
		return &ErrSuspended{}
	}
	s := e.state(l)
	capacity := e.Capacity
	if capacity <= 0 {
		capacity = 32
	}
	occupied := len(s.queue)
	if s.inFlight {
		occupied++
	}
	if occupied >= capacity {
		victim := -1
		for i, q := range s.queue {
			if q.Priority < req.Priority {
				victim = i
				break
			}
		}
		if victim == -1 {
			return &ErrQueueFull{Link: l}
		}
		dropped := s.queue[victim]
		s.queue = append(s.queue[:victim], s.queue[victim+1:]...)
		if e.OnDrop != nil {
			e.OnDrop(l, dropped.CharRef, DropEvicted)
		}
	}
	s.queue = append(s.queue, req)
	if !s.inFlight {
		e.drainOne(l)
	}
	return nil
}

// drainOne pops and attempts to deliver the head of l's queue, skipping
// (and reporting) entries whose CCCD is disabled, until one is sent or
// the queue empties.
func (e *Engine) drainOne(l link.ID) {
	s := e.state(l)
	for len(s.queue) > 0 {
		req := s.queue[0]
		s.queue = s.queue[1:]
		if !s.enabled[req.CharRef] && !e.AssumeEnabled {
			if e.OnDrop != nil {
				e.OnDrop(l, req.CharRef, DropNotificationsNotEnabled)
			}
			continue
		}
		s.inFlight = true
		s.current = req
		_ = e.Sender.SendNotification(l, req.CharRef, req.Bytes)
		return
	}
}

// OnNotifyComplete is called by the GATT Server Facade once a send
// initiated by drainOne finishes, clearing in_flight and resuming the
// drain. success=false still advances the queue: HID delivery is
// fire-and-forget and there is no automatic retry.
func (e *Engine) OnNotifyComplete(l link.ID, ref gatt.CharRef, bytes []byte, success bool) {
	s := e.state(l)
	s.inFlight = false
	if e.OnSent != nil {
		e.OnSent(l, ref, bytes, success)
	}
	e.drainOne(l)
}
