// Package hidcore defines the error taxonomy shared across the HID
// engine. There is no HTTP surface here, so Kind is checked with
// errors.Is against a sentinel per kind instead of a numeric status.
package hidcore

import "fmt"

// Kind is one of the closed set of error kinds the engine reports.
type Kind int

const (
	KindNotInitialized Kind = iota
	KindPeripheralNotSupported
	KindServerFull
	KindAddServiceFailed
	KindSuspended
	KindNotificationsNotEnabled
	KindQueueFull
	KindAttributeInvalidOffset
	KindAttributeWriteNotPermitted
	KindLinkLost
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotInitialized:
		return "NotInitialized"
	case KindPeripheralNotSupported:
		return "PeripheralNotSupported"
	case KindServerFull:
		return "ServerFull"
	case KindAddServiceFailed:
		return "AddServiceFailed"
	case KindSuspended:
		return "Suspended"
	case KindNotificationsNotEnabled:
		return "NotificationsNotEnabled"
	case KindQueueFull:
		return "QueueFull"
	case KindAttributeInvalidOffset:
		return "AttributeInvalidOffset"
	case KindAttributeWriteNotPermitted:
		return "AttributeWriteNotPermitted"
	case KindLinkLost:
		return "LinkLost"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error is the core's normalized error shape: a Kind, the operation it
// occurred in, and a human detail string.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("hidcore: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("hidcore: %s: %s: %s", e.Op, e.Kind, e.Detail)
}

// Is lets errors.Is(err, hidcore.KindSentinel(k)) match any *Error sharing
// the same Kind, ignoring Op/Detail.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Op == "" && other.Detail == "" && other.Kind == e.Kind
}

// KindSentinel returns a bare *Error usable as an errors.Is target for
// kind k, e.g. errors.Is(err, hidcore.KindSentinel(hidcore.KindQueueFull)).
func KindSentinel(k Kind) error { return &Error{Kind: k} }

// New builds an Error for op/kind with an optional detail.
func New(op string, kind Kind, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// Kinded is implemented by the error types the gatt, notify and facade
// packages already return (gatt.ErrInvalidOffset, notify.ErrQueueFull,
// facade.ErrServerFull, ...) so Wrap can classify them without those
// packages importing hidcore themselves. The dependency points inward;
// hidcore never imports its callers.
type Kinded interface {
	Kind() Kind
}

// Wrap normalizes any error into a *hidcore.Error. An err already
// implementing Kinded is classified by its own Kind(); anything else
// defaults to AddServiceFailed, the catch-all resource kind.
func Wrap(op string, err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	if k, ok := err.(Kinded); ok {
		return &Error{Op: op, Kind: k.Kind(), Detail: err.Error()}
	}
	return &Error{Op: op, Kind: KindAddServiceFailed, Detail: err.Error()}
}
