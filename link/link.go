// Package link defines the opaque per-connection identifier shared by the
// Notification Engine, GATT Server Facade, and Connection State Machine.
package link

import (
	"strconv"
	"sync/atomic"
)

// ID identifies a single BLE link. The engine serves one link at a
// time, but CCCD/queue state is still naturally keyed by link so the
// same machinery works unmodified if a future adapter multiplexes links.
//
// Production callers derive ID from the resolved central address string;
// tests that have no real BLE stack fall back to Next.
type ID string

var counter uint64

// Next returns a monotonically increasing synthetic ID, for use where no
// BLE central address is available (unit tests, mock adapters).
func Next() ID {
	n := atomic.AddUint64(&counter, 1)
	return ID(strconv.FormatUint(n, 10))
}
