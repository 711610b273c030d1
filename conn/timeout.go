package conn

import "time"

// WatchConnectingTimeout spawns a goroutine that fires ConnectFailure with
// reason "Timeout" if the machine is still Connecting after d (default
// ConnectingTimeout). Cancel the returned function once the
// connection resolves to stop the watch early. Safe to call even though
// the machine's own Fire calls are meant for the executor goroutine: the
// timeout itself only ever calls ConnectFailure, and a no-longer-valid
// trigger (because the state already moved on) is simply ignored.
func (m *Machine) WatchConnectingTimeout(d time.Duration, enqueue func(func())) func() {
	if d <= 0 {
		d = ConnectingTimeout
	}
	timer := time.AfterFunc(d, func() {
		enqueue(func() {
			if m.ConnectionState() == Connecting {
				_ = m.ConnectFailure("Timeout")
			}
		})
	})
	return func() { timer.Stop() }
}
