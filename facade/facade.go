package facade

import (
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/nimblehid/hogp/conn"
	"github.com/nimblehid/hogp/diag"
	"github.com/nimblehid/hogp/gatt"
	"github.com/nimblehid/hogp/hidcore"
	"github.com/nimblehid/hogp/internal/executor"
	"github.com/nimblehid/hogp/link"
	"github.com/nimblehid/hogp/notify"
	"github.com/nimblehid/hogp/report"
)

// GATT protocol error codes the BLE stack expects back from a failed
// read/write.
const (
	AttErrInvalidOffset     = 0x07
	AttErrWriteNotPermitted = 0x03
	AttErrUnlikelyError     = 0x0E
)

// Facade converts tinygo.org/x/bluetooth's callback shapes into the
// core's vocabulary, and is the only component aware of the
// gatt.Registry, notify.Engine, conn.Machine and diag.Tap all at once.
// It also implements notify.Sender, so the engine's drain calls back
// into it to transmit.
type Facade struct {
	Adapter  *bluetooth.Adapter
	Registry *gatt.Registry
	Engine   *notify.Engine
	Machine  *conn.Machine
	Tap      *diag.Tap

	// Exec, if set, is the single logical executor every BLE-stack
	// callback below is marshaled onto before it touches Registry/Engine/
	// Machine state. Nil runs callbacks inline on the calling goroutine,
	// which is what tests and single-threaded callers want.
	Exec *executor.Executor

	// ConnectingTimeout bounds how long the Connection State Machine may
	// sit in Connecting before it is forced to Failed(Timeout);
	// zero uses conn.ConnectingTimeout.
	ConnectingTimeout time.Duration

	mu            sync.Mutex
	activeProfile report.Profile
	haveProfile   bool
	desc          gatt.ServiceDesc
	handles       map[gatt.CharRef]*bluetooth.Characteristic
	currentLink   link.ID
	cancelTimeout func()
}

// New wires together a Facade from already-constructed registry/engine/
// machine/tap instances and the tinygo adapter to drive.
func New(adapter *bluetooth.Adapter, registry *gatt.Registry, engine *notify.Engine, machine *conn.Machine, tap *diag.Tap) *Facade {
	f := &Facade{
		Adapter:  adapter,
		Registry: registry,
		Engine:   engine,
		Machine:  machine,
		Tap:      tap,
	}
	engine.OnDrop = func(l link.ID, ref gatt.CharRef, reason notify.DropReason) {
		tap.Logger().Debug("notification dropped", "link", l, "char", ref, "reason", reason)
	}
	engine.OnSent = func(l link.ID, ref gatt.CharRef, bytes []byte, success bool) {
		tap.MetricRecord("notify.sent", 1, "count")
	}
	engine.Suspended = f.IsSuspended
	if adapter != nil {
		adapter.SetConnectHandler(f.onAdapterConnectEvent)
	}
	return f
}

// RegisterProfile implements ServerOps for the Activator: it asks the
// registry to build the service description, translates it to a
// *bluetooth.Service, and adds it to the adapter. Composite/per-device
// mutual exclusion is the Activator's job; this only ever has one active
// service mounted at a time.
func (f *Facade) RegisterProfile(p report.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	desc := f.Registry.BuildService(p)
	handles := make(map[gatt.CharRef]*bluetooth.Characteristic, len(desc.Characteristics))
	initial := make(map[gatt.CharRef][]byte, len(desc.Characteristics))
	for _, c := range desc.Characteristics {
		if v, err := f.Registry.OnRead(p, c.Ref, 0); err == nil {
			initial[c.Ref] = v
		}
	}

	// A nil Adapter registers the service at the Registry level only; unit
	// tests and the activation-policy tests drive the core this way without
	// a BLE stack underneath.
	if f.Adapter != nil {
		svc := gatt.ToBluetoothService(desc, handles, func(ref gatt.CharRef, offset int, value []byte) {
			f.handleWrite(p, ref, offset, value)
		}, initial)
		if err := f.Adapter.AddService(svc); err != nil {
			return err
		}
	}

	f.activeProfile = p
	f.haveProfile = true
	f.desc = desc
	f.handles = handles
	return nil
}

// UnregisterProfile implements facade.ServerOps: tinygo's adapter has no
// RemoveService primitive exposed in every backend, so deactivation here
// is recorded at the Facade/Activator level; the service attribute
// table is replaced wholesale the next time RegisterProfile runs (AddService
// on most tinygo backends fully reconfigures the GATT table).
func (f *Facade) UnregisterProfile(p report.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.haveProfile && f.activeProfile == p {
		f.haveProfile = false
		f.handles = nil
	}
	f.Engine.ResetLink(f.currentLink)
	return nil
}

// ActiveProfile returns the profile currently mounted as a GATT service,
// if any.
func (f *Facade) ActiveProfile() (report.Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeProfile, f.haveProfile
}

// InputRef returns the CharRef of the active profile's Input Report
// characteristic, the target of every hidapi send_* call.
func (f *Facade) InputRef() (gatt.CharRef, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.haveProfile {
		return 0, false
	}
	return gatt.InputReportRef(f.desc)
}

// CurrentLink returns the link id of the connected peer, or "" if none.
func (f *Facade) CurrentLink() link.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentLink
}

// IsSuspended reports whether the active profile's HID Control Point is
// currently in Suspend.
func (f *Facade) IsSuspended() bool {
	f.mu.Lock()
	profile := f.activeProfile
	f.mu.Unlock()
	return f.Registry.IsSuspended(profile)
}

// onAdapterConnectEvent is tinygo's SetConnectHandler callback: connected
// transitions drive LinkUp/ConnectSuccess, disconnects drive LinkDown
// and the per-link reset (CCCDs cleared, Protocol Mode restored,
// suspended=false, queue flushed).
func (f *Facade) onAdapterConnectEvent(device bluetooth.Device, connected bool) {
	peerAddr := device.Address.String()
	f.runOnExecutor(func() { f.OnConnectionStateChange(peerAddr, connected) })
}

// runOnExecutor marshals fn onto Exec when set, so a BLE-stack callback
// goroutine never mutates Registry/Engine/Machine state concurrently with
// another callback or an intent-façade call; with no executor wired,
// fn runs inline.
func (f *Facade) runOnExecutor(fn func()) {
	if f.Exec != nil {
		f.Exec.Enqueue(fn)
		return
	}
	fn()
}

// OnConnectionStateChange is on_connection_state_change. success
// true means the link came up; false means it went down.
func (f *Facade) OnConnectionStateChange(peerAddr string, success bool) {
	if success {
		l := link.ID(peerAddr)
		f.mu.Lock()
		f.currentLink = l
		profile := f.activeProfile
		f.mu.Unlock()

		_ = f.Machine.LinkUp()
		if f.Exec != nil {
			cancel := f.Machine.WatchConnectingTimeout(f.ConnectingTimeout, f.Exec.Enqueue)
			f.mu.Lock()
			f.cancelTimeout = cancel
			f.mu.Unlock()
		}
		if err := f.Machine.ConnectSuccess(peerAddr); err != nil {
			hcErr := hidcore.Wrap("connect_success", err)
			f.Tap.Logger().Warn("connect_success rejected by fsm", "kind", hcErr.Kind, "err", hcErr)
		}
		f.mu.Lock()
		if f.cancelTimeout != nil {
			f.cancelTimeout()
			f.cancelTimeout = nil
		}
		f.mu.Unlock()
		f.Registry.ResetLink(profile)
		f.Engine.ResetLink(l)
		f.Tap.RecordConnectionEvent(diag.ConnectionEvent{Kind: diag.EventLinkStateChanged, Detail: "Connected:" + peerAddr})
		return
	}

	f.mu.Lock()
	l := f.currentLink
	profile := f.activeProfile
	if f.cancelTimeout != nil {
		f.cancelTimeout()
		f.cancelTimeout = nil
	}
	f.mu.Unlock()

	_ = f.Machine.LinkDown()
	f.Registry.ResetLink(profile)
	f.Engine.ResetLink(l)
	f.Tap.RecordConnectionEvent(diag.ConnectionEvent{Kind: diag.EventDeviceDisconnected, Detail: "LinkLost"})
}

// OnCharacteristicRead delegates to Registry.OnRead and returns the
// GATT status/bytes pair the stack's read callback should answer with.
func (f *Facade) OnCharacteristicRead(ref gatt.CharRef, offset int) (status int, bytes []byte) {
	f.mu.Lock()
	profile := f.activeProfile
	f.mu.Unlock()

	v, err := f.Registry.OnRead(profile, ref, offset)
	if err != nil {
		if _, ok := err.(*gatt.ErrInvalidOffset); ok {
			return AttErrInvalidOffset, nil
		}
		f.Tap.Logger().Warn("read failed", "err", err)
		return AttErrUnlikelyError, nil
	}
	return 0, v
}

// handleWrite is the per-characteristic WriteEvent tinygo invokes; it
// delegates to the registry via OnCharacteristicWrite.
func (f *Facade) handleWrite(profile report.Profile, ref gatt.CharRef, offset int, value []byte) {
	f.runOnExecutor(func() {
		_, _ = f.OnCharacteristicWrite(profile, ref, value, false, offset)
	})
}

// OnCharacteristicWrite is on_characteristic_write.
func (f *Facade) OnCharacteristicWrite(profile report.Profile, ref gatt.CharRef, data []byte, responseNeeded bool, offset int) (status int, err error) {
	_, werr := f.Registry.OnWrite(profile, ref, data)
	if werr != nil {
		f.Tap.Logger().Warn("write failed", "err", werr)
		return AttErrWriteNotPermitted, werr
	}
	f.mu.Lock()
	desc, l := f.desc, f.currentLink
	f.mu.Unlock()
	for _, c := range desc.Characteristics {
		if desc.Profile == profile && c.Ref == ref && c.Role == gatt.RoleReport && c.Direction == report.DirectionOutput {
			f.Tap.RecordReport(diag.ReportRecord{Link: string(l), CharRef: int(ref), Direction: diag.DirectionReceived, Bytes: append([]byte(nil), data...)})
		}
	}
	return 0, nil
}

// OnDescriptorWrite handles a descriptor write: for a CCCD, bytes are
// parsed as little-endian u16 and toggle the engine's enable/disable
// state for that characteristic.
func (f *Facade) OnDescriptorWrite(ref gatt.CharRef, isCCCD bool, data []byte) (status int) {
	if !isCCCD || len(data) < 2 {
		return AttErrWriteNotPermitted
	}
	f.mu.Lock()
	l := f.currentLink
	f.mu.Unlock()

	value := uint16(data[0]) | uint16(data[1])<<8
	if value == 0x0000 {
		f.Engine.Disable(l, ref)
	} else {
		f.Engine.Enable(l, ref)
	}
	return 0
}

// OnNotificationSent is on_notification_sent.
func (f *Facade) OnNotificationSent(ref gatt.CharRef, success bool, bytes []byte) {
	f.mu.Lock()
	l := f.currentLink
	f.mu.Unlock()
	f.Engine.OnNotifyComplete(l, ref, bytes, success)
}

// SendNotification implements notify.Sender, the low-level hook used
// only by the engine. tinygo's Characteristic.Write both updates the characteristic's
// cached value and notifies subscribed centrals, and does so
// synchronously, so completion is reported inline here rather than from
// a separate stack callback. Still modeled as a discrete completion
// event so a future asynchronous adapter is a drop-in.
func (f *Facade) SendNotification(l link.ID, ref gatt.CharRef, bytes []byte) error {
	f.mu.Lock()
	handle, ok := f.handles[ref]
	profile := f.activeProfile
	f.mu.Unlock()
	if !ok {
		f.OnNotificationSent(ref, false, bytes)
		return nil
	}

	_, err := handle.Write(bytes)
	f.Registry.UpdateReportValue(profile, ref, bytes)
	f.Tap.RecordReport(diag.ReportRecord{Link: string(l), CharRef: int(ref), Direction: diag.DirectionSent, Bytes: bytes})
	f.OnNotificationSent(ref, err == nil, bytes)
	return err
}
