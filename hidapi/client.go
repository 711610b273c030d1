// Package hidapi is the outward-facing intent API: a concrete type
// wrapping the encoder, activator, notification engine and state machine
// behind a boolean-success surface, so a host process can drive the
// peripheral with plain function calls instead of reaching into its
// internals.
package hidapi

import (
	"tinygo.org/x/bluetooth"

	"github.com/nimblehid/hogp/conn"
	"github.com/nimblehid/hogp/diag"
	"github.com/nimblehid/hogp/facade"
	"github.com/nimblehid/hogp/gatt"
	"github.com/nimblehid/hogp/internal/executor"
	"github.com/nimblehid/hogp/notify"
	"github.com/nimblehid/hogp/report"
)

// Client is the intent API. Build one with New once the core components
// are wired, then drive it with its boolean-success methods; consumers
// that want structured outcomes subscribe to ConnectionStream/
// ReportStream instead.
type Client struct {
	adapter    *bluetooth.Adapter
	deviceName string

	activator *facade.Activator
	facade    *facade.Facade
	machine   *conn.Machine
	engine    *notify.Engine
	tap       *diag.Tap

	// Exec, if set, is the single logical executor every mutating
	// call below is marshaled through, so a call arriving on one
	// caller's goroutine never races a BLE-stack callback mutating the
	// same Registry/Engine/Machine state. Nil runs inline, which unit
	// tests rely on.
	Exec *executor.Executor

	keyboard *report.Encoder
	mouse    *report.Encoder
	consumer *report.Encoder
}

// New builds a Client over already-wired core components.
func New(adapter *bluetooth.Adapter, deviceName string, activator *facade.Activator, f *facade.Facade, machine *conn.Machine, engine *notify.Engine, tap *diag.Tap) *Client {
	return &Client{
		adapter:    adapter,
		deviceName: deviceName,
		activator:  activator,
		facade:     f,
		machine:    machine,
		engine:     engine,
		tap:        tap,
		keyboard:   report.NewEncoder(),
		mouse:      report.NewEncoder(),
		consumer:   report.NewEncoder(),
	}
}

// runSync marshals fn onto Exec when set, blocking for its boolean
// result; with no executor wired, fn runs inline on the calling
// goroutine.
func (c *Client) runSync(fn func() bool) bool {
	if c.Exec != nil {
		return c.Exec.RunSync(fn)
	}
	return fn()
}

// Initialize drives the connection machine from Uninitialized to
// Initialized and marks the
// Service Activator ready to accept Activate calls.
func (c *Client) Initialize() bool {
	if err := c.machine.Initialize(); err != nil {
		c.tap.Logger().Warn("initialize failed", "err", err)
		return false
	}
	c.activator.Initialize()
	return true
}

// StartAdvertising configures and starts the adapter's default
// advertisement under the client's device name, advertising the HID
// service UUID.
func (c *Client) StartAdvertising() bool {
	adv := c.adapter.DefaultAdvertisement()
	err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    c.deviceName,
		ServiceUUIDs: []bluetooth.UUID{bluetooth.New16BitUUID(gatt.ServiceHID)},
	})
	if err != nil {
		c.tap.Logger().Warn("advertisement configure failed", "err", err)
		return false
	}
	if err := adv.Start(); err != nil {
		c.tap.Logger().Warn("advertisement start failed", "err", err)
		return false
	}
	return true
}

// StopAdvertising stops the adapter's default advertisement.
func (c *Client) StopAdvertising() bool {
	return c.adapter.DefaultAdvertisement().Stop() == nil
}

// Activate mounts p's GATT service.
func (c *Client) Activate(p report.Profile) bool {
	return c.runSync(func() bool {
		if err := c.activator.Activate(p); err != nil {
			c.tap.Logger().Warn("activate failed", "profile", p, "err", err)
			return false
		}
		return true
	})
}

// Deactivate unmounts p's GATT service; a no-op on an already-Inactive
// profile still returns true.
func (c *Client) Deactivate(p report.Profile) bool {
	return c.runSync(func() bool {
		if err := c.activator.Deactivate(p); err != nil {
			c.tap.Logger().Warn("deactivate failed", "profile", p, "err", err)
			return false
		}
		return true
	})
}

// IsConnected reports whether a link is currently Connected.
func (c *Client) IsConnected() bool {
	return c.machine.ConnectionState() == conn.Connected
}

// enqueue is the shared send path for every Input Report: it resolves the
// active profile's Input characteristic and the current link, and enqueues
// bytes, failing if suspended, not connected, or no profile is mounted.
// Release/zero reports ride at High priority so a release is never lost
// behind a storm of moves.
func (c *Client) enqueue(bytes []byte) bool {
	return c.enqueuePri(bytes, notify.Normal)
}

func (c *Client) enqueueHigh(bytes []byte) bool {
	return c.enqueuePri(bytes, notify.High)
}

func (c *Client) enqueuePri(bytes []byte, pri notify.Priority) bool {
	return c.runSync(func() bool {
		if !c.IsConnected() {
			return false
		}
		ref, ok := c.facade.InputRef()
		if !ok {
			return false
		}
		l := c.facade.CurrentLink()
		if err := c.engine.Enqueue(l, notify.Request{CharRef: ref, Bytes: bytes, Priority: pri}); err != nil {
			c.tap.Logger().Debug("enqueue failed", "err", err)
			return false
		}
		return true
	})
}

// SendKeys presses up to six simultaneous keyboard usages with the given
// modifier byte.
func (c *Client) SendKeys(keys []uint8, modifiers uint8) bool {
	f, err := c.keyboard.PressKey(keys, modifiers)
	if err != nil {
		return false
	}
	return c.enqueue(f)
}

// SendKey presses a single keyboard usage with the given modifier byte.
func (c *Client) SendKey(key uint8, modifiers uint8) bool {
	return c.SendKeys([]uint8{key}, modifiers)
}

// ReleaseKeys sends the all-zero keyboard report.
func (c *Client) ReleaseKeys() bool {
	return c.enqueueHigh(c.keyboard.ReleaseAllKeys())
}

// TypeText sends the press/release pair for each character in text that
// appears in the fixed ASCII table, skipping the rest.
func (c *Client) TypeText(text string) bool {
	ok := true
	for i, f := range c.keyboard.TypeText(text) {
		send := c.enqueue
		if i%2 == 1 {
			// Odd frames are the all-zero releases.
			send = c.enqueueHigh
		}
		if !send(f) {
			ok = false
		}
	}
	return ok
}

// MoveMouse sends a relative mouse move, preserving the current button
// state.
func (c *Client) MoveMouse(dx, dy int16) bool {
	return c.enqueue(c.mouse.MoveMouse(dx, dy))
}

// PressButton ORs button into the persisted mouse button mask and sends
// the result.
func (c *Client) PressButton(button uint8) bool {
	return c.enqueue(c.mouse.PressButton(button))
}

// ReleaseButtons clears the mouse button mask and sends the result.
func (c *Client) ReleaseButtons() bool {
	return c.enqueueHigh(c.mouse.ReleaseButtons())
}

// Click sends a press-then-release pair for button.
func (c *Client) Click(button uint8) bool {
	press, release := c.mouse.Click(button)
	ok := c.enqueue(press)
	return c.enqueueHigh(release) && ok
}

// Scroll sends a relative wheel move, preserving the current button state.
func (c *Client) Scroll(delta int16) bool {
	return c.enqueue(c.mouse.Scroll(delta))
}

// media sends a momentary press-then-release tap of a consumer control
// usage bit.
func (c *Client) media(mask uint16) bool {
	press, release := c.consumer.MediaTap(mask)
	ok := c.enqueue(press)
	return c.enqueueHigh(release) && ok
}

// PlayPause taps the Play/Pause consumer control usage.
func (c *Client) PlayPause() bool { return c.media(report.ConsumerPlayPause) }

// Next taps the Scan Next Track consumer control usage.
func (c *Client) Next() bool { return c.media(report.ConsumerNext) }

// Prev taps the Scan Previous Track consumer control usage.
func (c *Client) Prev() bool { return c.media(report.ConsumerPrev) }

// VolumeUp taps the Volume Increment consumer control usage.
func (c *Client) VolumeUp() bool { return c.media(report.ConsumerVolumeUp) }

// VolumeDown taps the Volume Decrement consumer control usage.
func (c *Client) VolumeDown() bool { return c.media(report.ConsumerVolumeDn) }

// Mute taps the Mute consumer control usage.
func (c *Client) Mute() bool { return c.media(report.ConsumerMute) }

// SendCombined sends a single 14-byte Composite report, valid only
// while Composite is the active profile.
func (c *Client) SendCombined(media uint16, mouseButtons byte, dx, dy, wheel int16, keyboard report.Frame) bool {
	return c.enqueue(report.EncodeComposite(media, mouseButtons, dx, dy, wheel, keyboard))
}

// ConnectionStream subscribes to the combined ConnectionState/PairingState
// broadcast; cancel releases the subscription.
func (c *Client) ConnectionStream() (<-chan conn.Snapshot, func()) {
	return c.machine.Subscribe()
}

// ReportStream subscribes to every report the diagnostics tap has
// observed (sent and
// received); cancel releases the subscription.
func (c *Client) ReportStream() (<-chan diag.ReportRecord, func()) {
	return c.tap.ReportStream()
}
