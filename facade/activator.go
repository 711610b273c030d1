// Package facade decides which HID service is published and translates
// the BLE stack's callbacks into calls against the registry,
// notification engine, state machine and diagnostics tap.
package facade

import (
	"fmt"

	"github.com/nimblehid/hogp/hidcore"
	"github.com/nimblehid/hogp/report"
)

// ErrAlreadyActive is a benign error: activating an already-Active
// profile is a no-op.
type ErrAlreadyActive struct{ Profile report.Profile }

func (e *ErrAlreadyActive) Error() string { return fmt.Sprintf("facade: %s already active", e.Profile) }

// ErrServerFull is returned when the GATT server rejects registering a
// profile's service for want of resources: attribute table space, ATT
// handle range, or similar. The single-service policy keeps
// at most one non-composite profile active at a time, so this always
// means the underlying stack refused the registration, not a bookkeeping
// limit in the Activator itself.
type ErrServerFull struct{ Err error }

func (e *ErrServerFull) Error() string {
	return fmt.Sprintf("facade: server full: %v", e.Err)
}

func (e *ErrServerFull) Unwrap() error { return e.Err }

// Kind implements hidcore.Kinded.
func (e *ErrServerFull) Kind() hidcore.Kind { return hidcore.KindServerFull }

// ErrNotInitialized is returned by Activator operations before Initialize
// has been called (mirrors conn's Uninitialized gate).
type ErrNotInitialized struct{}

func (e *ErrNotInitialized) Error() string { return "facade: not initialized" }

// Kind implements hidcore.Kinded.
func (e *ErrNotInitialized) Kind() hidcore.Kind { return hidcore.KindNotInitialized }

// ServerOps is the subset of the GATT server the Activator needs:
// registering/removing the bluetooth-facing service for a profile. The
// GATT Server Facade implements this; the Activator holds only the
// interface.
type ServerOps interface {
	RegisterProfile(p report.Profile) error
	UnregisterProfile(p report.Profile) error
}

// Activator decides which HID service is published: it tracks
// Inactive/Active per profile in an in-memory table guarded by the
// single executor goroutine, with idempotent-removal semantics.
type Activator struct {
	server      ServerOps
	initialized bool

	active map[report.Profile]bool
}

// NewActivator returns an Activator over server.
func NewActivator(server ServerOps) *Activator {
	return &Activator{
		server: server,
		active: make(map[report.Profile]bool),
	}
}

// Initialize marks the Activator ready to accept Activate calls.
func (a *Activator) Initialize() { a.initialized = true }

// IsActive reports whether p is currently Active.
func (a *Activator) IsActive(p report.Profile) bool { return a.active[p] }

// Activate registers p's GATT service. Composite deactivates every
// per-device profile first; a non-composite profile deactivates any
// other non-composite profile that is Active (single-service policy)
// and deactivates Composite if it is Active.
func (a *Activator) Activate(p report.Profile) error {
	if !a.initialized {
		return &ErrNotInitialized{}
	}
	if a.active[p] {
		return &ErrAlreadyActive{Profile: p}
	}

	if p == report.Composite {
		for _, other := range []report.Profile{report.Mouse, report.Keyboard, report.Consumer} {
			if a.active[other] {
				if err := a.deactivateLocked(other); err != nil {
					return err
				}
			}
		}
	} else {
		if a.active[report.Composite] {
			if err := a.deactivateLocked(report.Composite); err != nil {
				return err
			}
		}
		for _, other := range []report.Profile{report.Mouse, report.Keyboard, report.Consumer} {
			if other != p && a.active[other] {
				if err := a.deactivateLocked(other); err != nil {
					return err
				}
			}
		}
	}

	if err := a.server.RegisterProfile(p); err != nil {
		return &ErrServerFull{Err: err}
	}
	a.active[p] = true
	return nil
}

// Deactivate removes p's service and clears its CCCDs. Deactivating an
// already-Inactive profile is a no-op returning success.
func (a *Activator) Deactivate(p report.Profile) error {
	if !a.active[p] {
		return nil
	}
	return a.deactivateLocked(p)
}

func (a *Activator) deactivateLocked(p report.Profile) error {
	if err := a.server.UnregisterProfile(p); err != nil {
		return err
	}
	delete(a.active, p)
	return nil
}

// ActiveProfiles returns the currently Active profiles.
func (a *Activator) ActiveProfiles() []report.Profile {
	var out []report.Profile
	for _, p := range []report.Profile{report.Mouse, report.Keyboard, report.Consumer, report.Composite} {
		if a.active[p] {
			out = append(out, p)
		}
	}
	return out
}
