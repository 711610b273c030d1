// Package gatt builds the HOGP GATT service description for a profile,
// owns the cached characteristic values, and dispatches reads/writes to
// the right behavior (Protocol Mode, HID Control Point, Output reports).
//
// ToBluetoothService is the only place that constructs
// tinygo.org/x/bluetooth types; everything else works on the
// adapter-agnostic ServiceDesc/CharSpec model.
package gatt

import (
	"fmt"

	"github.com/nimblehid/hogp/hidcore"
	"github.com/nimblehid/hogp/report"
)

// Standard GATT/HID UUIDs.
const (
	ServiceHID uint16 = 0x1812

	CharHIDInformation    uint16 = 0x2A4A
	CharReportMap         uint16 = 0x2A4B
	CharControlPoint      uint16 = 0x2A4C
	CharReport            uint16 = 0x2A4D
	CharProtocolMode      uint16 = 0x2A4E
	CharBootKeyboardInput uint16 = 0x2A22
	CharBootMouseInput    uint16 = 0x2A33

	DescCCCD            uint16 = 0x2902
	DescReportReference uint16 = 0x2908
)

// Protocol Mode values.
const (
	ProtocolModeBoot   byte = 0x00
	ProtocolModeReport byte = 0x01
)

// HID Control Point values.
const (
	ControlPointSuspend     byte = 0x00
	ControlPointExitSuspend byte = 0x01
)

// Role distinguishes characteristics that share a UUID (every Report
// characteristic uses 0x2A4D) so on_write/on_read know which piece of
// behavior to run.
type Role int

const (
	RoleHIDInformation Role = iota
	RoleReportMap
	RoleControlPoint
	RoleReport
	RoleProtocolMode
	RoleBootInput
)

// CharRef is a stable index into a ServiceDesc's Characteristics, used as
// the char_id reads, writes and notifications are keyed by.
type CharRef int

// CharSpec describes one characteristic (and, for Report characteristics,
// the Report Reference descriptor that disambiguates it from its
// same-UUID siblings).
type CharSpec struct {
	Ref        CharRef
	UUID       uint16
	Role       Role
	ReportID   byte
	Direction  report.Direction
	Notifiable bool
	Writable   bool
}

// ServiceDesc is the adapter-agnostic GATT service description built
// for a profile.
type ServiceDesc struct {
	Profile         report.Profile
	UUID            uint16
	ReportMap       []byte
	Characteristics []CharSpec
}

// ErrInvalidOffset is returned by OnRead when offset exceeds the cached
// value's length.
type ErrInvalidOffset struct {
	Ref    CharRef
	Offset int
	Length int
}

func (e *ErrInvalidOffset) Error() string {
	return fmt.Sprintf("gatt: offset %d exceeds length %d for char %d", e.Offset, e.Length, e.Ref)
}

// Kind implements hidcore.Kinded.
func (e *ErrInvalidOffset) Kind() hidcore.Kind { return hidcore.KindAttributeInvalidOffset }

// ErrUnknownCharacteristic is returned by OnRead/OnWrite for a CharRef not
// present in the active service.
type ErrUnknownCharacteristic struct {
	Ref CharRef
}

func (e *ErrUnknownCharacteristic) Error() string {
	return fmt.Sprintf("gatt: unknown characteristic ref %d", e.Ref)
}

// Ack is the non-error result of a successful OnWrite.
type Ack struct {
	// Suspended reports the HID Control Point suspend flag's new value
	// after this write, valid only when the write targeted the Control
	// Point characteristic.
	Suspended bool
}

// HIDInfoFlags default, "remote wake + normally connectable".
const DefaultHIDInfoFlags byte = 0x03

// builtService is the live, per-profile state a Registry holds: the
// description plus the mutable value caches.
type builtService struct {
	desc         ServiceDesc
	values       map[CharRef][]byte
	protocolMode byte
	suspended    bool
}

// Registry builds and serves HID GATT services. It holds no reference
// to the GATT server or transport; the facade holds the Registry
// instead, never the other way around.
type Registry struct {
	hidInfoFlags     byte
	defaultProtoMode byte
	services         map[report.Profile]*builtService
}

// NewRegistry returns a Registry using the given HID Information flags and
// default Protocol Mode (reset onto every new link).
func NewRegistry(hidInfoFlags byte, defaultProtocolMode byte) *Registry {
	return &Registry{
		hidInfoFlags:     hidInfoFlags,
		defaultProtoMode: defaultProtocolMode,
		services:         make(map[report.Profile]*builtService),
	}
}

// BuildService constructs the ServiceDesc for profile, registers its
// initial cached values, and returns the description. Calling it again
// for an already-built profile resets that profile's live state (used on
// Service Activator re-activation; the per-link reset is ResetLink).
func (r *Registry) BuildService(profile report.Profile) ServiceDesc {
	desc := buildServiceDesc(profile)
	bs := &builtService{
		desc:         desc,
		values:       make(map[CharRef][]byte, len(desc.Characteristics)),
		protocolMode: r.defaultProtoMode,
	}
	for _, c := range desc.Characteristics {
		switch c.Role {
		case RoleHIDInformation:
			bs.values[c.Ref] = []byte{0x11, 0x01, 0x00, r.hidInfoFlags}
		case RoleReportMap:
			bs.values[c.Ref] = desc.ReportMap
		case RoleReport:
			bs.values[c.Ref] = make([]byte, reportLength(profile, c))
		case RoleBootInput:
			bs.values[c.Ref] = make([]byte, bootReportLength(c.UUID))
		case RoleProtocolMode:
			bs.values[c.Ref] = []byte{bs.protocolMode}
		default:
			bs.values[c.Ref] = nil
		}
	}
	r.services[profile] = bs
	return desc
}

// ResetLink resets per-link server-side state for profile: Protocol
// Mode back to default and suspended cleared, as happens on every new
// connection.
func (r *Registry) ResetLink(profile report.Profile) {
	bs, ok := r.services[profile]
	if !ok {
		return
	}
	bs.protocolMode = r.defaultProtoMode
	bs.suspended = false
	if ref, ok := findRole(bs.desc, RoleProtocolMode); ok {
		bs.values[ref] = []byte{bs.protocolMode}
	}
}

// IsSuspended reports whether profile's HID Control Point is in Suspend.
func (r *Registry) IsSuspended(profile report.Profile) bool {
	bs, ok := r.services[profile]
	return ok && bs.suspended
}

// UpdateReportValue caches the bytes most recently sent for an Input
// report, so subsequent reads observe the last written value.
func (r *Registry) UpdateReportValue(profile report.Profile, ref CharRef, value []byte) {
	bs, ok := r.services[profile]
	if !ok {
		return
	}
	bs.values[ref] = append([]byte(nil), value...)
}

// OnRead returns the cached value for ref starting at offset.
func (r *Registry) OnRead(profile report.Profile, ref CharRef, offset int) ([]byte, error) {
	bs, ok := r.services[profile]
	if !ok {
		return nil, &ErrUnknownCharacteristic{Ref: ref}
	}
	v, ok := bs.values[ref]
	if !ok {
		return nil, &ErrUnknownCharacteristic{Ref: ref}
	}
	if offset > len(v) {
		return nil, &ErrInvalidOffset{Ref: ref, Offset: offset, Length: len(v)}
	}
	return v[offset:], nil
}

// OnWrite dispatches a characteristic write by the CharSpec's Role: it
// updates Protocol Mode, interprets the HID Control Point, or accepts (and
// silently discards) an Output report's LED bitmap.
func (r *Registry) OnWrite(profile report.Profile, ref CharRef, data []byte) (Ack, error) {
	bs, ok := r.services[profile]
	if !ok {
		return Ack{}, &ErrUnknownCharacteristic{Ref: ref}
	}
	spec, ok := findSpec(bs.desc, ref)
	if !ok {
		return Ack{}, &ErrUnknownCharacteristic{Ref: ref}
	}
	switch spec.Role {
	case RoleProtocolMode:
		if len(data) < 1 {
			return Ack{}, fmt.Errorf("gatt: empty protocol mode write")
		}
		bs.protocolMode = data[0]
		bs.values[ref] = []byte{bs.protocolMode}
		return Ack{}, nil
	case RoleControlPoint:
		if len(data) < 1 {
			return Ack{}, fmt.Errorf("gatt: empty control point write")
		}
		switch data[0] {
		case ControlPointSuspend:
			bs.suspended = true
		case ControlPointExitSuspend:
			bs.suspended = false
		}
		return Ack{Suspended: bs.suspended}, nil
	case RoleReport:
		// Output report (LED bitmap): cached so reads return it; the
		// facade records it on the diagnostics tap, nothing else
		// consumes it.
		bs.values[ref] = append([]byte(nil), data...)
		return Ack{}, nil
	default:
		return Ack{}, fmt.Errorf("gatt: characteristic %d is not writable", ref)
	}
}

func findSpec(desc ServiceDesc, ref CharRef) (CharSpec, bool) {
	for _, c := range desc.Characteristics {
		if c.Ref == ref {
			return c, true
		}
	}
	return CharSpec{}, false
}

func findRole(desc ServiceDesc, role Role) (CharRef, bool) {
	for _, c := range desc.Characteristics {
		if c.Role == role {
			return c.Ref, true
		}
	}
	return 0, false
}

func reportLength(profile report.Profile, c CharSpec) int {
	if profile == report.Keyboard && c.Direction == report.DirectionOutput {
		return report.KeyboardOutputSpec().LengthBytes
	}
	spec, err := report.ReportSpecOf(profile, c.ReportID)
	if err != nil {
		return 0
	}
	return spec.LengthBytes
}

// bootReportLength is fixed by the HID specification's boot protocol: an
// 8-byte keyboard report, a 3-byte {buttons, dx, dy} mouse report.
func bootReportLength(uuid uint16) int {
	switch uuid {
	case CharBootKeyboardInput:
		return 8
	case CharBootMouseInput:
		return 3
	default:
		return 0
	}
}
