package report

import "sync"

// Frame is one descriptor-conformant HID report, ready to hand to the
// Notification Engine.
type Frame []byte

func saturate8(v int16) int8 {
	switch {
	case v > 127:
		return 127
	case v < -127:
		return -127
	default:
		return int8(v)
	}
}

// Encoder maps high-level intents to HID reports. It is pure with
// respect to its inputs but keeps the small piece of per-device state
// it owns: the mouse button mask and the consumer control mask, both of
// which later calls must preserve. An Encoder is safe for
// concurrent use and carries no connection state of its own, so one
// instance may be shared across links.
type Encoder struct {
	mu           sync.Mutex
	mouseButtons byte
	consumerMask uint16
}

// NewEncoder returns an Encoder with zeroed mouse and consumer state.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// PressKey returns the 8-byte keyboard report for the given usages and
// modifier byte, slots filled in insertion order and zero-padded. It fails
// with TooManyKeysError when more than six usages are requested.
func (e *Encoder) PressKey(keys []uint8, modifiers uint8) (Frame, error) {
	if len(keys) > 6 {
		return nil, &TooManyKeysError{Count: len(keys)}
	}
	f := make(Frame, 8)
	f[0] = modifiers
	copy(f[2:8], keys)
	return f, nil
}

// ReleaseAllKeys returns the zeroed 8-byte keyboard report.
func (e *Encoder) ReleaseAllKeys() Frame {
	return make(Frame, 8)
}

// TypeText produces press+release report pairs for text using the fixed
// ASCII table (CharToKey/ShiftChars); characters absent from the table are
// skipped silently. The returned slice is a finite, one-shot sequence;
// callers consume it in order and do not re-enter the Encoder mid-sequence.
func (e *Encoder) TypeText(text string) []Frame {
	var out []Frame
	for i := 0; i < len(text); i++ {
		ch := text[i]
		usage, ok := CharToKey[ch]
		if !ok {
			continue
		}
		mod, _ := ModifiersFor(ch)
		press, err := e.PressKey([]uint8{usage}, mod)
		if err != nil {
			continue
		}
		out = append(out, press, e.ReleaseAllKeys())
	}
	return out
}

// MoveMouse clamps dx/dy to [-127,127] and preserves the current button
// state; wheel is always 0.
func (e *Encoder) MoveMouse(dx, dy int16) Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Frame{e.mouseButtons, byte(saturate8(dx)), byte(saturate8(dy)), 0}
}

// PressButton ORs button into the persisted mouse button state and returns
// the resulting report (dx=dy=wheel=0).
func (e *Encoder) PressButton(button uint8) Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mouseButtons |= button
	return Frame{e.mouseButtons, 0, 0, 0}
}

// ReleaseButtons zeroes the persisted mouse button state.
func (e *Encoder) ReleaseButtons() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mouseButtons = 0
	return Frame{0, 0, 0, 0}
}

// Click returns a press-then-release pair for button; ordering the two
// sends is the caller's responsibility.
func (e *Encoder) Click(button uint8) (Frame, Frame) {
	return e.PressButton(button), e.ReleaseButtons()
}

// Scroll clamps delta to [-127,127] and preserves the current button
// state; dx=dy=0.
func (e *Encoder) Scroll(delta int16) Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Frame{e.mouseButtons, 0, 0, byte(saturate8(delta))}
}

// Media sets or clears the bits of mask in the persisted consumer control
// state and returns the resulting 2-byte little-endian report.
func (e *Encoder) Media(mask uint16, press bool) Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	if press {
		e.consumerMask |= mask
	} else {
		e.consumerMask &^= mask
	}
	return Frame{byte(e.consumerMask), byte(e.consumerMask >> 8)}
}

// MediaTap emits a press-then-release pair for mask, for callers that only
// want a momentary tap (play/pause, next, etc.).
func (e *Encoder) MediaTap(mask uint16) (Frame, Frame) {
	return e.Media(mask, true), e.Media(mask, false)
}

// EncodeComposite assembles the 14-byte Composite report: {media(2),
// mouse-buttons(1), dx(1), dy(1), wheel(1), keyboard(8)}, no report ID.
func EncodeComposite(media uint16, mouseButtons byte, dx, dy, wheel int16, keyboard Frame) Frame {
	f := make(Frame, 14)
	f[0] = byte(media)
	f[1] = byte(media >> 8)
	f[2] = mouseButtons
	f[3] = byte(saturate8(dx))
	f[4] = byte(saturate8(dy))
	f[5] = byte(saturate8(wheel))
	if len(keyboard) == 8 {
		copy(f[6:14], keyboard)
	}
	return f
}
