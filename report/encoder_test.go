package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPressKeyFillsSlotsInOrderAndZeroPads(t *testing.T) {
	e := NewEncoder()
	f, err := e.PressKey([]uint8{KeyA, KeyB, KeyC}, ModLeftShift)
	require.NoError(t, err)
	require.Len(t, f, 8)
	assert.Equal(t, byte(ModLeftShift), f[0])
	assert.Equal(t, byte(0), f[1])
	assert.Equal(t, Frame{ModLeftShift, 0, KeyA, KeyB, KeyC, 0, 0, 0}, f)
}

func TestPressKeyTooManyKeys(t *testing.T) {
	e := NewEncoder()
	_, err := e.PressKey([]uint8{1, 2, 3, 4, 5, 6, 7}, 0)
	require.Error(t, err)
	var tooMany *TooManyKeysError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 7, tooMany.Count)
}

func TestReleaseAllKeysIsIdempotentAndZero(t *testing.T) {
	e := NewEncoder()
	a := e.ReleaseAllKeys()
	b := e.ReleaseAllKeys()
	assert.Equal(t, Frame{0, 0, 0, 0, 0, 0, 0, 0}, a)
	assert.Equal(t, a, b)
}

func TestMoveMouseClampsAndPreservesButtons(t *testing.T) {
	e := NewEncoder()
	e.PressButton(ButtonLeft)
	f := e.MoveMouse(500, -500)
	neg127 := int8(-127)
	assert.Equal(t, Frame{ButtonLeft, byte(int8(127)), byte(neg127), 0}, f)
}

func TestScrollPreservesButtonsAndClampsDelta(t *testing.T) {
	e := NewEncoder()
	e.PressButton(ButtonRight)
	f := e.Scroll(-1000)
	neg127 := int8(-127)
	assert.Equal(t, Frame{ButtonRight, 0, 0, byte(neg127)}, f)
}

func TestClickPressThenRelease(t *testing.T) {
	e := NewEncoder()
	press, release := e.Click(ButtonLeft)
	assert.Equal(t, Frame{0x01, 0x00, 0x00, 0x00}, press)
	assert.Equal(t, Frame{0x00, 0x00, 0x00, 0x00}, release)
}

func TestTypedStringHi(t *testing.T) {
	// Typing "Hi" on an encoder with no prior state.
	e := NewEncoder()
	frames := e.TypeText("Hi")
	require.Len(t, frames, 4)
	assert.Equal(t, Frame{0x02, 0x00, 0x0B, 0x00, 0x00, 0x00, 0x00, 0x00}, frames[0])
	assert.Equal(t, Frame{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, frames[1])
	assert.Equal(t, Frame{0x00, 0x00, 0x0C, 0x00, 0x00, 0x00, 0x00, 0x00}, frames[2])
	assert.Equal(t, Frame{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, frames[3])
}

func TestTypeTextSkipsUnsupportedCharacters(t *testing.T) {
	e := NewEncoder()
	frames := e.TypeText("a☃b") // snowman has no table entry
	require.Len(t, frames, 4)        // a press/release, b press/release
}

func TestMediaTapSetsThenClearsBit(t *testing.T) {
	e := NewEncoder()
	press, release := e.MediaTap(ConsumerPlayPause)
	assert.Equal(t, Frame{ConsumerPlayPause, 0x00}, press)
	assert.Equal(t, Frame{0x00, 0x00}, release)
}

func TestEncodeCompositeLayout(t *testing.T) {
	// media=0x02, mouse_buttons=0x01, x=-1, y=2.
	kb := Frame{0, 0, 0, 0, 0, 0, 0, 0}
	f := EncodeComposite(0x02, 0x01, -1, 2, 0, kb)
	require.Len(t, f, 14)
	assert.Equal(t, Frame{0x02, 0x00, 0x01, 0xFF, 0x02, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}, f)
}

func TestPressKeyReportForAllSizesUpToSix(t *testing.T) {
	e := NewEncoder()
	for n := 0; n <= 6; n++ {
		keys := make([]uint8, n)
		for i := range keys {
			keys[i] = uint8(KeyA + i)
		}
		f, err := e.PressKey(keys, 0)
		require.NoError(t, err)
		require.Len(t, f, 8)
		assert.Equal(t, byte(0), f[0])
		assert.Equal(t, byte(0), f[1])
		for i := 0; i < n; i++ {
			assert.Equal(t, keys[i], f[2+i])
		}
		for i := n; i < 6; i++ {
			assert.Equal(t, byte(0), f[2+i])
		}
	}
}
