package hiditem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsagePageEncodesShortItem(t *testing.T) {
	got := UsagePage{Page: 0x01}.encode(nil)
	assert.Equal(t, []byte{0x05, 0x01}, got)
}

func TestReportCountZeroStillEmitsOneByte(t *testing.T) {
	got := ReportCount{Count: 0}.encode(nil)
	assert.Equal(t, []byte{0x95, 0x00}, got)
}

func TestLogicalMinimumNegativeUsesSignedByte(t *testing.T) {
	got := LogicalMinimum{Min: -127}.encode(nil)
	assert.Equal(t, []byte{0x15, 0x81}, got)
}

func TestLogicalMaximumTwoByteRange(t *testing.T) {
	got := LogicalMaximum{Max: 255}.encode(nil)
	// 255 doesn't fit a signed byte (-128..127), needs 2 bytes.
	assert.Equal(t, []byte{0x26, 0xFF, 0x00}, got)
}

func TestCollectionClosesWithEndCollection(t *testing.T) {
	r := Report{Items: []Item{
		Collection{Kind: CollectionApplication, Items: []Item{
			Input{Flags: MainConst},
		}},
	}}
	got := r.Bytes()
	assert.Equal(t, []byte{
		0xA1, 0x01, // Collection(Application)
		0x81, 0x01, // Input(Const)
		0xC0, // End Collection
	}, got)
}

func TestInputFlagsByte(t *testing.T) {
	got := Input{Flags: MainData | MainVar | MainAbs}.encode(nil)
	assert.Equal(t, []byte{0x81, 0x02}, got)
}
