package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyboardDescriptorDeclaresEightByteInputReport(t *testing.T) {
	spec, err := ReportSpecOf(Keyboard, 0x01)
	require.NoError(t, err)
	assert.Equal(t, 8, spec.LengthBytes)
	assert.Equal(t, DirectionInput, spec.Direction)
	assert.NotEmpty(t, DescriptorOf(Keyboard))
}

func TestMouseDescriptorBothVariantsReproducible(t *testing.T) {
	withID := DescriptorOf(Mouse)
	withoutID := MouseDescriptorWithoutID()
	assert.NotEmpty(t, withID)
	assert.NotEmpty(t, withoutID)
	assert.NotEqual(t, withID, withoutID)

	spec, err := ReportSpecOf(Mouse, 0x01)
	require.NoError(t, err)
	assert.Equal(t, 4, spec.LengthBytes)
}

func TestConsumerDescriptorReportTwoBytes(t *testing.T) {
	spec, err := ReportSpecOf(Consumer, 0x02)
	require.NoError(t, err)
	assert.Equal(t, 2, spec.LengthBytes)
	assert.NotEmpty(t, DescriptorOf(Consumer))
}

func TestCompositeDescriptorReportFourteenBytesNoReportID(t *testing.T) {
	spec, err := ReportSpecOf(Composite, 0x00)
	require.NoError(t, err)
	assert.Equal(t, 14, spec.LengthBytes)
	assert.NotEmpty(t, DescriptorOf(Composite))
}

func TestReportSpecOfUnknownReportIDFails(t *testing.T) {
	_, err := ReportSpecOf(Keyboard, 0x99)
	require.Error(t, err)
}

// parseTopLevelInputBits is a minimal HID report-descriptor scanner; it
// walks every short item and sums the declared bit width of each Input
// item via the most recent Report Size/Report Count pair. This stands in
// for a full HID parser to verify the byte-length round-trip.
func parseTopLevelInputBits(descriptor []byte) int {
	var reportSize, reportCount, total, depth int
	i := 0
	for i < len(descriptor) {
		prefix := descriptor[i]
		size := prefix & 0x03
		typ := (prefix >> 2) & 0x03
		tag := (prefix >> 4) & 0x0F
		n := 0
		switch size {
		case 0:
			n = 0
		case 1:
			n = 1
		case 2:
			n = 2
		case 3:
			n = 4
		}
		data := descriptor[i+1 : i+1+n]
		val := 0
		for k := len(data) - 1; k >= 0; k-- {
			val = val<<8 | int(data[k])
		}
		switch {
		case typ == 1 && tag == 0x7: // Report Size
			reportSize = val
		case typ == 1 && tag == 0x9: // Report Count
			reportCount = val
		case typ == 0 && tag == 0xA: // Collection
			depth++
		case typ == 0 && tag == 0xC: // End Collection
			depth--
		case typ == 0 && tag == 0x8: // Input
			total += reportSize * reportCount
		}
		i += 1 + n
	}
	return total
}

func TestDescriptorInputBitLengthMatchesReportSpec(t *testing.T) {
	cases := []struct {
		profile  Profile
		reportID byte
		descr    []byte
	}{
		{Keyboard, 0x01, DescriptorOf(Keyboard)},
		{Mouse, 0x01, DescriptorOf(Mouse)},
		{Consumer, 0x02, DescriptorOf(Consumer)},
		{Composite, 0x00, DescriptorOf(Composite)},
	}
	for _, c := range cases {
		spec, err := ReportSpecOf(c.profile, c.reportID)
		require.NoError(t, err)
		bits := parseTopLevelInputBits(c.descr)
		assert.Equal(t, spec.LengthBytes*8, bits, "profile %s", c.profile)
	}
}
