package report

import "github.com/nimblehid/hogp/report/hiditem"

// Usage pages and generic-desktop usages referenced by the descriptors
// below (USB HID Usage Tables 1.12).
const (
	usagePageGenericDesktop = 0x01
	usagePageKeyboard       = 0x07
	usagePageLEDs           = 0x08
	usagePageButton         = 0x09
	usagePageConsumer       = 0x0C

	usageDesktopPointer  = 0x01
	usageDesktopMouse    = 0x02
	usageDesktopKeyboard = 0x06
	usageDesktopX        = 0x30
	usageDesktopY        = 0x31
	usageDesktopWheel    = 0x38

	usageConsumerControl = 0x01
)

// Consumer Control usages fixed by the catalog, least-significant bit
// first within the 16-bit mask.
const (
	ConsumerPlayPause = 0x01
	ConsumerNext      = 0x02
	ConsumerPrev      = 0x04
	ConsumerVolumeUp  = 0x08
	ConsumerVolumeDn  = 0x10
	ConsumerMute      = 0x20
)

var keyboardReportDescriptor = hiditem.Report{Items: []hiditem.Item{
	hiditem.UsagePage{Page: usagePageGenericDesktop},
	hiditem.Usage{Usage: usageDesktopKeyboard},
	hiditem.Collection{Kind: hiditem.CollectionApplication, Items: []hiditem.Item{
		hiditem.ReportID{ID: 0x01},
		// Modifier byte: 8 single-bit fields, usage 0xE0..0xE7.
		hiditem.UsagePage{Page: usagePageKeyboard},
		hiditem.UsageMinimum{Min: 0xE0},
		hiditem.UsageMaximum{Max: 0xE7},
		hiditem.LogicalMinimum{Min: 0},
		hiditem.LogicalMaximum{Max: 1},
		hiditem.ReportSize{Bits: 1},
		hiditem.ReportCount{Count: 8},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainAbs},
		// Reserved byte.
		hiditem.ReportCount{Count: 1},
		hiditem.ReportSize{Bits: 8},
		hiditem.Input{Flags: hiditem.MainConst},
		// LED output: 5 bits + 3 padding.
		hiditem.ReportCount{Count: 5},
		hiditem.ReportSize{Bits: 1},
		hiditem.UsagePage{Page: usagePageLEDs},
		hiditem.UsageMinimum{Min: 0x01},
		hiditem.UsageMaximum{Max: 0x05},
		hiditem.Output{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainAbs},
		hiditem.ReportCount{Count: 1},
		hiditem.ReportSize{Bits: 3},
		hiditem.Output{Flags: hiditem.MainConst},
		// 6 key slots, usage 0..255, logical 0..255.
		hiditem.ReportCount{Count: 6},
		hiditem.ReportSize{Bits: 8},
		hiditem.LogicalMinimum{Min: 0},
		hiditem.LogicalMaximum{Max: 255},
		hiditem.UsagePage{Page: usagePageKeyboard},
		hiditem.UsageMinimum{Min: 0},
		hiditem.UsageMaximum{Max: 255},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainArray},
	}},
}}

func mouseReportDescriptor(withReportID bool) hiditem.Report {
	body := []hiditem.Item{
		hiditem.Usage{Usage: usageDesktopPointer},
		hiditem.Collection{Kind: hiditem.CollectionPhysical, Items: []hiditem.Item{
			// 3 button bits + 5-bit padding.
			hiditem.UsagePage{Page: usagePageButton},
			hiditem.UsageMinimum{Min: 0x01},
			hiditem.UsageMaximum{Max: 0x03},
			hiditem.LogicalMinimum{Min: 0},
			hiditem.LogicalMaximum{Max: 1},
			hiditem.ReportCount{Count: 3},
			hiditem.ReportSize{Bits: 1},
			hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainAbs},
			hiditem.ReportCount{Count: 1},
			hiditem.ReportSize{Bits: 5},
			hiditem.Input{Flags: hiditem.MainConst},
			// X, Y, Wheel: signed 8-bit relative.
			hiditem.UsagePage{Page: usagePageGenericDesktop},
			hiditem.Usage{Usage: usageDesktopX},
			hiditem.Usage{Usage: usageDesktopY},
			hiditem.Usage{Usage: usageDesktopWheel},
			hiditem.LogicalMinimum{Min: -127},
			hiditem.LogicalMaximum{Max: 127},
			hiditem.ReportSize{Bits: 8},
			hiditem.ReportCount{Count: 3},
			hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainRel},
		}},
	}
	items := []hiditem.Item{
		hiditem.UsagePage{Page: usagePageGenericDesktop},
		hiditem.Usage{Usage: usageDesktopMouse},
	}
	if withReportID {
		items = append(items, hiditem.Collection{Kind: hiditem.CollectionApplication, Items: append(
			[]hiditem.Item{hiditem.ReportID{ID: 0x01}}, body...,
		)})
	} else {
		items = append(items, hiditem.Collection{Kind: hiditem.CollectionApplication, Items: body})
	}
	return hiditem.Report{Items: items}
}

var consumerReportDescriptor = hiditem.Report{Items: []hiditem.Item{
	hiditem.UsagePage{Page: usagePageConsumer},
	hiditem.Usage{Usage: usageConsumerControl},
	hiditem.Collection{Kind: hiditem.CollectionApplication, Items: []hiditem.Item{
		hiditem.ReportID{ID: 0x02},
		hiditem.UsagePage{Page: usagePageConsumer},
		hiditem.UsageMinimum{Min: 0x01},
		hiditem.UsageMaximum{Max: 0x10},
		hiditem.LogicalMinimum{Min: 0},
		hiditem.LogicalMaximum{Max: 1},
		hiditem.ReportSize{Bits: 1},
		hiditem.ReportCount{Count: 16},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainAbs},
	}},
}}

// compositeReportDescriptor packs the consumer, mouse and keyboard
// reports into a single
// application collection reporting one 14-byte input report with no report
// IDs, in the byte order {media(2), buttons(1), dx(1), dy(1), wheel(1),
// keyboard(8)}.
var compositeReportDescriptor = hiditem.Report{Items: []hiditem.Item{
	hiditem.UsagePage{Page: usagePageGenericDesktop},
	hiditem.Usage{Usage: usageDesktopKeyboard},
	hiditem.Collection{Kind: hiditem.CollectionApplication, Items: []hiditem.Item{
		hiditem.UsagePage{Page: usagePageConsumer},
		hiditem.UsageMinimum{Min: 0x01},
		hiditem.UsageMaximum{Max: 0x10},
		hiditem.LogicalMinimum{Min: 0},
		hiditem.LogicalMaximum{Max: 1},
		hiditem.ReportSize{Bits: 1},
		hiditem.ReportCount{Count: 16},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainAbs},

		hiditem.UsagePage{Page: usagePageButton},
		hiditem.UsageMinimum{Min: 0x01},
		hiditem.UsageMaximum{Max: 0x03},
		hiditem.LogicalMinimum{Min: 0},
		hiditem.LogicalMaximum{Max: 1},
		hiditem.ReportCount{Count: 3},
		hiditem.ReportSize{Bits: 1},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainAbs},
		hiditem.ReportCount{Count: 1},
		hiditem.ReportSize{Bits: 5},
		hiditem.Input{Flags: hiditem.MainConst},

		hiditem.UsagePage{Page: usagePageGenericDesktop},
		hiditem.Usage{Usage: usageDesktopX},
		hiditem.Usage{Usage: usageDesktopY},
		hiditem.LogicalMinimum{Min: -127},
		hiditem.LogicalMaximum{Max: 127},
		hiditem.ReportSize{Bits: 8},
		hiditem.ReportCount{Count: 2},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainRel},

		hiditem.Usage{Usage: usageDesktopWheel},
		hiditem.LogicalMinimum{Min: -127},
		hiditem.LogicalMaximum{Max: 127},
		hiditem.ReportSize{Bits: 8},
		hiditem.ReportCount{Count: 1},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainRel},

		hiditem.UsagePage{Page: usagePageKeyboard},
		hiditem.UsageMinimum{Min: 0xE0},
		hiditem.UsageMaximum{Max: 0xE7},
		hiditem.LogicalMinimum{Min: 0},
		hiditem.LogicalMaximum{Max: 1},
		hiditem.ReportSize{Bits: 1},
		hiditem.ReportCount{Count: 8},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainVar | hiditem.MainAbs},

		hiditem.ReportCount{Count: 1},
		hiditem.ReportSize{Bits: 8},
		hiditem.Input{Flags: hiditem.MainConst},

		hiditem.ReportCount{Count: 6},
		hiditem.ReportSize{Bits: 8},
		hiditem.LogicalMinimum{Min: 0},
		hiditem.LogicalMaximum{Max: 255},
		hiditem.UsagePage{Page: usagePageKeyboard},
		hiditem.UsageMinimum{Min: 0},
		hiditem.UsageMaximum{Max: 255},
		hiditem.Input{Flags: hiditem.MainData | hiditem.MainArray},
	}},
}}

var (
	keyboardDescriptorBytes       = keyboardReportDescriptor.Bytes()
	mouseDescriptorBytesWithID    = mouseReportDescriptor(true).Bytes()
	mouseDescriptorBytesWithoutID = mouseReportDescriptor(false).Bytes()
	consumerDescriptorBytes       = consumerReportDescriptor.Bytes()
	compositeDescriptorBytes      = compositeReportDescriptor.Bytes()
)

// DescriptorOf returns the Report Map byte sequence for the given profile.
// Mouse returns the report-ID-bearing variant; use MouseDescriptorWithoutID
// for the composite-compatible variant.
func DescriptorOf(p Profile) []byte {
	switch p {
	case Keyboard:
		return keyboardDescriptorBytes
	case Mouse:
		return mouseDescriptorBytesWithID
	case Consumer:
		return consumerDescriptorBytes
	case Composite:
		return compositeDescriptorBytes
	default:
		return nil
	}
}

// MouseDescriptorWithoutID returns the report-ID-less Mouse Report Map, the
// "composite without IDs" variant required alongside the ID-bearing one.
func MouseDescriptorWithoutID() []byte {
	return mouseDescriptorBytesWithoutID
}

// ReportSpecOf returns the layout metadata for a profile's report. Only
// Input reports are modeled here; the keyboard's LED Output report is
// looked up via KeyboardOutputSpec.
func ReportSpecOf(p Profile, reportID byte) (ReportSpec, error) {
	switch p {
	case Keyboard:
		if reportID == 0x01 {
			return ReportSpec{ReportID: 0x01, Direction: DirectionInput, LengthBytes: 8}, nil
		}
	case Mouse:
		if reportID == 0x01 {
			return ReportSpec{ReportID: 0x01, Direction: DirectionInput, LengthBytes: 4}, nil
		}
		if reportID == 0x00 {
			return ReportSpec{ReportID: 0x00, Direction: DirectionInput, LengthBytes: 4}, nil
		}
	case Consumer:
		if reportID == 0x02 {
			return ReportSpec{ReportID: 0x02, Direction: DirectionInput, LengthBytes: 2}, nil
		}
	case Composite:
		if reportID == 0x00 {
			return ReportSpec{ReportID: 0x00, Direction: DirectionInput, LengthBytes: 14}, nil
		}
	}
	return ReportSpec{}, &ErrUnknownReport{Profile: p, ReportID: reportID, Direction: DirectionInput}
}

// KeyboardOutputSpec describes the keyboard's single Output report (LED
// state), which carries no report ID of its own distinct from 0x01.
func KeyboardOutputSpec() ReportSpec {
	return ReportSpec{ReportID: 0x01, Direction: DirectionOutput, LengthBytes: 1}
}
