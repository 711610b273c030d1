package gatt

import "github.com/nimblehid/hogp/report"

// buildServiceDesc assembles the mandatory HOGP characteristic set for
// profile, plus the profile's Input (and, for Keyboard, Output) Report
// characteristics.
func buildServiceDesc(profile report.Profile) ServiceDesc {
	var refs []CharSpec
	next := CharRef(0)
	alloc := func(c CharSpec) CharRef {
		c.Ref = next
		refs = append(refs, c)
		next++
		return c.Ref
	}

	alloc(CharSpec{UUID: CharHIDInformation, Role: RoleHIDInformation})
	alloc(CharSpec{UUID: CharReportMap, Role: RoleReportMap})
	alloc(CharSpec{UUID: CharControlPoint, Role: RoleControlPoint, Writable: true})
	alloc(CharSpec{UUID: CharProtocolMode, Role: RoleProtocolMode, Writable: true})

	var reportMap []byte
	switch profile {
	case report.Keyboard:
		reportMap = report.DescriptorOf(report.Keyboard)
		alloc(CharSpec{UUID: CharReport, Role: RoleReport, ReportID: 0x01, Direction: report.DirectionInput, Notifiable: true})
		alloc(CharSpec{UUID: CharReport, Role: RoleReport, ReportID: 0x01, Direction: report.DirectionOutput, Writable: true})
		alloc(CharSpec{UUID: CharBootKeyboardInput, Role: RoleBootInput, Direction: report.DirectionInput, Notifiable: true})
	case report.Mouse:
		reportMap = report.DescriptorOf(report.Mouse)
		alloc(CharSpec{UUID: CharReport, Role: RoleReport, ReportID: 0x01, Direction: report.DirectionInput, Notifiable: true})
		alloc(CharSpec{UUID: CharBootMouseInput, Role: RoleBootInput, Direction: report.DirectionInput, Notifiable: true})
	case report.Consumer:
		reportMap = report.DescriptorOf(report.Consumer)
		alloc(CharSpec{UUID: CharReport, Role: RoleReport, ReportID: 0x02, Direction: report.DirectionInput, Notifiable: true})
	case report.Composite:
		reportMap = report.DescriptorOf(report.Composite)
		alloc(CharSpec{UUID: CharReport, Role: RoleReport, ReportID: 0x00, Direction: report.DirectionInput, Notifiable: true})
	}

	return ServiceDesc{
		Profile:         profile,
		UUID:            ServiceHID,
		ReportMap:       reportMap,
		Characteristics: refs,
	}
}

// InputReportRef returns the CharRef of profile's (single) Input Report
// characteristic, the one the Notification Engine enqueues onto.
func InputReportRef(desc ServiceDesc) (CharRef, bool) {
	for _, c := range desc.Characteristics {
		if c.Role == RoleReport && c.Direction == report.DirectionInput {
			return c.Ref, true
		}
	}
	return 0, false
}
