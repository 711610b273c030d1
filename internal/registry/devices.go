// Package registry enumerates the HID profiles this build knows how to
// activate. Profiles are a fixed, closed set, so registration is a
// plain table rather than an import-side-effect per profile.
package registry

import (
	"strings"

	"github.com/nimblehid/hogp/report"
)

// Profiles lists every HID profile the Service Activator may mount, in
// the canonical order the CLI and config validation present them.
var Profiles = []report.Profile{
	report.Mouse,
	report.Keyboard,
	report.Consumer,
	report.Composite,
}

// ParseProfile resolves a profile by its lowercase name (as accepted on
// the command line / intent API), for callers that take a profile as a
// string.
func ParseProfile(name string) (report.Profile, bool) {
	for _, p := range Profiles {
		if strings.EqualFold(p.String(), name) {
			return p, true
		}
	}
	return 0, false
}
