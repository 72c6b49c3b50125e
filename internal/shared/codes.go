package shared

import "strings"

// Transport modes supported across contracts, lanes and shipments.
const (
	ModeSea  = "Sea"
	ModeAir  = "Air"
	ModeLand = "Land"
)

// divisionCodes maps a division name to its document-number prefix.
// Built once at init; callers only read it.
var divisionCodes = map[string]string{
	"Export":   "EXP",
	"Import":   "IMP",
	"Domestic": "DOM",
	"Project":  "PRJ",
}

var modeCodes = map[string]string{
	ModeSea:  "SEA",
	ModeAir:  "AIR",
	ModeLand: "LAN",
}

// serviceTypes lists the charge classifications recognised on line items.
var serviceTypes = map[string]struct{}{
	"Freight":    {},
	"Customs":    {},
	"Trucking":   {},
	"Port":       {},
	"Warehouse":  {},
	"Surcharges": {},
}

// DivisionCode returns the naming prefix for a division.
func DivisionCode(division string) (string, bool) {
	code, ok := divisionCodes[division]
	return code, ok
}

// ModeCode returns the naming prefix for a transport mode.
func ModeCode(mode string) (string, bool) {
	code, ok := modeCodes[mode]
	return code, ok
}

// ValidServiceType reports whether the service type is a known classification.
func ValidServiceType(serviceType string) bool {
	_, ok := serviceTypes[serviceType]
	return ok
}

// ParseModes splits a multi-select mode value ("Sea,Air" or newline separated)
// into trimmed mode names.
func ParseModes(raw string) []string {
	sep := ","
	if strings.Contains(raw, "\n") {
		sep = "\n"
	}
	var modes []string
	for _, part := range strings.Split(raw, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			modes = append(modes, part)
		}
	}
	return modes
}

// HasMode reports whether the multi-select mode value contains the mode.
func HasMode(raw, mode string) bool {
	for _, m := range ParseModes(raw) {
		if m == mode {
			return true
		}
	}
	return false
}

// FirstMode returns the first mode from a multi-select value, or "".
func FirstMode(raw string) string {
	modes := ParseModes(raw)
	if len(modes) == 0 {
		return ""
	}
	return modes[0]
}
