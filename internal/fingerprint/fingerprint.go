// Package fingerprint defines the login context fingerprint value type and
// its comparison functions
package fingerprint

// Fingerprint identifies the network, geo and device context of a login
// attempt. All eight attributes are resolved upstream; the value is immutable
// once captured for a request.
type Fingerprint struct {
	IP         string `json:"ip"`
	Country    string `json:"country"`
	City       string `json:"city"`
	Browser    string `json:"browser"`
	Platform   string `json:"platform"`
	OS         string `json:"os"`
	Device     string `json:"device"`
	DeviceType string `json:"device_type"`
}

// FieldNames lists the fingerprint attributes in a fixed order, matching the
// order used by Diff.
var FieldNames = []string{"ip", "country", "city", "browser", "platform", "os", "device", "deviceType"}

// Equal reports whether two fingerprints match exactly. Comparison is strict
// and case-sensitive over all eight attributes.
func Equal(a, b Fingerprint) bool {
	return a == b
}

// Diff returns the names of the attributes that differ between a and b.
// The result is for reporting only; policy decisions are match/no-match.
func Diff(a, b Fingerprint) []string {
	var mismatched []string
	fields := []struct {
		name string
		a, b string
	}{
		{"ip", a.IP, b.IP},
		{"country", a.Country, b.Country},
		{"city", a.City, b.City},
		{"browser", a.Browser, b.Browser},
		{"platform", a.Platform, b.Platform},
		{"os", a.OS, b.OS},
		{"device", a.Device, b.Device},
		{"deviceType", a.DeviceType, b.DeviceType},
	}

	for _, f := range fields {
		if f.a != f.b {
			mismatched = append(mismatched, f.name)
		}
	}

	return mismatched
}
