package targeting

import "github.com/coregx/civicpush/model"

// Target is a delivery token together with the locale of its device.
type Target struct {
	Token  string       `json:"-"`
	Locale model.Locale `json:"locale"`
}

// Envelope is one outbound push: a token and the content in its locale.
type Envelope struct {
	Token   string        `json:"-"`
	Locale  model.Locale  `json:"locale"`
	Content model.Content `json:"content"`
}

// HasContentFor reports whether a device with locale can be addressed
// given the supplied payloads. There is no fallback between locales.
func HasContentFor(locale model.Locale, hasEnglish bool) bool {
	switch locale {
	case model.LocaleHR:
		return true
	case model.LocaleEN:
		return hasEnglish
	default:
		return false
	}
}

// MatchLocale builds the send set: HR targets get hr, EN targets get en
// when it is supplied and are silently dropped otherwise. Target order is
// preserved.
func MatchLocale(targets []Target, hr model.Content, en *model.Content) []Envelope {
	out := make([]Envelope, 0, len(targets))
	for _, target := range targets {
		if !HasContentFor(target.Locale, en != nil) {
			continue
		}
		content := hr
		if target.Locale == model.LocaleEN {
			content = *en
		}
		out = append(out, Envelope{Token: target.Token, Locale: target.Locale, Content: content})
	}
	return out
}

// IsDeviceTargetable combines every device-side rule: opted in, municipal
// gate and locale match.
func IsDeviceTargetable(device model.DeviceRegistration, tags []model.Tag, hasEnglish bool) bool {
	if !device.PushOptIn {
		return false
	}
	if !IsDeviceEligibleForMessage(tags, device.Municipality) {
		return false
	}
	return HasContentFor(device.Locale, hasEnglish)
}

// FilterDevices returns the devices IsDeviceTargetable accepts, preserving order.
func FilterDevices(devices []model.DeviceRegistration, tags []model.Tag, hasEnglish bool) []model.DeviceRegistration {
	out := make([]model.DeviceRegistration, 0, len(devices))
	for _, device := range devices {
		if IsDeviceTargetable(device, tags, hasEnglish) {
			out = append(out, device)
		}
	}
	return out
}

// TargetsOf converts device registrations into dispatch targets.
func TargetsOf(devices []model.DeviceRegistration) []Target {
	out := make([]Target, 0, len(devices))
	for _, device := range devices {
		out = append(out, Target{Token: device.Token, Locale: device.Locale})
	}
	return out
}
