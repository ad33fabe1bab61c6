package model

import "time"

const tablePrefix = "civicpush_"

// Platform is the mobile platform a delivery token belongs to.
type Platform string

// Supported platforms.
const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// IsValid reports whether p is a supported platform.
func (p Platform) IsValid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// Locale is one of the two content locales.
type Locale string

// Supported locales.
const (
	LocaleHR Locale = "hr"
	LocaleEN Locale = "en"
)

// IsValid reports whether l is a supported locale.
func (l Locale) IsValid() bool {
	return l == LocaleHR || l == LocaleEN
}

// DeviceRegistration is a device that registered a push delivery token.
//
// Registrations are created by the first successful token registration and
// refreshed in place by later registrations of the same DeviceID. PushOptIn
// defaults to true on creation and is only changed by an explicit toggle.
type DeviceRegistration struct {
	DeviceID     string        `json:"deviceId" db:"device_id"`
	Token        string        `json:"-" db:"token"`
	Platform     Platform      `json:"platform" db:"platform"`
	Locale       Locale        `json:"locale" db:"locale"`
	Municipality *Municipality `json:"municipality,omitempty" db:"municipality"`
	PushOptIn    bool          `json:"pushOptIn" db:"push_opt_in"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" db:"updated_at"`
}

// TableName returns the database table name for DeviceRegistration.
func (d DeviceRegistration) TableName() string {
	return tablePrefix + "device"
}

// NewDeviceRegistration creates an opted-in registration.
func NewDeviceRegistration(deviceID, token string, platform Platform, locale Locale, municipality *Municipality, now time.Time) DeviceRegistration {
	return DeviceRegistration{
		DeviceID:     deviceID,
		Token:        token,
		Platform:     platform,
		Locale:       locale,
		Municipality: municipality,
		PushOptIn:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Refresh applies a repeated registration of the same device: token,
// platform, locale and municipality are replaced, PushOptIn and CreatedAt
// are kept.
func (d *DeviceRegistration) Refresh(next DeviceRegistration, now time.Time) {
	d.Token = next.Token
	d.Platform = next.Platform
	d.Locale = next.Locale
	d.Municipality = next.Municipality
	d.UpdatedAt = now
}

// SetOptIn changes the push opt-in flag.
func (d *DeviceRegistration) SetOptIn(value bool, now time.Time) {
	d.PushOptIn = value
	d.UpdatedAt = now
}

// MaskedToken returns the display-safe form of the token.
func (d DeviceRegistration) MaskedToken() string {
	return MaskToken(d.Token)
}

// View returns the representation safe for humans and logs.
func (d DeviceRegistration) View() DeviceView {
	return DeviceView{
		DeviceID:     d.DeviceID,
		Token:        d.MaskedToken(),
		Platform:     d.Platform,
		Locale:       d.Locale,
		Municipality: d.Municipality,
		PushOptIn:    d.PushOptIn,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// DeviceView is a DeviceRegistration with the token masked.
type DeviceView struct {
	DeviceID     string        `json:"deviceId"`
	Token        string        `json:"token"`
	Platform     Platform      `json:"platform"`
	Locale       Locale        `json:"locale"`
	Municipality *Municipality `json:"municipality,omitempty"`
	PushOptIn    bool          `json:"pushOptIn"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Token masking window.
const (
	maskPrefixLen = 8
	maskSuffixLen = 6

	// MaskMinLength is the shortest token rendered with a visible prefix
	// and suffix. Shorter tokens always keep a hidden middle segment of at
	// least six characters out of the output.
	MaskMinLength = 20

	// MaskPlaceholder replaces tokens too short to mask.
	MaskPlaceholder = "***"
)

// MaskToken renders token as "<first 8>...<last 6>", counted in characters.
// Tokens shorter than MaskMinLength characters render as MaskPlaceholder.
func MaskToken(token string) string {
	runes := []rune(token)
	if len(runes) < MaskMinLength {
		return MaskPlaceholder
	}
	return string(runes[:maskPrefixLen]) + "..." + string(runes[len(runes)-maskSuffixLen:])
}
