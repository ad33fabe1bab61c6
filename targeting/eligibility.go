// Package targeting holds the pure rules of the engine: who may see a
// message, which messages are banners for which screen, when an urgent
// message triggers a push and which devices receive it.
//
// Every function here is synchronous, side-effect free and safe for
// concurrent use. Callers supply "now" explicitly.
package targeting

import "github.com/coregx/civicpush/model"

// IsMessageEligible reports whether user may see msg at all.
//
// A message without a municipal tag is visible to everyone. A message with
// a municipal tag is visible only to locals of that municipality, whatever
// other tags it carries. The activation window is not considered.
func IsMessageEligible(msg model.Message, user model.UserContext) bool {
	municipalities := model.MunicipalitiesOf(msg.Tags)
	if len(municipalities) == 0 {
		return true
	}
	home, ok := user.LocalMunicipality()
	if !ok {
		return false
	}
	return containsMunicipality(municipalities, home)
}

// IsDeviceEligibleForMessage is the device-side municipal gate: a message
// without a municipal tag reaches every device, a municipal message only
// devices registered for that municipality. Locale and opt-in are checked
// by later stages.
func IsDeviceEligibleForMessage(tags []model.Tag, municipality *model.Municipality) bool {
	municipalities := model.MunicipalitiesOf(tags)
	if len(municipalities) == 0 {
		return true
	}
	if municipality == nil {
		return false
	}
	return containsMunicipality(municipalities, *municipality)
}

// EligibleMessages returns the messages from msgs that user may see,
// preserving order.
func EligibleMessages(msgs []model.Message, user model.UserContext) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, msg := range msgs {
		if IsMessageEligible(msg, user) {
			out = append(out, msg)
		}
	}
	return out
}

func containsMunicipality(list []model.Municipality, m model.Municipality) bool {
	for _, candidate := range list {
		if candidate == m {
			return true
		}
	}
	return false
}
