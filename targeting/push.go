package targeting

import (
	"time"

	"github.com/coregx/civicpush/model"
)

// ShouldTriggerPush reports whether an urgent push fires at now: the tags
// carry the emergency tag and now lies inside the fully specified window.
// Unlike banners, no context tag is needed.
//
// Callers invoke it when a window opens or a message is (re)activated and
// are responsible for not dispatching the same activation twice.
func ShouldTriggerPush(tags []model.Tag, activeFrom, activeTo *time.Time, now time.Time) bool {
	if !model.HasTag(tags, model.TagEmergency) {
		return false
	}
	return model.IsWithinActiveWindow(activeFrom, activeTo, now)
}

// ShouldTriggerPushFor is ShouldTriggerPush applied to a message.
func ShouldTriggerPushFor(msg model.Message, now time.Time) bool {
	return ShouldTriggerPush(msg.Tags, msg.ActiveFrom, msg.ActiveTo, now)
}
