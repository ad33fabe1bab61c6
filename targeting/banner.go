package targeting

import (
	"sort"
	"time"

	"github.com/coregx/civicpush/model"
)

// MaxBannersPerScreen caps the banners returned for one screen request.
const MaxBannersPerScreen = 3

// IsValidBannerTagCombination reports whether tags, once normalized, are
// exactly the emergency tag plus one context tag.
func IsValidBannerTagCombination(tags []model.Tag) bool {
	_, ok := bannerContextTag(tags)
	return ok
}

// bannerContextTag returns the context tag of a valid banner combination.
func bannerContextTag(tags []model.Tag) (model.Tag, bool) {
	normalized := model.NormalizeTags(tags)
	if len(normalized) != 2 {
		return "", false
	}
	switch {
	case normalized[0].IsEmergency() && normalized[1].IsContext():
		return normalized[1], true
	case normalized[1].IsEmergency() && normalized[0].IsContext():
		return normalized[0], true
	default:
		return "", false
	}
}

// IsBannerEligible applies, in order: valid tag combination, active window
// at now, and message eligibility for user.
func IsBannerEligible(msg model.Message, user model.UserContext, now time.Time) bool {
	if !IsValidBannerTagCombination(msg.Tags) {
		return false
	}
	if !msg.IsWithinActiveWindow(now) {
		return false
	}
	return IsMessageEligible(msg, user)
}

// IsBannerForScreen reports whether the banner's context tag is on the
// screen's allow-list. Messages without a valid banner combination are
// never shown on any screen.
func IsBannerForScreen(msg model.Message, screen model.Screen) bool {
	tag, ok := bannerContextTag(msg.Tags)
	if !ok {
		return false
	}
	return screen.Allows(tag)
}

// SortBanners orders msgs in place by ActiveFrom descending, then CreatedAt
// descending. Messages whose instants coincide keep their input order.
// Messages without ActiveFrom sort last.
func SortBanners(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		switch {
		case a.ActiveFrom == nil && b.ActiveFrom == nil:
		case a.ActiveFrom == nil:
			return false
		case b.ActiveFrom == nil:
			return true
		case !a.ActiveFrom.Equal(*b.ActiveFrom):
			return a.ActiveFrom.After(*b.ActiveFrom)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// SelectBanners filters msgs to banners for screen, ranks them and caps
// the result at MaxBannersPerScreen. The input slice is not modified.
func SelectBanners(msgs []model.Message, user model.UserContext, screen model.Screen, now time.Time) []model.Message {
	out := make([]model.Message, 0, MaxBannersPerScreen)
	for _, msg := range msgs {
		if IsBannerEligible(msg, user, now) && IsBannerForScreen(msg, screen) {
			out = append(out, msg)
		}
	}
	SortBanners(out)
	if len(out) > MaxBannersPerScreen {
		out = out[:MaxBannersPerScreen]
	}
	return out
}
