package model

// Screen is a render surface that requests banners.
type Screen string

// Known screens.
const (
	ScreenHome      Screen = "home"
	ScreenEvents    Screen = "events"
	ScreenTransport Screen = "transport"
)

// ScreenTags is the closed allow-list of context tags each screen may show
// as a banner. A tag absent from a screen's set never appears there.
// Adding a screen means adding a row here.
var ScreenTags = map[Screen]map[Tag]struct{}{
	ScreenHome: {
		TagGeneral:   {},
		TagCultural:  {},
		TagTransport: {},
		TagVis:       {},
		TagKomiza:    {},
	},
	ScreenEvents: {
		TagCultural: {},
	},
	ScreenTransport: {
		TagTransport: {},
	},
}

// IsValid reports whether s is a known screen.
func (s Screen) IsValid() bool {
	_, ok := ScreenTags[s]
	return ok
}

// Allows reports whether a banner carrying context tag tag may appear on s.
func (s Screen) Allows(tag Tag) bool {
	allowed, ok := ScreenTags[s]
	if !ok {
		return false
	}
	_, ok = allowed[tag.Canonical()]
	return ok
}

// Screens returns all known screens in a fixed order.
func Screens() []Screen {
	return []Screen{ScreenHome, ScreenEvents, ScreenTransport}
}
