// Package model contains the domain models of the targeting engine: the tag
// taxonomy, messages and their activation windows, user and screen contexts,
// device registrations and push activation records.
package model

// Tag is one value of the message taxonomy.
type Tag string

// Canonical tags.
const (
	// TagEmergency marks a message as urgent. Required for banners and push.
	TagEmergency Tag = "hitno"

	// TagGeneral marks content relevant to everyone.
	TagGeneral Tag = "opcenito"

	// TagCultural marks events and culture content.
	TagCultural Tag = "kultura"

	// TagTransport marks road and sea transport content.
	TagTransport Tag = "promet"

	// TagVis scopes a message to the municipality of Vis.
	TagVis Tag = "vis"

	// TagKomiza scopes a message to the municipality of Komiža.
	TagKomiza Tag = "komiza"
)

// Deprecated aliases, still produced by older authoring clients.
const (
	TagRoadTransport Tag = "cestovni_promet"
	TagSeaTransport  Tag = "pomorski_promet"
)

var tagAliases = map[Tag]Tag{
	TagRoadTransport: TagTransport,
	TagSeaTransport:  TagTransport,
}

var contextTags = map[Tag]struct{}{
	TagGeneral:   {},
	TagCultural:  {},
	TagTransport: {},
	TagVis:       {},
	TagKomiza:    {},
}

var municipalTags = map[Tag]Municipality{
	TagVis:    MunicipalityVis,
	TagKomiza: MunicipalityKomiza,
}

// Canonical returns the canonical form of t. Deprecated aliases map to
// TagTransport; every other value is returned unchanged.
func (t Tag) Canonical() Tag {
	if canonical, ok := tagAliases[t]; ok {
		return canonical
	}
	return t
}

// IsEmergency reports whether t is the emergency tag.
func (t Tag) IsEmergency() bool {
	return t == TagEmergency
}

// IsContext reports whether t is a canonical non-emergency context tag.
func (t Tag) IsContext() bool {
	_, ok := contextTags[t]
	return ok
}

// Municipality returns the municipality a municipal tag is scoped to.
func (t Tag) Municipality() (Municipality, bool) {
	m, ok := municipalTags[t]
	return m, ok
}

// IsMunicipal reports whether t scopes a message to one municipality.
func (t Tag) IsMunicipal() bool {
	_, ok := municipalTags[t]
	return ok
}

// NormalizeTags canonicalizes deprecated aliases and removes duplicates,
// keeping the first occurrence of every canonical tag. The input is not
// modified. The result is never nil.
func NormalizeTags(tags []Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	seen := make(map[Tag]struct{}, len(tags))
	for _, tag := range tags {
		canonical := tag.Canonical()
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// HasTag reports whether the normalized form of tags contains want.
func HasTag(tags []Tag, want Tag) bool {
	want = want.Canonical()
	for _, tag := range tags {
		if tag.Canonical() == want {
			return true
		}
	}
	return false
}

// MunicipalitiesOf returns the municipalities the tags are scoped to, in
// first-occurrence order. An empty result means the tags carry no
// municipal gate.
func MunicipalitiesOf(tags []Tag) []Municipality {
	var out []Municipality
	for _, tag := range NormalizeTags(tags) {
		if m, ok := tag.Municipality(); ok {
			out = append(out, m)
		}
	}
	return out
}
