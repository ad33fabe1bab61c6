package model

// Municipality identifies one of the municipalities served by the app.
// Its values equal the municipal tags that gate content to it.
type Municipality string

// Supported municipalities.
const (
	MunicipalityVis    Municipality = "vis"
	MunicipalityKomiza Municipality = "komiza"
)

// Municipalities lists every supported municipality.
var Municipalities = []Municipality{MunicipalityVis, MunicipalityKomiza}

// IsValid reports whether m is a supported municipality.
func (m Municipality) IsValid() bool {
	for _, known := range Municipalities {
		if m == known {
			return true
		}
	}
	return false
}

// Tag returns the municipal tag that gates content to m.
func (m Municipality) Tag() Tag {
	return Tag(m)
}

// UserMode is how the app user identified themselves during onboarding.
type UserMode string

// User modes.
const (
	UserModeVisitor UserMode = "visitor"
	UserModeLocal   UserMode = "local"
)

// IsValid reports whether m is a known user mode.
func (m UserMode) IsValid() bool {
	return m == UserModeVisitor || m == UserModeLocal
}

// UserContext is the identity a read request is evaluated for.
// Municipality is only meaningful for locals.
type UserContext struct {
	Mode         UserMode      `json:"userMode"`
	Municipality *Municipality `json:"municipality,omitempty"`
}

// NewVisitor returns the context of a visitor.
func NewVisitor() UserContext {
	return UserContext{Mode: UserModeVisitor}
}

// NewLocal returns the context of a local of municipality m.
func NewLocal(m Municipality) UserContext {
	return UserContext{Mode: UserModeLocal, Municipality: &m}
}

// LocalMunicipality returns the user's municipality if the user is a local
// with a municipality set.
func (u UserContext) LocalMunicipality() (Municipality, bool) {
	if u.Mode != UserModeLocal || u.Municipality == nil {
		return "", false
	}
	return *u.Municipality, true
}
