package targeting

import (
	"testing"
	"time"

	"github.com/coregx/civicpush/model"
	"github.com/stretchr/testify/assert"
)

func msgWithTags(id string, tags ...model.Tag) model.Message {
	return model.NewMessage(id, model.LocalizedText{HR: "Naslov " + id}, model.LocalizedText{HR: "Tekst"}, tags, time.Now())
}

func municipalityPtr(m model.Municipality) *model.Municipality {
	return &m
}

func TestIsMessageEligible(t *testing.T) {
	visitor := model.NewVisitor()
	visLocal := model.NewLocal(model.MunicipalityVis)
	komizaLocal := model.NewLocal(model.MunicipalityKomiza)
	localWithoutMunicipality := model.UserContext{Mode: model.UserModeLocal}
	visitorClaimingVis := model.UserContext{Mode: model.UserModeVisitor, Municipality: municipalityPtr(model.MunicipalityVis)}

	tests := []struct {
		name     string
		tags     []model.Tag
		user     model.UserContext
		expected bool
	}{
		{"untagged for visitor", nil, visitor, true},
		{"general for visitor", []model.Tag{model.TagGeneral}, visitor, true},
		{"emergency transport for visitor", []model.Tag{model.TagEmergency, model.TagTransport}, visitor, true},
		{"alias transport for local", []model.Tag{model.TagSeaTransport}, komizaLocal, true},
		{"municipal for matching local", []model.Tag{model.TagVis}, visLocal, true},
		{"municipal for other local", []model.Tag{model.TagVis}, komizaLocal, false},
		{"municipal for visitor", []model.Tag{model.TagVis}, visitor, false},
		{"municipal for visitor carrying municipality", []model.Tag{model.TagVis}, visitorClaimingVis, false},
		{"municipal for local without municipality", []model.Tag{model.TagKomiza}, localWithoutMunicipality, false},
		{"emergency municipal still gated", []model.Tag{model.TagEmergency, model.TagKomiza}, visLocal, false},
		{"emergency municipal for matching local", []model.Tag{model.TagEmergency, model.TagKomiza}, komizaLocal, true},
		{"two municipalities, either matches", []model.Tag{model.TagVis, model.TagKomiza}, komizaLocal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsMessageEligible(msgWithTags("m", tt.tags...), tt.user))
		})
	}
}

func TestIsMessageEligible_IgnoresWindow(t *testing.T) {
	now := time.Now()
	expired := msgWithTags("m", model.TagGeneral).
		WithWindow(model.TimePtr(now.Add(-2*time.Hour)), model.TimePtr(now.Add(-time.Hour)))

	assert.True(t, IsMessageEligible(expired, model.NewVisitor()))
}

func TestIsDeviceEligibleForMessage(t *testing.T) {
	vis := municipalityPtr(model.MunicipalityVis)
	komiza := municipalityPtr(model.MunicipalityKomiza)

	assert.True(t, IsDeviceEligibleForMessage([]model.Tag{model.TagEmergency}, nil))
	assert.True(t, IsDeviceEligibleForMessage([]model.Tag{model.TagEmergency, model.TagTransport}, vis))
	assert.True(t, IsDeviceEligibleForMessage([]model.Tag{model.TagEmergency, model.TagVis}, vis))
	assert.False(t, IsDeviceEligibleForMessage([]model.Tag{model.TagEmergency, model.TagVis}, komiza))
	assert.False(t, IsDeviceEligibleForMessage([]model.Tag{model.TagVis}, nil))
}

func TestEligibleMessages(t *testing.T) {
	msgs := []model.Message{
		msgWithTags("a", model.TagGeneral),
		msgWithTags("b", model.TagVis),
		msgWithTags("c", model.TagKomiza),
		msgWithTags("d"),
	}

	ids := func(in []model.Message) []string {
		out := make([]string, 0, len(in))
		for _, m := range in {
			out = append(out, m.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "d"}, ids(EligibleMessages(msgs, model.NewVisitor())))
	assert.Equal(t, []string{"a", "b", "d"}, ids(EligibleMessages(msgs, model.NewLocal(model.MunicipalityVis))))
	assert.Empty(t, EligibleMessages(nil, model.NewVisitor()))
}
