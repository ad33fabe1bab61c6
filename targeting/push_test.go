package targeting

import (
	"testing"
	"time"

	"github.com/coregx/civicpush/model"
	"github.com/stretchr/testify/assert"
)

func TestShouldTriggerPush(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	tests := []struct {
		name     string
		tags     []model.Tag
		from     *time.Time
		to       *time.Time
		now      time.Time
		expected bool
	}{
		{"emergency alone inside window", []model.Tag{model.TagEmergency}, &from, &to, now, true},
		{"emergency with context", []model.Tag{model.TagEmergency, model.TagTransport}, &from, &to, now, true},
		{"emergency with three tags", []model.Tag{model.TagEmergency, model.TagTransport, model.TagVis}, &from, &to, now, true},
		{"no emergency", []model.Tag{model.TagTransport}, &from, &to, now, false},
		{"no tags", nil, &from, &to, now, false},
		{"missing from", []model.Tag{model.TagEmergency}, nil, &to, now, false},
		{"missing to", []model.Tag{model.TagEmergency}, &from, nil, now, false},
		{"at opening instant", []model.Tag{model.TagEmergency}, &from, &to, from, true},
		{"at closing instant", []model.Tag{model.TagEmergency}, &from, &to, to, true},
		{"before window", []model.Tag{model.TagEmergency}, &from, &to, from.Add(-time.Second), false},
		{"after window", []model.Tag{model.TagEmergency}, &from, &to, to.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldTriggerPush(tt.tags, tt.from, tt.to, tt.now))
		})
	}
}

func TestShouldTriggerPush_IndependentOfBannerRules(t *testing.T) {
	now := time.Now()
	msg := windowed("m", now.Add(-time.Minute), now.Add(time.Minute), now, model.TagEmergency, model.TagTransport, model.TagVis)

	assert.True(t, ShouldTriggerPushFor(msg, now))
	assert.False(t, IsValidBannerTagCombination(msg.Tags))
}
