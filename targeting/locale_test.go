package targeting

import (
	"testing"
	"time"

	"github.com/coregx/civicpush/model"
	"github.com/stretchr/testify/assert"
)

var (
	hrContent = model.Content{Title: "Uzbuna", Body: "Trajekt ne plovi"}
	enContent = model.Content{Title: "Alert", Body: "Ferry cancelled"}
)

func mixedTargets() []Target {
	return []Target{
		{Token: "hr-1", Locale: model.LocaleHR},
		{Token: "en-1", Locale: model.LocaleEN},
		{Token: "hr-2", Locale: model.LocaleHR},
		{Token: "en-2", Locale: model.LocaleEN},
	}
}

func TestMatchLocale_WithoutEnglish(t *testing.T) {
	got := MatchLocale(mixedTargets(), hrContent, nil)

	assert.Equal(t, []Envelope{
		{Token: "hr-1", Locale: model.LocaleHR, Content: hrContent},
		{Token: "hr-2", Locale: model.LocaleHR, Content: hrContent},
	}, got)
}

func TestMatchLocale_WithEnglish(t *testing.T) {
	en := enContent
	got := MatchLocale(mixedTargets(), hrContent, &en)

	assert.Equal(t, []Envelope{
		{Token: "hr-1", Locale: model.LocaleHR, Content: hrContent},
		{Token: "en-1", Locale: model.LocaleEN, Content: enContent},
		{Token: "hr-2", Locale: model.LocaleHR, Content: hrContent},
		{Token: "en-2", Locale: model.LocaleEN, Content: enContent},
	}, got)
}

func TestMatchLocale_NeverFallsBack(t *testing.T) {
	got := MatchLocale([]Target{{Token: "en-1", Locale: model.LocaleEN}}, hrContent, nil)
	assert.Empty(t, got)

	got = MatchLocale([]Target{{Token: "de-1", Locale: "de"}}, hrContent, &enContent)
	assert.Empty(t, got)
}

func TestMatchLocale_Empty(t *testing.T) {
	assert.Empty(t, MatchLocale(nil, hrContent, &enContent))
}

func TestFilterDevices(t *testing.T) {
	now := time.Now()
	vis := model.MunicipalityVis
	komiza := model.MunicipalityKomiza

	hrVis := model.NewDeviceRegistration("hr-vis", "tok-hr-vis", model.PlatformIOS, model.LocaleHR, &vis, now)
	enVis := model.NewDeviceRegistration("en-vis", "tok-en-vis", model.PlatformAndroid, model.LocaleEN, &vis, now)
	hrKomiza := model.NewDeviceRegistration("hr-komiza", "tok-hr-komiza", model.PlatformAndroid, model.LocaleHR, &komiza, now)
	hrNone := model.NewDeviceRegistration("hr-none", "tok-hr-none", model.PlatformIOS, model.LocaleHR, nil, now)
	optedOut := model.NewDeviceRegistration("opted-out", "tok-out", model.PlatformIOS, model.LocaleHR, &vis, now)
	optedOut.SetOptIn(false, now)

	devices := []model.DeviceRegistration{hrVis, enVis, hrKomiza, hrNone, optedOut}
	ids := func(in []model.DeviceRegistration) []string {
		out := make([]string, 0, len(in))
		for _, d := range in {
			out = append(out, d.DeviceID)
		}
		return out
	}

	general := []model.Tag{model.TagEmergency, model.TagTransport}
	assert.Equal(t, []string{"hr-vis", "hr-komiza", "hr-none"}, ids(FilterDevices(devices, general, false)))
	assert.Equal(t, []string{"hr-vis", "en-vis", "hr-komiza", "hr-none"}, ids(FilterDevices(devices, general, true)))

	municipal := []model.Tag{model.TagEmergency, model.TagVis}
	assert.Equal(t, []string{"hr-vis"}, ids(FilterDevices(devices, municipal, false)))
	assert.Equal(t, []string{"hr-vis", "en-vis"}, ids(FilterDevices(devices, municipal, true)))
}

func TestTargetsOf(t *testing.T) {
	reg := model.NewDeviceRegistration("d", "tok", model.PlatformIOS, model.LocaleEN, nil, time.Now())
	assert.Equal(t, []Target{{Token: "tok", Locale: model.LocaleEN}}, TargetsOf([]model.DeviceRegistration{reg}))
}
