package civicpush_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/adapters/memory"
	"github.com/coregx/civicpush/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"

func newRegistry(t *testing.T, opts ...civicpush.DeviceRegistryOption) (*civicpush.DeviceRegistry, *memory.DeviceRepository, *testClock) {
	t.Helper()
	devices := memory.NewDeviceRepository()
	clock := newTestClock(baseTime)
	all := append([]civicpush.DeviceRegistryOption{
		civicpush.WithRegistryDevices(devices),
		civicpush.WithRegistryLogger(&civicpush.NoopLogger{}),
		civicpush.WithRegistryClock(clock.Now),
	}, opts...)
	registry, err := civicpush.NewDeviceRegistry(all...)
	require.NoError(t, err)
	return registry, devices, clock
}

func validRegistration() civicpush.RegisterDeviceRequest {
	return civicpush.RegisterDeviceRequest{
		DeviceID:     "device-1",
		Token:        validToken,
		Platform:     model.PlatformIOS,
		Locale:       model.LocaleHR,
		Municipality: municipalityPtr(model.MunicipalityVis),
	}
}

func TestNewDeviceRegistry_RequiresDependencies(t *testing.T) {
	_, err := civicpush.NewDeviceRegistry(civicpush.WithRegistryLogger(&civicpush.NoopLogger{}))
	assert.Equal(t, civicpush.ErrCodeConfiguration, civicpush.CodeOf(err))

	_, err = civicpush.NewDeviceRegistry(civicpush.WithRegistryDevices(memory.NewDeviceRepository()))
	assert.Equal(t, civicpush.ErrCodeConfiguration, civicpush.CodeOf(err))
}

func TestDeviceRegistry_RegisterNewDevice(t *testing.T) {
	notifications := &recordingNotifications{}
	registry, _, _ := newRegistry(t, civicpush.WithRegistryNotifications(notifications))

	view, created, err := registry.Register(context.Background(), validRegistration())

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "device-1", view.DeviceID)
	assert.Equal(t, "Exponent...xxxxx]", view.Token)
	assert.True(t, view.PushOptIn)
	assert.Equal(t, baseTime, view.CreatedAt)
	require.NotNil(t, view.Municipality)
	assert.Equal(t, model.MunicipalityVis, *view.Municipality)

	require.Len(t, notifications.created, 1)
	assert.True(t, notifications.created[0])
	assert.NotContains(t, notifications.registered[0].Token, "xxxxxxxxxxxxxxxxxxxxxx")
}

func TestDeviceRegistry_ReRegisterKeepsOptOut(t *testing.T) {
	ctx := context.Background()
	notifications := &recordingNotifications{}
	registry, devices, clock := newRegistry(t, civicpush.WithRegistryNotifications(notifications))

	_, _, err := registry.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = registry.SetOptIn(ctx, civicpush.SetOptInRequest{DeviceID: "device-1", OptIn: boolPtr(false)})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	req := validRegistration()
	req.Token = "ExponentPushToken[yyyyyyyyyyyyyyyyyyyyyy]"
	req.Locale = model.LocaleEN
	view, created, err := registry.Register(ctx, req)

	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, view.PushOptIn, "refresh keeps the opt-out")
	assert.Equal(t, model.LocaleEN, view.Locale)
	assert.Equal(t, baseTime, view.CreatedAt)
	assert.Equal(t, baseTime.Add(time.Hour), view.UpdatedAt)

	stored, err := devices.Get(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, req.Token, stored.Token)

	require.Len(t, notifications.created, 2)
	assert.False(t, notifications.created[1])
}

func TestDeviceRegistry_RegisterRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*civicpush.RegisterDeviceRequest)
	}{
		{name: "missing device id", mutate: func(r *civicpush.RegisterDeviceRequest) { r.DeviceID = "" }},
		{name: "missing token", mutate: func(r *civicpush.RegisterDeviceRequest) { r.Token = "" }},
		{name: "short token", mutate: func(r *civicpush.RegisterDeviceRequest) { r.Token = "short" }},
		{name: "empty expo token", mutate: func(r *civicpush.RegisterDeviceRequest) { r.Token = "ExponentPushToken[]" }},
		{name: "token with spaces", mutate: func(r *civicpush.RegisterDeviceRequest) { r.Token = strings.Repeat("a b", 20) }},
		{name: "unknown platform", mutate: func(r *civicpush.RegisterDeviceRequest) { r.Platform = "web" }},
		{name: "unknown locale", mutate: func(r *civicpush.RegisterDeviceRequest) { r.Locale = "de" }},
		{name: "empty municipality", mutate: func(r *civicpush.RegisterDeviceRequest) { r.Municipality = municipalityPtr("") }},
		{name: "unknown municipality", mutate: func(r *civicpush.RegisterDeviceRequest) { r.Municipality = municipalityPtr("split") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			registry, devices, _ := newRegistry(t)

			req := validRegistration()
			tt.mutate(&req)
			_, _, err := registry.Register(ctx, req)

			require.Error(t, err)
			assert.True(t, civicpush.IsValidation(err))

			all, err := devices.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, all, "store untouched")
		})
	}
}

func TestDeviceRegistry_RegisterAcceptsRawTokensAndNoMunicipality(t *testing.T) {
	registry, _, _ := newRegistry(t)

	req := validRegistration()
	req.Token = "fcm:" + strings.Repeat("A1b2", 10)
	req.Platform = model.PlatformAndroid
	req.Municipality = nil

	view, _, err := registry.Register(context.Background(), req)

	require.NoError(t, err)
	assert.Nil(t, view.Municipality)
}

func TestDeviceRegistry_SetOptIn(t *testing.T) {
	ctx := context.Background()
	registry, _, _ := newRegistry(t)

	t.Run("unknown device", func(t *testing.T) {
		_, err := registry.SetOptIn(ctx, civicpush.SetOptInRequest{DeviceID: "ghost", OptIn: boolPtr(false)})

		assert.ErrorIs(t, err, civicpush.ErrDeviceNotRegistered)

		_, err = registry.Get(ctx, "ghost")
		assert.True(t, civicpush.IsNotFound(err), "nothing is created")
	})

	t.Run("missing flag", func(t *testing.T) {
		_, err := registry.SetOptIn(ctx, civicpush.SetOptInRequest{DeviceID: "device-1"})

		assert.True(t, civicpush.IsValidation(err))
	})

	t.Run("toggle", func(t *testing.T) {
		_, _, err := registry.Register(ctx, validRegistration())
		require.NoError(t, err)

		view, err := registry.SetOptIn(ctx, civicpush.SetOptInRequest{DeviceID: "device-1", OptIn: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, view.PushOptIn)

		view, err = registry.SetOptIn(ctx, civicpush.SetOptInRequest{DeviceID: "device-1", OptIn: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, view.PushOptIn)
		assert.Equal(t, "Exponent...xxxxx]", view.Token)
	})
}

func TestDeviceRegistry_NotificationErrorsAreIgnored(t *testing.T) {
	registry, _, _ := newRegistry(t, civicpush.WithRegistryNotifications(&recordingNotifications{returnError: errUnreachable}))

	_, created, err := registry.Register(context.Background(), validRegistration())

	require.NoError(t, err)
	assert.True(t, created)
}
