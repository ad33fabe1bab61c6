package civicpush

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/coregx/civicpush/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Expo push tokens, or raw FCM/APNs tokens.
var tokenPattern = regexp.MustCompile(`^(?:(?:Exponent|Expo)PushToken\[[A-Za-z0-9_-]+\]|[A-Za-z0-9:_.-]{32,})$`)

const maxTokenLength = 4096

// RegisterDeviceRequest is a device's token registration or refresh.
type RegisterDeviceRequest struct {
	DeviceID     string              `json:"deviceId"`
	Token        string              `json:"token"`
	Platform     model.Platform      `json:"platform"`
	Locale       model.Locale        `json:"locale"`
	Municipality *model.Municipality `json:"municipality,omitempty"`
}

// Validate rejects malformed tokens and values outside the closed
// platform, locale and municipality sets.
func (r RegisterDeviceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DeviceID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Token, validation.Required, validation.Length(1, maxTokenLength),
			validation.Match(tokenPattern).Error("must be an Expo, FCM or APNs push token")),
		validation.Field(&r.Platform, validation.Required, validation.In(model.PlatformIOS, model.PlatformAndroid)),
		validation.Field(&r.Locale, validation.Required, validation.In(model.LocaleHR, model.LocaleEN)),
		validation.Field(&r.Municipality, validation.NilOrNotEmpty, validation.In(model.MunicipalityVis, model.MunicipalityKomiza)),
	)
}

// SetOptInRequest toggles push opt-in for a registered device.
type SetOptInRequest struct {
	DeviceID string `json:"deviceId"`
	OptIn    *bool  `json:"optIn"`
}

// Validate checks the request is complete.
func (r SetOptInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DeviceID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.OptIn, validation.NotNil),
	)
}

// DeviceRegistry is the validated write path over a DeviceRepository.
// Invalid input is rejected with VALIDATION_ERROR before the store is
// touched. Every returned record has its token masked.
//
// Thread safety: Safe for concurrent use.
type DeviceRegistry struct {
	devices             DeviceRepository
	logger              Logger
	notificationService NotificationService
	now                 func() time.Time
}

// DeviceRegistryOption configures a DeviceRegistry.
type DeviceRegistryOption func(*DeviceRegistry) error

// NewDeviceRegistry creates a new DeviceRegistry with the provided options.
//
// Required options:
//   - WithRegistryDevices: device store
//   - WithRegistryLogger: logger instance
//
// Example:
//
//	registry, err := civicpush.NewDeviceRegistry(
//	    civicpush.WithRegistryDevices(deviceRepo),
//	    civicpush.WithRegistryLogger(logger),
//	)
func NewDeviceRegistry(opts ...DeviceRegistryOption) (*DeviceRegistry, error) {
	r := &DeviceRegistry{
		notificationService: &NoOpNotificationService{},
		now:                 time.Now,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply device registry option", err)
		}
	}

	if r.devices == nil {
		return nil, NewError(ErrCodeConfiguration, "DeviceRepository is required (use WithRegistryDevices)")
	}
	if r.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithRegistryLogger)")
	}

	return r, nil
}

// WithRegistryDevices sets the device store.
func WithRegistryDevices(devices DeviceRepository) DeviceRegistryOption {
	return func(r *DeviceRegistry) error {
		if devices == nil {
			return fmt.Errorf("devices cannot be nil")
		}
		r.devices = devices
		return nil
	}
}

// WithRegistryLogger sets the logger instance.
func WithRegistryLogger(logger Logger) DeviceRegistryOption {
	return func(r *DeviceRegistry) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// WithRegistryNotifications sets the event observer.
func WithRegistryNotifications(service NotificationService) DeviceRegistryOption {
	return func(r *DeviceRegistry) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		r.notificationService = service
		return nil
	}
}

// WithRegistryClock overrides time.Now.
func WithRegistryClock(now func() time.Time) DeviceRegistryOption {
	return func(r *DeviceRegistry) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		r.now = now
		return nil
	}
}

// Register creates or refreshes a device registration. A refresh keeps the
// device's opt-in value. created reports whether the device was unseen.
func (r *DeviceRegistry) Register(ctx context.Context, req RegisterDeviceRequest) (view model.DeviceView, created bool, err error) {
	if err := req.Validate(); err != nil {
		return model.DeviceView{}, false, NewErrorWithCause(ErrCodeValidation, "invalid device registration", err)
	}

	_, err = r.devices.Get(ctx, req.DeviceID)
	switch {
	case err == nil:
	case IsNotFound(err):
		created = true
	default:
		return model.DeviceView{}, false, fmt.Errorf("failed to load device: %w", err)
	}

	reg := model.NewDeviceRegistration(req.DeviceID, req.Token, req.Platform, req.Locale, req.Municipality, r.now())
	stored, err := r.devices.Upsert(ctx, reg)
	if err != nil {
		return model.DeviceView{}, false, fmt.Errorf("failed to upsert device: %w", err)
	}

	view = stored.View()
	r.logger.Infof("Device %s: device_id=%s, token=%s, platform=%s, locale=%s, opt_in=%t",
		registrationVerb(created), view.DeviceID, view.Token, view.Platform, view.Locale, view.PushOptIn)

	if err := r.notificationService.NotifyDeviceRegistered(ctx, view, created); err != nil {
		r.logger.Warnf("Failed to send registration notification: %v", err)
	}

	return view, created, nil
}

// SetOptIn changes the opt-in flag of a registered device. Unknown devices
// yield ErrDeviceNotRegistered; validation failures a VALIDATION_ERROR.
func (r *DeviceRegistry) SetOptIn(ctx context.Context, req SetOptInRequest) (model.DeviceView, error) {
	if err := req.Validate(); err != nil {
		return model.DeviceView{}, NewErrorWithCause(ErrCodeValidation, "invalid opt-in update", err)
	}

	stored, err := r.devices.SetOptIn(ctx, req.DeviceID, *req.OptIn)
	if err != nil {
		if IsNotFound(err) {
			return model.DeviceView{}, err
		}
		return model.DeviceView{}, fmt.Errorf("failed to update opt-in: %w", err)
	}

	r.logger.Infof("Device opt-in updated: device_id=%s, opt_in=%t", stored.DeviceID, stored.PushOptIn)
	return stored.View(), nil
}

// Get returns the masked registration of deviceID.
func (r *DeviceRegistry) Get(ctx context.Context, deviceID string) (model.DeviceView, error) {
	stored, err := r.devices.Get(ctx, deviceID)
	if err != nil {
		return model.DeviceView{}, err
	}
	return stored.View(), nil
}

func registrationVerb(created bool) string {
	if created {
		return "registered"
	}
	return "refreshed"
}
