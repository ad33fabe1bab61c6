package civicpush

import (
	"context"
	"time"

	"github.com/coregx/civicpush/model"
)

// DeviceRepository defines the persistence interface for device registrations.
// It is the engine's only device state; callers inject any backing store.
//
// Implementations must be safe for concurrent use. Upsert and SetOptIn
// complete before they return, so a following ListEligible observes them.
type DeviceRepository interface {
	// Get retrieves a registration by device ID.
	// Returns ErrDeviceNotRegistered if not found.
	Get(ctx context.Context, deviceID string) (model.DeviceRegistration, error)

	// Upsert creates an opted-in registration for an unseen device, or
	// refreshes token, platform, locale and municipality of a known device
	// while keeping its PushOptIn value. Returns the stored registration.
	Upsert(ctx context.Context, reg model.DeviceRegistration) (model.DeviceRegistration, error)

	// SetOptIn changes the opt-in flag of a known device.
	// Returns ErrDeviceNotRegistered for unknown devices; nothing is created.
	SetOptIn(ctx context.Context, deviceID string, optIn bool) (model.DeviceRegistration, error)

	// ListEligible returns the opted-in devices that pass the municipal gate
	// for tags and have content in their locale. Returns an empty slice if
	// none match.
	ListEligible(ctx context.Context, tags []model.Tag, hasEnglishContent bool) ([]model.DeviceRegistration, error)

	// List returns every registration ordered by creation time.
	List(ctx context.Context) ([]model.DeviceRegistration, error)

	// Clear removes every registration. Intended for tests and operations only.
	Clear(ctx context.Context) error
}

// MessageRepository defines the read interface over messages owned by the
// external authoring collaborator, plus the write used by the ingestion
// endpoint.
type MessageRepository interface {
	// Load retrieves a message by ID.
	// Returns ErrMessageNotFound if not found.
	Load(ctx context.Context, id string) (model.Message, error)

	// Save creates or replaces a message.
	Save(ctx context.Context, m model.Message) (model.Message, error)

	// FindVisible returns published, not deleted messages ordered by
	// CreatedAt descending. Returns an empty slice if none exist.
	FindVisible(ctx context.Context) ([]model.Message, error)
}

// ActivationRepository defines the persistence interface for push activations.
// It guarantees at most one activation per (message ID, window start).
type ActivationRepository interface {
	// Find retrieves the activation of messageID that started at activeFrom.
	// Returns ErrActivationNotFound if not found.
	Find(ctx context.Context, messageID string, activeFrom time.Time) (model.PushActivation, error)

	// Save creates a new activation (if ID=0) or updates an existing one.
	// Returns the saved activation with populated ID.
	Save(ctx context.Context, a *model.PushActivation) (*model.PushActivation, error)

	// FindDue returns pending and failed activations whose retry time has
	// passed at now, oldest first, at most limit items.
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.PushActivation, error)
}
