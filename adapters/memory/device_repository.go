package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/coregx/civicpush/targeting"
)

// DeviceRepository implements civicpush.DeviceRepository in memory.
type DeviceRepository struct {
	mu   sync.RWMutex
	data map[string]model.DeviceRegistration
	now  func() time.Time
}

// NewDeviceRepository creates an empty DeviceRepository.
func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{
		data: make(map[string]model.DeviceRegistration),
		now:  time.Now,
	}
}

// Get retrieves a registration by device ID.
func (r *DeviceRepository) Get(_ context.Context, deviceID string) (model.DeviceRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.data[deviceID]
	if !ok {
		return model.DeviceRegistration{}, civicpush.ErrDeviceNotRegistered
	}
	return cloneDevice(reg), nil
}

// Upsert creates or refreshes a registration, keeping the opt-in of known devices.
func (r *DeviceRepository) Upsert(_ context.Context, reg model.DeviceRegistration) (model.DeviceRegistration, error) {
	if reg.DeviceID == "" {
		return model.DeviceRegistration{}, civicpush.NewError(civicpush.ErrCodeValidation, "device ID is required")
	}

	now := reg.UpdatedAt
	if now.IsZero() {
		now = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.data[reg.DeviceID]
	if ok {
		stored.Refresh(reg, now)
	} else {
		stored = reg
		stored.PushOptIn = true
		stored.UpdatedAt = now
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
	}

	stored = cloneDevice(stored)
	r.data[reg.DeviceID] = stored
	return cloneDevice(stored), nil
}

// SetOptIn changes the opt-in flag of a known device.
func (r *DeviceRepository) SetOptIn(_ context.Context, deviceID string, optIn bool) (model.DeviceRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.data[deviceID]
	if !ok {
		return model.DeviceRegistration{}, civicpush.ErrDeviceNotRegistered
	}
	stored.SetOptIn(optIn, r.now())
	r.data[deviceID] = stored
	return cloneDevice(stored), nil
}

// ListEligible returns the targetable devices for a message with tags.
func (r *DeviceRepository) ListEligible(ctx context.Context, tags []model.Tag, hasEnglishContent bool) ([]model.DeviceRegistration, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return targeting.FilterDevices(all, tags, hasEnglishContent), nil
}

// List returns every registration ordered by creation time.
func (r *DeviceRepository) List(_ context.Context) ([]model.DeviceRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.DeviceRegistration, 0, len(r.data))
	for _, reg := range r.data {
		items = append(items, cloneDevice(reg))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].DeviceID < items[j].DeviceID
	})
	return items, nil
}

// Clear removes every registration.
func (r *DeviceRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = make(map[string]model.DeviceRegistration)
	return nil
}

func cloneDevice(reg model.DeviceRegistration) model.DeviceRegistration {
	if reg.Municipality != nil {
		m := *reg.Municipality
		reg.Municipality = &m
	}
	return reg
}
