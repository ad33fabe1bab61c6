package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
)

type activationKey struct {
	messageID  string
	activeFrom int64
}

func keyOf(messageID string, activeFrom time.Time) activationKey {
	return activationKey{messageID: messageID, activeFrom: activeFrom.UnixNano()}
}

// ActivationRepository implements civicpush.ActivationRepository in memory.
type ActivationRepository struct {
	mu     sync.RWMutex
	data   map[int64]model.PushActivation
	byKey  map[activationKey]int64
	nextID int64
}

// NewActivationRepository creates an empty ActivationRepository.
func NewActivationRepository() *ActivationRepository {
	return &ActivationRepository{
		data:  make(map[int64]model.PushActivation),
		byKey: make(map[activationKey]int64),
	}
}

// Find retrieves the activation of messageID that started at activeFrom.
func (r *ActivationRepository) Find(_ context.Context, messageID string, activeFrom time.Time) (model.PushActivation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[keyOf(messageID, activeFrom)]
	if !ok {
		return model.PushActivation{}, civicpush.ErrActivationNotFound
	}
	return r.data[id], nil
}

// Save creates a new activation (if ID=0) or updates an existing one.
// A second activation for the same message and window start is rejected.
func (r *ActivationRepository) Save(_ context.Context, a *model.PushActivation) (*model.PushActivation, error) {
	if a == nil {
		return nil, civicpush.NewError(civicpush.ErrCodeValidation, "activation is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyOf(a.MessageID, a.ActiveFrom)
	if a.ID == 0 {
		if _, exists := r.byKey[key]; exists {
			return a, civicpush.NewError(civicpush.ErrCodeDatabase, "duplicate push activation")
		}
		r.nextID++
		a.ID = r.nextID
		r.byKey[key] = a.ID
		r.data[a.ID] = *a
		return a, nil
	}

	if _, ok := r.data[a.ID]; !ok {
		return a, civicpush.ErrActivationNotFound
	}
	r.data[a.ID] = *a
	return a, nil
}

// FindDue returns due activations at now, oldest first.
func (r *ActivationRepository) FindDue(_ context.Context, now time.Time, limit int) ([]model.PushActivation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.PushActivation, 0)
	for _, a := range r.data {
		if a.IsDue(now) {
			items = append(items, a)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// List returns every activation ordered by ID.
func (r *ActivationRepository) List(_ context.Context) ([]model.PushActivation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.PushActivation, 0, len(r.data))
	for _, a := range r.data {
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}
