package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
)

// MessageRepository implements civicpush.MessageRepository in memory.
type MessageRepository struct {
	mu   sync.RWMutex
	data map[string]model.Message
}

// NewMessageRepository creates an empty MessageRepository.
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		data: make(map[string]model.Message),
	}
}

// Load retrieves a message by ID.
func (r *MessageRepository) Load(_ context.Context, id string) (model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.data[id]
	if !ok {
		return model.Message{}, civicpush.ErrMessageNotFound
	}
	return cloneMessage(msg), nil
}

// Save creates or replaces a message. Tags are stored normalized.
func (r *MessageRepository) Save(_ context.Context, m model.Message) (model.Message, error) {
	if m.ID == "" {
		return model.Message{}, civicpush.NewError(civicpush.ErrCodeValidation, "message ID is required")
	}

	m = cloneMessage(m)
	m.Tags = model.NormalizeTags(m.Tags)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[m.ID] = m
	return cloneMessage(m), nil
}

// FindVisible returns published, not deleted messages, newest first.
func (r *MessageRepository) FindVisible(_ context.Context) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.Message, 0, len(r.data))
	for _, msg := range r.data {
		if msg.IsVisible() {
			items = append(items, cloneMessage(msg))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func cloneMessage(m model.Message) model.Message {
	m.Tags = append([]model.Tag(nil), m.Tags...)
	if m.ActiveFrom != nil {
		m.ActiveFrom = model.TimePtr(*m.ActiveFrom)
	}
	if m.ActiveTo != nil {
		m.ActiveTo = model.TimePtr(*m.ActiveTo)
	}
	if m.DeletedAt != nil {
		m.DeletedAt = model.TimePtr(*m.DeletedAt)
	}
	return m
}
