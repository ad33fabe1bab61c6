package memory

import (
	"context"
	"testing"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_SaveNormalizesTags(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()

	msg := model.Message{
		ID:        "m-1",
		Title:     model.LocalizedText{HR: "Trajekt"},
		Tags:      []model.Tag{"cestovni_promet", model.TagTransport, "pomorski_promet"},
		CreatedAt: base,
		Published: true,
	}
	saved, err := repo.Save(ctx, msg)

	require.NoError(t, err)
	assert.Equal(t, []model.Tag{model.TagTransport}, saved.Tags)

	loaded, err := repo.Load(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestMessageRepository_LoadMissing(t *testing.T) {
	_, err := NewMessageRepository().Load(context.Background(), "missing")

	assert.ErrorIs(t, err, civicpush.ErrMessageNotFound)
}

func TestMessageRepository_FindVisible(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()

	older := model.NewMessage("older", model.LocalizedText{HR: "A"}, model.LocalizedText{HR: "a"}, nil, base)
	newer := model.NewMessage("newer", model.LocalizedText{HR: "B"}, model.LocalizedText{HR: "b"}, nil, base.Add(time.Hour))
	draft := model.NewMessage("draft", model.LocalizedText{HR: "C"}, model.LocalizedText{HR: "c"}, nil, base.Add(2*time.Hour))
	draft.Published = false
	deleted := model.NewMessage("deleted", model.LocalizedText{HR: "D"}, model.LocalizedText{HR: "d"}, nil, base.Add(3*time.Hour))
	deleted.DeletedAt = model.TimePtr(base.Add(4 * time.Hour))

	for _, m := range []model.Message{older, newer, draft, deleted} {
		_, err := repo.Save(ctx, m)
		require.NoError(t, err)
	}

	visible, err := repo.FindVisible(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(visible))
	for _, m := range visible {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"newer", "older"}, ids)
}

func TestMessageRepository_FindVisibleEmpty(t *testing.T) {
	visible, err := NewMessageRepository().FindVisible(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, visible)
	assert.Empty(t, visible)
}
