package relica

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/coregx/relica"
)

// messageRow is the stored shape of model.MessageRecord. Tags travel as
// text so that PostgreSQL sees a JSONB literal rather than bytea.
type messageRow struct {
	ID         string     `db:"id"`
	TitleHR    string     `db:"title_hr"`
	TitleEN    string     `db:"title_en"`
	BodyHR     string     `db:"body_hr"`
	BodyEN     string     `db:"body_en"`
	Tags       string     `db:"tags"`
	ActiveFrom *time.Time `db:"active_from"`
	ActiveTo   *time.Time `db:"active_to"`
	CreatedAt  time.Time  `db:"created_at"`
	Published  bool       `db:"published"`
	DeletedAt  *time.Time `db:"deleted_at"`
}

func newMessageRow(m model.Message) messageRow {
	rec := model.NewMessageRecord(m)
	return messageRow{
		ID:         rec.ID,
		TitleHR:    rec.TitleHR,
		TitleEN:    rec.TitleEN,
		BodyHR:     rec.BodyHR,
		BodyEN:     rec.BodyEN,
		Tags:       string(rec.Tags),
		ActiveFrom: utcPtr(rec.ActiveFrom),
		ActiveTo:   utcPtr(rec.ActiveTo),
		CreatedAt:  rec.CreatedAt.UTC(),
		Published:  rec.Published,
		DeletedAt:  utcPtr(rec.DeletedAt),
	}
}

func (row messageRow) record() model.MessageRecord {
	return model.MessageRecord{
		ID:         row.ID,
		TitleHR:    row.TitleHR,
		TitleEN:    row.TitleEN,
		BodyHR:     row.BodyHR,
		BodyEN:     row.BodyEN,
		Tags:       []byte(row.Tags),
		ActiveFrom: row.ActiveFrom,
		ActiveTo:   row.ActiveTo,
		CreatedAt:  row.CreatedAt,
		Published:  row.Published,
		DeletedAt:  row.DeletedAt,
	}
}

// MessageRepository implements civicpush.MessageRepository using Relica.
type MessageRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewMessageRepository creates a new MessageRepository with default table prefix.
func NewMessageRepository(sqlDB *sql.DB, driverName string) *MessageRepository {
	return NewMessageRepositoryWithPrefix(sqlDB, driverName, DefaultTablePrefix)
}

// NewMessageRepositoryWithPrefix creates a new MessageRepository with custom table prefix.
func NewMessageRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *MessageRepository {
	return &MessageRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *MessageRepository) tableName() string {
	return r.tablePrefix + "message"
}

// Load retrieves a message by ID. Stored tags pass through the same
// coercion as ingested ones.
func (r *MessageRepository) Load(ctx context.Context, id string) (model.Message, error) {
	var row messageRow
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, civicpush.ErrMessageNotFound
	}
	if err != nil {
		return model.Message{}, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to load message", err)
	}
	return row.record().ToMessage(), nil
}

// Save creates or replaces a message.
func (r *MessageRepository) Save(ctx context.Context, m model.Message) (model.Message, error) {
	row := newMessageRow(m)

	_, err := r.Load(ctx, row.ID)
	switch {
	case civicpush.IsNotFound(err):
		if err := r.db.WithContext(ctx).Model(&row).Table(r.tableName()).Insert(); err != nil {
			return m, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to insert message", err)
		}
	case err != nil:
		return m, err
	default:
		_, err := r.db.WithContext(ctx).Update(r.tableName()).
			Set(map[string]interface{}{
				"title_hr":    row.TitleHR,
				"title_en":    row.TitleEN,
				"body_hr":     row.BodyHR,
				"body_en":     row.BodyEN,
				"tags":        row.Tags,
				"active_from": row.ActiveFrom,
				"active_to":   row.ActiveTo,
				"created_at":  row.CreatedAt,
				"published":   row.Published,
				"deleted_at":  row.DeletedAt,
			}).
			Where("id = ?", row.ID).
			Execute()
		if err != nil {
			return m, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to update message", err)
		}
	}

	return row.record().ToMessage(), nil
}

// FindVisible returns published, not deleted messages ordered by creation time, newest first.
func (r *MessageRepository) FindVisible(ctx context.Context) ([]model.Message, error) {
	var rows []messageRow
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("published = ? AND deleted_at IS NULL", true).
		OrderBy("created_at DESC").
		All(&rows)
	if err != nil {
		return nil, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to find visible messages", err)
	}

	messages := make([]model.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.record().ToMessage())
	}
	return messages, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return model.TimePtr(t.UTC())
}
