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

// ActivationRepository implements civicpush.ActivationRepository using Relica.
// The unique key on (message_id, active_from) backs the one-activation rule.
type ActivationRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewActivationRepository creates a new ActivationRepository with default table prefix.
func NewActivationRepository(sqlDB *sql.DB, driverName string) *ActivationRepository {
	return NewActivationRepositoryWithPrefix(sqlDB, driverName, DefaultTablePrefix)
}

// NewActivationRepositoryWithPrefix creates a new ActivationRepository with custom table prefix.
func NewActivationRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *ActivationRepository {
	return &ActivationRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *ActivationRepository) tableName() string {
	return r.tablePrefix + "push_activation"
}

// Find retrieves the activation of messageID that started at activeFrom.
func (r *ActivationRepository) Find(ctx context.Context, messageID string, activeFrom time.Time) (model.PushActivation, error) {
	var activation model.PushActivation

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("message_id = ? AND active_from = ?", messageID, activeFrom.UTC()).
		One(&activation)

	if errors.Is(err, sql.ErrNoRows) {
		return activation, civicpush.ErrActivationNotFound
	}
	if err != nil {
		return activation, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to load push activation", err)
	}

	return activation, nil
}

// Save creates or updates an activation. Times are stored in UTC.
func (r *ActivationRepository) Save(ctx context.Context, a *model.PushActivation) (*model.PushActivation, error) {
	a.ActiveFrom = a.ActiveFrom.UTC()
	a.ActiveTo = a.ActiveTo.UTC()
	a.CreatedAt = a.CreatedAt.UTC()

	if a.ID == 0 {
		// Insert using Model() API - auto-populates a.ID
		err := r.db.WithContext(ctx).Model(a).Table(r.tableName()).Insert()
		if err != nil {
			return a, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to insert push activation", err)
		}
		return a, nil
	}

	// Update using Model() API - auto WHERE id = ?
	err := r.db.WithContext(ctx).Model(a).Table(r.tableName()).Update()
	if err != nil {
		return a, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to update push activation", err)
	}

	return a, nil
}

// FindDue returns pending activations and failed ones whose retry time has
// passed, within their window, oldest first.
func (r *ActivationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]model.PushActivation, error) {
	var activations []model.PushActivation

	now = now.UTC()

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("(status = ? OR (status = ? AND next_retry_at <= ?)) AND active_to >= ?",
			model.ActivationStatusPending, model.ActivationStatusFailed, now, now).
		OrderBy("created_at ASC").
		Limit(int64(limit)).
		All(&activations)

	if err != nil {
		return nil, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to find due activations", err)
	}

	return activations, nil
}
