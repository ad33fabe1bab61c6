package relica

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/coregx/civicpush/targeting"
	"github.com/coregx/relica"
)

// DeviceRepository implements civicpush.DeviceRepository using Relica.
type DeviceRepository struct {
	db          *relica.DB
	sqlDB       *sql.DB
	tablePrefix string
}

// NewDeviceRepository creates a new DeviceRepository with default table prefix.
func NewDeviceRepository(sqlDB *sql.DB, driverName string) *DeviceRepository {
	return NewDeviceRepositoryWithPrefix(sqlDB, driverName, DefaultTablePrefix)
}

// NewDeviceRepositoryWithPrefix creates a new DeviceRepository with custom table prefix.
func NewDeviceRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *DeviceRepository {
	return &DeviceRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		sqlDB:       sqlDB,
		tablePrefix: prefix,
	}
}

func (r *DeviceRepository) tableName() string {
	return r.tablePrefix + "device"
}

// Get retrieves a registration by device ID.
func (r *DeviceRepository) Get(ctx context.Context, deviceID string) (model.DeviceRegistration, error) {
	var reg model.DeviceRegistration

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("device_id = ?", deviceID).
		One(&reg)

	if errors.Is(err, sql.ErrNoRows) {
		return reg, civicpush.ErrDeviceNotRegistered
	}
	if err != nil {
		return reg, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to load device", err)
	}

	return reg, nil
}

// Upsert creates an opted-in registration or refreshes a known one. The
// refresh UPDATE never names push_opt_in, so the stored value survives.
func (r *DeviceRepository) Upsert(ctx context.Context, reg model.DeviceRegistration) (model.DeviceRegistration, error) {
	now := reg.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	_, err := r.Get(ctx, reg.DeviceID)
	switch {
	case err == nil:
		if err := r.refresh(ctx, reg, now); err != nil {
			return reg, err
		}
	case civicpush.IsNotFound(err):
		row := reg
		row.PushOptIn = true
		row.UpdatedAt = now
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.CreatedAt = row.CreatedAt.UTC()

		if err := r.db.WithContext(ctx).Model(&row).Table(r.tableName()).Insert(); err != nil {
			// Lost a race with a concurrent registration of the same device.
			if _, getErr := r.Get(ctx, reg.DeviceID); getErr != nil {
				return reg, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to insert device", err)
			}
			if err := r.refresh(ctx, reg, now); err != nil {
				return reg, err
			}
		}
	default:
		return reg, err
	}

	return r.Get(ctx, reg.DeviceID)
}

func (r *DeviceRepository) refresh(ctx context.Context, reg model.DeviceRegistration, now time.Time) error {
	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"token":        reg.Token,
			"platform":     string(reg.Platform),
			"locale":       string(reg.Locale),
			"municipality": municipalityValue(reg.Municipality),
			"updated_at":   now,
		}).
		Where("device_id = ?", reg.DeviceID).
		Execute()

	if err != nil {
		return civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to refresh device", err)
	}
	return nil
}

// SetOptIn changes the opt-in flag of a known device.
func (r *DeviceRepository) SetOptIn(ctx context.Context, deviceID string, optIn bool) (model.DeviceRegistration, error) {
	if _, err := r.Get(ctx, deviceID); err != nil {
		return model.DeviceRegistration{}, err
	}

	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"push_opt_in": optIn,
			"updated_at":  time.Now().UTC(),
		}).
		Where("device_id = ?", deviceID).
		Execute()

	if err != nil {
		return model.DeviceRegistration{}, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to update opt-in", err)
	}

	return r.Get(ctx, deviceID)
}

// ListEligible narrows the candidates in SQL by opt-in, locale and
// municipality, then applies the targeting rules to the result.
func (r *DeviceRepository) ListEligible(ctx context.Context, tags []model.Tag, hasEnglishContent bool) ([]model.DeviceRegistration, error) {
	conditions := []string{"push_opt_in = ?"}
	args := []interface{}{true}

	if !hasEnglishContent {
		conditions = append(conditions, "locale = ?")
		args = append(args, string(model.LocaleHR))
	}

	if municipalities := model.MunicipalitiesOf(tags); len(municipalities) > 0 {
		placeholders := make([]string, 0, len(municipalities))
		for _, m := range municipalities {
			placeholders = append(placeholders, "?")
			args = append(args, string(m))
		}
		conditions = append(conditions, "municipality IN ("+strings.Join(placeholders, ", ")+")")
	}

	var devices []model.DeviceRegistration

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where(strings.Join(conditions, " AND "), args...).
		OrderBy("created_at ASC").
		All(&devices)

	if err != nil {
		return nil, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to list eligible devices", err)
	}

	return targeting.FilterDevices(devices, tags, hasEnglishContent), nil
}

// List returns every registration ordered by creation time.
func (r *DeviceRepository) List(ctx context.Context) ([]model.DeviceRegistration, error) {
	var devices []model.DeviceRegistration

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		OrderBy("created_at ASC").
		All(&devices)

	if err != nil {
		return nil, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to list devices", err)
	}
	if devices == nil {
		devices = []model.DeviceRegistration{}
	}

	return devices, nil
}

// Clear removes every registration.
func (r *DeviceRepository) Clear(ctx context.Context) error {
	if _, err := r.sqlDB.ExecContext(ctx, "DELETE FROM "+r.tableName()); err != nil {
		return civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to clear devices", err)
	}
	return nil
}

func municipalityValue(m *model.Municipality) interface{} {
	if m == nil {
		return nil
	}
	return string(*m)
}
