// Package redis provides a Redis-backed civicpush.DeviceRepository for
// deployments that keep device registrations in Redis next to other
// session state.
//
// Each registration is a hash at <prefix>device:<deviceID>; the set
// <prefix>devices indexes all device IDs.
package redis

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/coregx/civicpush/targeting"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by DeviceRepository.
const DefaultKeyPrefix = "civicpush:"

const (
	fieldToken        = "token"
	fieldPlatform     = "platform"
	fieldLocale       = "locale"
	fieldMunicipality = "municipality"
	fieldPushOptIn    = "push_opt_in"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

// NewClient creates a Redis client for addr.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// DeviceRepository implements civicpush.DeviceRepository on Redis hashes.
type DeviceRepository struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewDeviceRepository creates a DeviceRepository with the default key prefix.
func NewDeviceRepository(client *redis.Client) *DeviceRepository {
	return NewDeviceRepositoryWithPrefix(client, DefaultKeyPrefix)
}

// NewDeviceRepositoryWithPrefix creates a DeviceRepository with a custom key prefix.
func NewDeviceRepositoryWithPrefix(client *redis.Client, prefix string) *DeviceRepository {
	return &DeviceRepository{client: client, keyPrefix: prefix, now: time.Now}
}

func (r *DeviceRepository) deviceKey(deviceID string) string {
	return r.keyPrefix + "device:" + deviceID
}

func (r *DeviceRepository) indexKey() string {
	return r.keyPrefix + "devices"
}

// Get retrieves a registration by device ID.
func (r *DeviceRepository) Get(ctx context.Context, deviceID string) (model.DeviceRegistration, error) {
	fields, err := r.client.HGetAll(ctx, r.deviceKey(deviceID)).Result()
	if err != nil {
		return model.DeviceRegistration{}, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to load device", err)
	}
	if len(fields) == 0 {
		return model.DeviceRegistration{}, civicpush.ErrDeviceNotRegistered
	}
	return decodeDevice(deviceID, fields)
}

// Upsert creates or refreshes a registration in one MULTI/EXEC. The opt-in
// flag and creation time are written with HSETNX, so a refresh never
// touches them.
func (r *DeviceRepository) Upsert(ctx context.Context, reg model.DeviceRegistration) (model.DeviceRegistration, error) {
	if reg.DeviceID == "" {
		return model.DeviceRegistration{}, civicpush.NewError(civicpush.ErrCodeValidation, "device ID is required")
	}

	now := reg.UpdatedAt
	if now.IsZero() {
		now = r.now()
	}
	createdAt := reg.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	key := r.deviceKey(reg.DeviceID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldToken, reg.Token,
			fieldPlatform, string(reg.Platform),
			fieldLocale, string(reg.Locale),
			fieldMunicipality, encodeMunicipality(reg.Municipality),
			fieldUpdatedAt, encodeTime(now),
		)
		pipe.HSetNX(ctx, key, fieldPushOptIn, encodeBool(true))
		pipe.HSetNX(ctx, key, fieldCreatedAt, encodeTime(createdAt))
		pipe.SAdd(ctx, r.indexKey(), reg.DeviceID)
		return nil
	})
	if err != nil {
		return model.DeviceRegistration{}, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to upsert device", err)
	}

	return r.Get(ctx, reg.DeviceID)
}

// SetOptIn changes the opt-in flag of a known device. The existence check
// and the write run under WATCH, so a concurrent Clear cannot resurrect
// the device.
func (r *DeviceRepository) SetOptIn(ctx context.Context, deviceID string, optIn bool) (model.DeviceRegistration, error) {
	key := r.deviceKey(deviceID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return civicpush.ErrDeviceNotRegistered
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldPushOptIn, encodeBool(optIn),
				fieldUpdatedAt, encodeTime(r.now()),
			)
			return nil
		})
		return err
	}, key)

	if civicpush.IsNotFound(err) {
		return model.DeviceRegistration{}, err
	}
	if err != nil {
		return model.DeviceRegistration{}, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to update opt-in", err)
	}

	return r.Get(ctx, deviceID)
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
func (r *DeviceRepository) List(ctx context.Context) ([]model.DeviceRegistration, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to list device IDs", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.deviceKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to load devices", err)
	}

	devices := make([]model.DeviceRegistration, 0, len(ids))
	for i, id := range ids {
		fields, err := cmds[i].Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		reg, err := decodeDevice(id, fields)
		if err != nil {
			return nil, err
		}
		devices = append(devices, reg)
	}

	sort.Slice(devices, func(i, j int) bool {
		if !devices[i].CreatedAt.Equal(devices[j].CreatedAt) {
			return devices[i].CreatedAt.Before(devices[j].CreatedAt)
		}
		return devices[i].DeviceID < devices[j].DeviceID
	})
	return devices, nil
}

// Clear removes every registration.
func (r *DeviceRepository) Clear(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to list device IDs", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.deviceKey(id))
	}
	keys = append(keys, r.indexKey())

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "failed to clear devices", err)
	}
	return nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeBool(v bool) string {
	return strconv.FormatBool(v)
}

func encodeMunicipality(m *model.Municipality) string {
	if m == nil {
		return ""
	}
	return string(*m)
}

func decodeDevice(deviceID string, fields map[string]string) (model.DeviceRegistration, error) {
	reg := model.DeviceRegistration{
		DeviceID: deviceID,
		Token:    fields[fieldToken],
		Platform: model.Platform(fields[fieldPlatform]),
		Locale:   model.Locale(fields[fieldLocale]),
	}

	if m := fields[fieldMunicipality]; m != "" {
		municipality := model.Municipality(m)
		reg.Municipality = &municipality
	}

	optIn, err := strconv.ParseBool(fields[fieldPushOptIn])
	if err != nil {
		return reg, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "corrupt push_opt_in for device "+deviceID, err)
	}
	reg.PushOptIn = optIn

	if reg.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return reg, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "corrupt created_at for device "+deviceID, err)
	}
	if reg.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err != nil {
		return reg, civicpush.NewErrorWithCause(civicpush.ErrCodeDatabase, "corrupt updated_at for device "+deviceID, err)
	}

	return reg, nil
}
