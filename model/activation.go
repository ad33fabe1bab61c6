package model

import (
	"database/sql"
	"time"
)

// ActivationStatus represents the lifecycle state of a push activation.
type ActivationStatus string

const (
	// ActivationStatusPending indicates the activation was recorded and awaits dispatch.
	ActivationStatusPending ActivationStatus = "pending"

	// ActivationStatusSent indicates the batch reached the delivery provider.
	ActivationStatusSent ActivationStatus = "sent"

	// ActivationStatusFailed indicates the provider was unreachable and a retry is scheduled.
	ActivationStatusFailed ActivationStatus = "failed"

	// ActivationStatusAbandoned indicates retries were exhausted.
	ActivationStatusAbandoned ActivationStatus = "abandoned"
)

// PushActivation records that one activation of a message (one opening of
// its window, identified by ActiveFrom) was handled by the activation
// worker. At most one record exists per (MessageID, ActiveFrom); a message
// whose window is moved gets a new activation.
//
// Lifecycle:
//  1. Created PENDING when the trigger first holds
//  2. Dispatch → SENT, or FAILED with a scheduled retry
//  3. FAILED retries with exponential backoff until SENT or ABANDONED
type PushActivation struct {
	ID            int64            `json:"id" db:"id"`
	MessageID     string           `json:"messageId" db:"message_id"`
	ActiveFrom    time.Time        `json:"activeFrom" db:"active_from"`
	ActiveTo      time.Time        `json:"activeTo" db:"active_to"`
	Status        ActivationStatus `json:"status" db:"status"`
	AttemptCount  int              `json:"attemptCount" db:"attempt_count"`
	Considered    int              `json:"considered" db:"considered"`
	Included      int              `json:"included" db:"included"`
	LastAttemptAt sql.NullTime     `json:"lastAttemptAt" db:"last_attempt_at"`
	NextRetryAt   sql.NullTime     `json:"nextRetryAt" db:"next_retry_at"`
	LastError     sql.NullString   `json:"lastError" db:"last_error"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
}

// TableName returns the database table name for PushActivation.
func (a *PushActivation) TableName() string {
	return tablePrefix + "push_activation"
}

// NewPushActivation creates a pending activation for m at now.
// m must have a fully specified window.
func NewPushActivation(m Message, now time.Time) PushActivation {
	a := PushActivation{
		MessageID:   m.ID,
		Status:      ActivationStatusPending,
		NextRetryAt: sql.NullTime{Time: now, Valid: true},
		CreatedAt:   now,
	}
	if m.ActiveFrom != nil {
		a.ActiveFrom = *m.ActiveFrom
	}
	if m.ActiveTo != nil {
		a.ActiveTo = *m.ActiveTo
	}
	return a
}

// MarkSent records a dispatch that reached the provider.
func (a *PushActivation) MarkSent(considered, included int, now time.Time) {
	a.Status = ActivationStatusSent
	a.AttemptCount++
	a.Considered = considered
	a.Included = included
	a.LastAttemptAt = sql.NullTime{Time: now, Valid: true}
	a.NextRetryAt = sql.NullTime{}
	a.LastError = sql.NullString{}
}

// MarkFailed records an unreachable provider and schedules the next attempt.
func (a *PushActivation) MarkFailed(err error, retryAfter time.Duration, now time.Time) {
	a.Status = ActivationStatusFailed
	a.AttemptCount++
	a.LastAttemptAt = sql.NullTime{Time: now, Valid: true}
	a.NextRetryAt = sql.NullTime{Time: now.Add(retryAfter), Valid: true}
	if err != nil {
		a.LastError = sql.NullString{String: err.Error(), Valid: true}
	}
}

// Abandon stops further retries.
func (a *PushActivation) Abandon() {
	a.Status = ActivationStatusAbandoned
	a.NextRetryAt = sql.NullTime{}
}

// IsDue reports whether the activation should be dispatched at now: pending,
// or failed with its retry time reached. Activations whose window already
// closed are never due.
func (a *PushActivation) IsDue(now time.Time) bool {
	if now.After(a.ActiveTo) {
		return false
	}
	switch a.Status {
	case ActivationStatusPending:
		return true
	case ActivationStatusFailed:
		return a.NextRetryAt.Valid && !now.Before(a.NextRetryAt.Time)
	default:
		return false
	}
}

// IsFinal reports whether no further dispatch will happen.
func (a *PushActivation) IsFinal() bool {
	return a.Status == ActivationStatusSent || a.Status == ActivationStatusAbandoned
}
