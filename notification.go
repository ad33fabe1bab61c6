package civicpush

import (
	"context"

	"github.com/coregx/civicpush/model"
)

// NotificationService defines an optional interface for observing engine
// events (registrations, dispatch outcomes, abandoned activations).
//
// Implementations might feed metrics, alerting or audit logs. Returned
// errors are logged by the caller and never change the outcome of the
// operation that emitted the event.
type NotificationService interface {
	// NotifyDeviceRegistered is called after a successful Upsert.
	// created is false when an existing registration was refreshed.
	NotifyDeviceRegistered(ctx context.Context, device model.DeviceView, created bool) error

	// NotifyDispatchCompleted is called after the provider answered a batch,
	// including batches with per-recipient failures.
	NotifyDispatchCompleted(ctx context.Context, result DispatchResult) error

	// NotifyDispatchFailed is called when the provider could not be reached.
	NotifyDispatchFailed(ctx context.Context, plan DispatchPlan, err error) error

	// NotifyActivationAbandoned is called when a push activation exhausted its retries.
	NotifyActivationAbandoned(ctx context.Context, activation model.PushActivation) error
}

// NoOpNotificationService is a no-op implementation of NotificationService.
// Use this when notifications are not needed.
type NoOpNotificationService struct{}

// NotifyDeviceRegistered does nothing.
func (n *NoOpNotificationService) NotifyDeviceRegistered(_ context.Context, _ model.DeviceView, _ bool) error {
	return nil
}

// NotifyDispatchCompleted does nothing.
func (n *NoOpNotificationService) NotifyDispatchCompleted(_ context.Context, _ DispatchResult) error {
	return nil
}

// NotifyDispatchFailed does nothing.
func (n *NoOpNotificationService) NotifyDispatchFailed(_ context.Context, _ DispatchPlan, _ error) error {
	return nil
}

// NotifyActivationAbandoned does nothing.
func (n *NoOpNotificationService) NotifyActivationAbandoned(_ context.Context, _ model.PushActivation) error {
	return nil
}

// LoggingNotificationService is a simple implementation that logs notifications.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifyDeviceRegistered logs the registration with a masked token.
func (n *LoggingNotificationService) NotifyDeviceRegistered(_ context.Context, device model.DeviceView, created bool) error {
	n.logger.Infof("Device registered: device_id=%s, token=%s, platform=%s, locale=%s, created=%t, opt_in=%t",
		device.DeviceID, device.Token, device.Platform, device.Locale, created, device.PushOptIn)
	return nil
}

// NotifyDispatchCompleted logs batch counts.
func (n *LoggingNotificationService) NotifyDispatchCompleted(_ context.Context, result DispatchResult) error {
	n.logger.Infof("Dispatch completed: batch_id=%s, message_id=%s, considered=%d, included=%d, succeeded=%d, failed=%d",
		result.BatchID, result.MessageID, result.Considered, result.Included, result.Succeeded, result.Failed)
	return nil
}

// NotifyDispatchFailed logs an unreachable provider.
func (n *LoggingNotificationService) NotifyDispatchFailed(_ context.Context, plan DispatchPlan, err error) error {
	n.logger.Warnf("Dispatch failed: batch_id=%s, message_id=%s, included=%d, error=%v",
		plan.BatchID, plan.MessageID, plan.Included, err)
	return nil
}

// NotifyActivationAbandoned logs the abandoned activation.
func (n *LoggingNotificationService) NotifyActivationAbandoned(_ context.Context, activation model.PushActivation) error {
	n.logger.Warnf("Push activation abandoned: message_id=%s, active_from=%s, attempts=%d, last_error=%s",
		activation.MessageID, activation.ActiveFrom.Format("2006-01-02T15:04:05Z07:00"), activation.AttemptCount, activation.LastError.String)
	return nil
}
