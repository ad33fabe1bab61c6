package civicpush

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coregx/civicpush/model"
	"github.com/coregx/civicpush/retry"
	"github.com/coregx/civicpush/targeting"
)

// errActivationStale is recorded on activations whose message no longer
// triggers a push for the recorded window.
var errActivationStale = errors.New("message no longer triggers a push for this activation")

// ActivationWorker is the caller of the push trigger. It notices when an
// emergency message's window opens, dispatches it once per activation and
// retries activations whose dispatch could not reach the provider.
//
// Each activation is identified by (message ID, window start) and recorded
// in the ActivationRepository before dispatch, so moving a message's window
// produces a new activation while re-scanning an open window does not.
//
// Key responsibilities:
//   - Detect newly triggered activations (ProcessActivations)
//   - Retry failed activations with exponential backoff (ProcessRetries)
//   - Abandon activations that exhausted retries or went stale
//
// Thread safety: Safe for concurrent use. Activation handling is serialized,
// so OnMessageActivated may run alongside Run.
type ActivationWorker struct {
	messages            MessageRepository
	activations         ActivationRepository
	dispatcher          *Dispatcher
	retryStrategy       retry.Strategy
	logger              Logger
	notificationService NotificationService
	batchSize           int
	now                 func() time.Time

	mu sync.Mutex
}

// NewActivationWorker creates a new activation worker with the provided options.
//
// Required options:
//   - WithWorkerRepositories: message and activation repositories
//   - WithWorkerDispatcher: dispatcher with a device store
//   - WithWorkerLogger: logger instance
//
// Optional options:
//   - WithRetryStrategy: custom retry strategy (default: retry.DefaultStrategy())
//   - WithBatchSize: retries per batch (default: 100)
//   - WithWorkerNotifications: event observer
//   - WithWorkerClock: time source
func NewActivationWorker(opts ...WorkerOption) (*ActivationWorker, error) {
	w := &ActivationWorker{
		retryStrategy:       retry.DefaultStrategy(),
		batchSize:           100,
		notificationService: &NoOpNotificationService{},
		now:                 time.Now,
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply option", err)
		}
	}

	if w.messages == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageRepository is required (use WithWorkerRepositories)")
	}
	if w.activations == nil {
		return nil, NewError(ErrCodeConfiguration, "ActivationRepository is required (use WithWorkerRepositories)")
	}
	if w.dispatcher == nil {
		return nil, NewError(ErrCodeConfiguration, "Dispatcher is required (use WithWorkerDispatcher)")
	}
	if w.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithWorkerLogger)")
	}

	return w, nil
}

// ProcessActivations scans visible messages for triggered pushes that have
// no activation record yet, records them and dispatches each one.
//
// Returns the number of activations dispatched. Individual failures are
// logged and recorded for retry but don't stop the scan.
func (w *ActivationWorker) ProcessActivations(ctx context.Context) (int, error) {
	msgs, err := w.messages.FindVisible(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to find visible messages: %w", err)
	}

	now := w.now()
	processed := 0
	for i := range msgs {
		if !targeting.ShouldTriggerPushFor(msgs[i], now) {
			continue
		}

		handled, err := w.activate(ctx, msgs[i], now)
		if err != nil {
			w.logger.Errorf("Failed to activate push for message %s: %v", msgs[i].ID, err)
			continue
		}
		if handled {
			processed++
		}
	}

	return processed, nil
}

// OnMessageActivated is the direct path for callers that learn about a
// (re)activation as it happens. It returns true if msg was dispatched now,
// false if the trigger does not hold or this activation was already handled.
func (w *ActivationWorker) OnMessageActivated(ctx context.Context, msg model.Message) (bool, error) {
	now := w.now()
	if !targeting.ShouldTriggerPushFor(msg, now) {
		return false, nil
	}
	return w.activate(ctx, msg, now)
}

// ProcessRetries re-dispatches failed activations whose backoff elapsed,
// oldest first, at most batchSize per call.
//
// Returns the number of activations attempted.
func (w *ActivationWorker) ProcessRetries(ctx context.Context) (int, error) {
	now := w.now()
	due, err := w.activations.FindDue(ctx, now, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find due activations: %w", err)
	}

	processed := 0
	for i := range due {
		handled, err := w.retryActivation(ctx, due[i], now)
		if err != nil {
			w.logger.Errorf("Failed to retry push activation %d: %v", due[i].ID, err)
			continue
		}
		if handled {
			processed++
		}
	}

	return processed, nil
}

// activate records the activation of msg if unseen and dispatches it.
// Activations already recorded are left to ProcessRetries unless still pending.
func (w *ActivationWorker) activate(ctx context.Context, msg model.Message, now time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	activation, err := w.activations.Find(ctx, msg.ID, *msg.ActiveFrom)
	switch {
	case err == nil:
		if activation.Status != model.ActivationStatusPending {
			return false, nil
		}
	case IsNotFound(err):
		activation = model.NewPushActivation(msg, now)
		saved, err := w.activations.Save(ctx, &activation)
		if err != nil {
			return false, fmt.Errorf("failed to record activation: %w", err)
		}
		activation = *saved
	default:
		return false, fmt.Errorf("failed to load activation: %w", err)
	}

	w.dispatch(ctx, msg, &activation, now)
	return true, nil
}

// retryActivation reloads a due activation and its message and dispatches it
// again, abandoning the activation if the message stopped triggering it.
// The due list is read without the lock, so the record is looked up again
// here and skipped when another path handled it in the meantime.
func (w *ActivationWorker) retryActivation(ctx context.Context, candidate model.PushActivation, now time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	activation, err := w.activations.Find(ctx, candidate.MessageID, candidate.ActiveFrom)
	if err != nil {
		return false, fmt.Errorf("failed to reload activation: %w", err)
	}
	if !activation.IsDue(now) {
		return false, nil
	}

	msg, err := w.messages.Load(ctx, activation.MessageID)
	if err != nil && !IsNotFound(err) {
		return false, fmt.Errorf("failed to load message: %w", err)
	}
	if err != nil || !w.stillTriggers(msg, &activation, now) {
		activation.LastError.String = errActivationStale.Error()
		activation.LastError.Valid = true
		activation.Abandon()
		if _, err := w.activations.Save(ctx, &activation); err != nil {
			return false, fmt.Errorf("failed to abandon stale activation: %w", err)
		}
		w.logger.Infof("Abandoned stale push activation %d (message_id=%s)", activation.ID, activation.MessageID)
		return true, nil
	}

	w.dispatch(ctx, msg, &activation, now)
	return true, nil
}

func (w *ActivationWorker) stillTriggers(msg model.Message, activation *model.PushActivation, now time.Time) bool {
	if !msg.IsVisible() || msg.ActiveFrom == nil {
		return false
	}
	if !msg.ActiveFrom.Equal(activation.ActiveFrom) {
		return false
	}
	return targeting.ShouldTriggerPushFor(msg, now)
}

// dispatch sends msg and records the outcome on activation.
func (w *ActivationWorker) dispatch(ctx context.Context, msg model.Message, activation *model.PushActivation, now time.Time) {
	_, result, err := w.dispatcher.DispatchMessage(ctx, msg)
	switch {
	case err == nil:
		w.handleDispatchSuccess(ctx, activation, result, now)
	case IsValidation(err):
		// Content that fails validation will not pass on a retry either.
		activation.LastError.String = err.Error()
		activation.LastError.Valid = true
		activation.Abandon()
		w.save(ctx, activation)
		w.notifyAbandoned(ctx, activation)
	default:
		w.handleDispatchFailure(ctx, activation, err, now)
	}
}

func (w *ActivationWorker) handleDispatchSuccess(ctx context.Context, activation *model.PushActivation, result *DispatchResult, now time.Time) {
	activation.MarkSent(result.Considered, result.Included, now)
	if !w.save(ctx, activation) {
		return
	}

	w.logger.Infof("Push dispatched for message %s (activation_id=%d, attempts=%d, included=%d, succeeded=%d, failed=%d)",
		activation.MessageID, activation.ID, activation.AttemptCount, result.Included, result.Succeeded, result.Failed)
}

func (w *ActivationWorker) handleDispatchFailure(ctx context.Context, activation *model.PushActivation, dispatchErr error, now time.Time) {
	retryDelay := w.retryStrategy.Backoff(activation.AttemptCount + 1)
	activation.MarkFailed(dispatchErr, retryDelay, now)

	if w.retryStrategy.Exhausted(activation.AttemptCount) {
		w.logger.Warnf("Abandoning push activation %d (attempts=%d, max=%d): %v",
			activation.ID, activation.AttemptCount, w.retryStrategy.MaxAttempts, dispatchErr)
		activation.Abandon()
		if w.save(ctx, activation) {
			w.notifyAbandoned(ctx, activation)
		}
		return
	}

	if !w.save(ctx, activation) {
		return
	}

	w.logger.Warnf("Push dispatch failed for message %s (activation_id=%d, attempts=%d, next_retry=%v): %v",
		activation.MessageID, activation.ID, activation.AttemptCount, retryDelay, dispatchErr)
}

func (w *ActivationWorker) save(ctx context.Context, activation *model.PushActivation) bool {
	if _, err := w.activations.Save(ctx, activation); err != nil {
		w.logger.Errorf("Failed to update push activation %d: %v", activation.ID, err)
		return false
	}
	return true
}

func (w *ActivationWorker) notifyAbandoned(ctx context.Context, activation *model.PushActivation) {
	if err := w.notificationService.NotifyActivationAbandoned(ctx, *activation); err != nil {
		w.logger.Warnf("Failed to send abandon notification: %v", err)
	}
}

// Run starts the activation worker loop. It runs until ctx is canceled,
// processing one batch per interval.
//
// This method blocks and should typically be run in a goroutine.
//
// Example:
//
//	go worker.Run(ctx, 15*time.Second)
func (w *ActivationWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("Activation worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Activation worker stopped")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// processBatch runs one scan for new activations and one retry pass.
func (w *ActivationWorker) processBatch(ctx context.Context) {
	activated, err := w.ProcessActivations(ctx)
	if err != nil {
		w.logger.Errorf("Error processing activations: %v", err)
	}

	retried, err := w.ProcessRetries(ctx)
	if err != nil {
		w.logger.Errorf("Error processing retries: %v", err)
	}

	if activated > 0 || retried > 0 {
		w.logger.Infof("Batch processed: activated=%d, retried=%d", activated, retried)
	}
}

// RetrySchedule returns a human-readable description of the retry schedule.
func (w *ActivationWorker) RetrySchedule() string {
	return w.retryStrategy.Schedule()
}
