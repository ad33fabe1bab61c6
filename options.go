package civicpush

import (
	"fmt"
	"time"

	"github.com/coregx/civicpush/retry"
)

// WorkerOption is a function that configures an ActivationWorker.
//
// Example:
//
//	worker, err := civicpush.NewActivationWorker(
//	    civicpush.WithWorkerRepositories(messageRepo, activationRepo),
//	    civicpush.WithWorkerDispatcher(dispatcher),
//	    civicpush.WithWorkerLogger(logger),
//	    civicpush.WithBatchSize(50), // optional
//	)
type WorkerOption func(*ActivationWorker) error

// WithWorkerRepositories sets the message source and the activation ledger.
// Both are required.
func WithWorkerRepositories(messages MessageRepository, activations ActivationRepository) WorkerOption {
	return func(w *ActivationWorker) error {
		if messages == nil {
			return fmt.Errorf("messages cannot be nil")
		}
		if activations == nil {
			return fmt.Errorf("activations cannot be nil")
		}

		w.messages = messages
		w.activations = activations
		return nil
	}
}

// WithWorkerDispatcher sets the dispatcher used for activations.
// The dispatcher must have a device store (WithDispatcherDevices).
func WithWorkerDispatcher(dispatcher *Dispatcher) WorkerOption {
	return func(w *ActivationWorker) error {
		if dispatcher == nil {
			return fmt.Errorf("dispatcher cannot be nil")
		}
		if dispatcher.devices == nil {
			return fmt.Errorf("dispatcher has no device store")
		}
		w.dispatcher = dispatcher
		return nil
	}
}

// WithWorkerLogger sets the logger instance for the activation worker.
//
// Use NoopLogger for silent operation or implement Logger to integrate
// with your logging system.
func WithWorkerLogger(logger Logger) WorkerOption {
	return func(w *ActivationWorker) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		w.logger = logger
		return nil
	}
}

// WithRetryStrategy sets a custom retry strategy.
// Defaults to retry.DefaultStrategy().
func WithRetryStrategy(strategy retry.Strategy) WorkerOption {
	return func(w *ActivationWorker) error {
		if err := strategy.Validate(); err != nil {
			return err
		}
		w.retryStrategy = strategy
		return nil
	}
}

// WithBatchSize sets the number of retries picked up per batch.
// Must be > 0. Defaults to 100.
func WithBatchSize(size int) WorkerOption {
	return func(w *ActivationWorker) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be > 0, got %d", size)
		}
		w.batchSize = size
		return nil
	}
}

// WithWorkerNotifications sets an optional notification service for
// abandoned activations. Dispatch outcomes go to the dispatcher's own
// service; pass the same service to WithDispatcherNotifications to see both.
func WithWorkerNotifications(service NotificationService) WorkerOption {
	return func(w *ActivationWorker) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		w.notificationService = service
		return nil
	}
}

// WithWorkerClock overrides time.Now.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *ActivationWorker) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		w.now = now
		return nil
	}
}
