package civicpush

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/civicpush/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// ActivationHandler is notified of every message the Publisher stored.
// ActivationWorker implements it.
type ActivationHandler interface {
	// OnMessageActivated dispatches msg if its push trigger holds now and
	// this activation was not dispatched before.
	OnMessageActivated(ctx context.Context, msg model.Message) (bool, error)
}

// Publisher is the ingestion boundary for messages produced by the
// authoring collaborator. It coerces loosely typed records, stores them and
// hands each stored message to the activation handler, so an emergency
// notice that is already active is pushed without waiting for the next
// worker tick.
type Publisher struct {
	messages          MessageRepository
	activationHandler ActivationHandler
	logger            Logger
	now               func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher) error

// NewPublisher creates a new Publisher with the provided options.
//
// Required options:
//   - WithPublisherMessages: message store
//   - WithPublisherLogger: logger instance
//
// Example:
//
//	publisher, err := civicpush.NewPublisher(
//	    civicpush.WithPublisherMessages(messageRepo),
//	    civicpush.WithActivationHandler(worker),
//	    civicpush.WithPublisherLogger(logger),
//	)
func NewPublisher(opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{now: time.Now}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply publisher option", err)
		}
	}

	if p.messages == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageRepository is required (use WithPublisherMessages)")
	}
	if p.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithPublisherLogger)")
	}

	return p, nil
}

// WithPublisherMessages sets the message store.
func WithPublisherMessages(messages MessageRepository) PublisherOption {
	return func(p *Publisher) error {
		if messages == nil {
			return fmt.Errorf("messages cannot be nil")
		}
		p.messages = messages
		return nil
	}
}

// WithActivationHandler sets the handler notified after each stored message.
func WithActivationHandler(handler ActivationHandler) PublisherOption {
	return func(p *Publisher) error {
		if handler == nil {
			return fmt.Errorf("activation handler cannot be nil")
		}
		p.activationHandler = handler
		return nil
	}
}

// WithPublisherLogger sets the logger instance.
func WithPublisherLogger(logger Logger) PublisherOption {
	return func(p *Publisher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// WithPublisherClock overrides time.Now.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		p.now = now
		return nil
	}
}

// PublishResult represents the result of a publish operation.
type PublishResult struct {
	Message    model.Message `json:"message"`
	Dispatched bool          `json:"dispatched"` // Push sent as part of this call
}

// ValidateMessageRecord checks the fields a stored message cannot do without.
// Tags are never rejected; they are coerced by ToMessage.
func ValidateMessageRecord(rec model.MessageRecord) error {
	err := validation.ValidateStruct(&rec,
		validation.Field(&rec.ID, validation.Length(1, 64)),
		validation.Field(&rec.TitleHR, validation.Required, validation.Length(1, 200)),
		validation.Field(&rec.BodyHR, validation.Required),
		validation.Field(&rec.TitleEN, validation.Length(0, 200)),
		validation.Field(&rec.BodyEN, validation.When(rec.TitleEN != "", validation.Required)),
	)
	if err != nil {
		return NewErrorWithCause(ErrCodeValidation, "invalid message", err)
	}
	return nil
}

// Publish stores rec and lets the activation handler react to it.
//
// The process:
//  1. Validate the record
//  2. Assign an ID and creation time if missing
//  3. Coerce tags and save the message
//  4. Notify the activation handler
//
// A handler failure is logged; the message stays stored and the activation
// worker picks it up on its next scan.
func (p *Publisher) Publish(ctx context.Context, rec model.MessageRecord) (*PublishResult, error) {
	if err := ValidateMessageRecord(rec); err != nil {
		return nil, err
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = p.now()
	}

	msg, err := p.messages.Save(ctx, rec.ToMessage())
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	p.logger.Infof("Message stored: id=%s, tags=%v, published=%t", msg.ID, msg.Tags, msg.Published)

	result := &PublishResult{Message: msg}
	if p.activationHandler == nil || !msg.IsVisible() {
		return result, nil
	}

	dispatched, err := p.activationHandler.OnMessageActivated(ctx, msg)
	if err != nil {
		p.logger.Errorf("Failed to activate push for message %s: %v", msg.ID, err)
		return result, nil
	}
	result.Dispatched = dispatched

	return result, nil
}

// PublishBatch publishes multiple records. Records that fail are logged
// and skipped.
func (p *Publisher) PublishBatch(ctx context.Context, records []model.MessageRecord) ([]*PublishResult, error) {
	if len(records) == 0 {
		return []*PublishResult{}, nil
	}

	results := make([]*PublishResult, 0, len(records))

	for _, rec := range records {
		result, err := p.Publish(ctx, rec)
		if err != nil {
			p.logger.Errorf("Failed to publish message (id=%s): %v", rec.ID, err)
			continue
		}
		results = append(results, result)
	}

	return results, nil
}
