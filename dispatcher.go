package civicpush

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coregx/civicpush/model"
	"github.com/coregx/civicpush/targeting"
	"github.com/google/uuid"
)

// Dispatcher narrows a target list to the locale-matched send set and hands
// it to the DeliveryProvider in one batched call.
//
// Dispatch is fire-and-collect: no retry happens here. A provider that
// cannot be reached yields a DELIVERY_ERROR together with the computed
// plan, so callers can retry Send alone.
//
// Thread safety: Safe for concurrent use.
type Dispatcher struct {
	provider            DeliveryProvider
	devices             DeviceRepository
	logger              Logger
	notificationService NotificationService
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher) error

// NewDispatcher creates a new Dispatcher with the provided options.
//
// Required options:
//   - WithDeliveryProvider: outbound push transport
//   - WithDispatcherLogger: logger instance
//
// Optional options:
//   - WithDispatcherDevices: device store, required only by DispatchMessage
//   - WithDispatcherNotifications: event observer
//
// Example:
//
//	dispatcher, err := civicpush.NewDispatcher(
//	    civicpush.WithDeliveryProvider(provider),
//	    civicpush.WithDispatcherDevices(deviceRepo),
//	    civicpush.WithDispatcherLogger(logger),
//	)
func NewDispatcher(opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		notificationService: &NoOpNotificationService{},
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply dispatcher option", err)
		}
	}

	if d.provider == nil {
		return nil, NewError(ErrCodeConfiguration, "DeliveryProvider is required (use WithDeliveryProvider)")
	}
	if d.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithDispatcherLogger)")
	}

	return d, nil
}

// WithDeliveryProvider sets the outbound push transport.
func WithDeliveryProvider(provider DeliveryProvider) DispatcherOption {
	return func(d *Dispatcher) error {
		if provider == nil {
			return fmt.Errorf("provider cannot be nil")
		}
		d.provider = provider
		return nil
	}
}

// WithDispatcherDevices sets the device store read by DispatchMessage.
func WithDispatcherDevices(devices DeviceRepository) DispatcherOption {
	return func(d *Dispatcher) error {
		if devices == nil {
			return fmt.Errorf("devices cannot be nil")
		}
		d.devices = devices
		return nil
	}
}

// WithDispatcherLogger sets the logger instance.
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		d.logger = logger
		return nil
	}
}

// WithDispatcherNotifications sets the event observer.
func WithDispatcherNotifications(service NotificationService) DispatcherOption {
	return func(d *Dispatcher) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		d.notificationService = service
		return nil
	}
}

// DispatchPlan is the outcome of targeting: the send set and its counts.
type DispatchPlan struct {
	BatchID    string               // Unique batch identifier
	MessageID  string               // Message being pushed, if known
	Considered int                  // Targets handed to Plan
	Included   int                  // Targets with content in their locale
	Envelopes  []targeting.Envelope // Send set, len == Included
}

// DispatchResult is the outcome of one Send.
type DispatchResult struct {
	BatchID    string            `json:"batchId"`
	MessageID  string            `json:"messageId,omitempty"`
	Considered int               `json:"considered"`
	Included   int               `json:"included"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Results    []RecipientResult `json:"results"`
	Duration   time.Duration     `json:"duration"`
}

// Plan validates the HR payload and computes the send set for targets.
// en may be nil, in which case every EN target is excluded. An empty target
// list yields an empty plan without validating the content.
func (d *Dispatcher) Plan(targets []targeting.Target, hr model.Content, en *model.Content) (*DispatchPlan, error) {
	if len(targets) == 0 {
		return &DispatchPlan{
			BatchID:   uuid.NewString(),
			MessageID: hr.MessageID,
			Envelopes: []targeting.Envelope{},
		}, nil
	}
	if strings.TrimSpace(hr.Title) == "" || strings.TrimSpace(hr.Body) == "" {
		return nil, NewError(ErrCodeValidation, "HR content requires a title and a body")
	}
	if en != nil && strings.TrimSpace(en.Title) == "" {
		return nil, NewError(ErrCodeValidation, "EN content requires a title when supplied")
	}

	envelopes := targeting.MatchLocale(targets, hr, en)

	return &DispatchPlan{
		BatchID:    uuid.NewString(),
		MessageID:  hr.MessageID,
		Considered: len(targets),
		Included:   len(envelopes),
		Envelopes:  envelopes,
	}, nil
}

// Send hands the plan's envelopes to the provider in one call. A plan with
// no envelopes returns a zero-count result without calling the provider.
//
// Per-recipient failures are counted, never returned as an error. Envelopes
// the provider did not report on count as failed. When the provider cannot
// be reached, Send returns the partially filled result and a DELIVERY_ERROR.
func (d *Dispatcher) Send(ctx context.Context, plan *DispatchPlan) (*DispatchResult, error) {
	if plan == nil {
		return nil, NewError(ErrCodeValidation, "dispatch plan is required")
	}

	result := &DispatchResult{
		BatchID:    plan.BatchID,
		MessageID:  plan.MessageID,
		Considered: plan.Considered,
		Included:   plan.Included,
		Results:    []RecipientResult{},
	}

	if len(plan.Envelopes) == 0 {
		d.logger.Debugf("Dispatch skipped: batch_id=%s, considered=%d, no envelopes", plan.BatchID, plan.Considered)
		return result, nil
	}

	start := time.Now()
	report, err := d.provider.SendBatch(ctx, plan.Envelopes)
	result.Duration = time.Since(start)
	if err != nil {
		result.Failed = plan.Included
		if notifyErr := d.notificationService.NotifyDispatchFailed(ctx, *plan, err); notifyErr != nil {
			d.logger.Warnf("Failed to send dispatch failure notification: %v", notifyErr)
		}
		return result, NewErrorWithCause(ErrCodeDelivery, "delivery provider unreachable", err)
	}

	result.Results = report.Results
	result.Succeeded = report.Succeeded()
	result.Failed = plan.Included - result.Succeeded
	if result.Failed < 0 {
		result.Failed = 0
	}

	if result.Failed > 0 {
		d.logger.Warnf("Dispatch partially failed: batch_id=%s, succeeded=%d, failed=%d",
			plan.BatchID, result.Succeeded, result.Failed)
	}

	if err := d.notificationService.NotifyDispatchCompleted(ctx, *result); err != nil {
		d.logger.Warnf("Failed to send dispatch notification: %v", err)
	}

	return result, nil
}

// Dispatch is Plan followed by Send. On a DELIVERY_ERROR the returned plan
// can be passed to Send again.
func (d *Dispatcher) Dispatch(ctx context.Context, targets []targeting.Target, hr model.Content, en *model.Content) (*DispatchPlan, *DispatchResult, error) {
	plan, err := d.Plan(targets, hr, en)
	if err != nil {
		return nil, nil, err
	}
	result, err := d.Send(ctx, plan)
	return plan, result, err
}

// PlanMessage reads the devices eligible for msg from the device store and
// plans a dispatch of the message's localized content.
func (d *Dispatcher) PlanMessage(ctx context.Context, msg model.Message) (*DispatchPlan, error) {
	if d.devices == nil {
		return nil, NewError(ErrCodeConfiguration, "DeviceRepository is required (use WithDispatcherDevices)")
	}

	hr := msg.Content(model.LocaleHR)
	if hr == nil {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("message %s has no HR title", msg.ID))
	}
	en := msg.Content(model.LocaleEN)

	devices, err := d.devices.ListEligible(ctx, msg.Tags, en != nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible devices: %w", err)
	}

	plan, err := d.Plan(targeting.TargetsOf(devices), *hr, en)
	if err != nil {
		return nil, err
	}
	plan.MessageID = msg.ID
	return plan, nil
}

// DispatchMessage is PlanMessage followed by Send.
func (d *Dispatcher) DispatchMessage(ctx context.Context, msg model.Message) (*DispatchPlan, *DispatchResult, error) {
	plan, err := d.PlanMessage(ctx, msg)
	if err != nil {
		return nil, nil, err
	}
	result, err := d.Send(ctx, plan)
	return plan, result, err
}
