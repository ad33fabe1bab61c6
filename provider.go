package civicpush

import (
	"context"

	"github.com/coregx/civicpush/model"
	"github.com/coregx/civicpush/targeting"
)

// DeliveryProvider transmits a batch of pushes over a push transport.
// This is the only contact point with the physical delivery service, which
// keeps targeting testable without a network.
//
// Implementations return an error only when the transport could not be
// reached at all. Per-recipient failures are reported in the BatchReport.
type DeliveryProvider interface {
	// SendBatch sends every envelope and reports one result per envelope.
	SendBatch(ctx context.Context, batch []targeting.Envelope) (BatchReport, error)
}

// RecipientResult is the outcome of one envelope. Token is masked.
type RecipientResult struct {
	Token   string       `json:"token"`
	Locale  model.Locale `json:"locale"`
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
}

// BatchReport is a provider's answer to one SendBatch call.
type BatchReport struct {
	Results []RecipientResult `json:"results"`
}

// Succeeded counts successful recipients.
func (r BatchReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Failed counts failed recipients.
func (r BatchReport) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// NoopProvider accepts every envelope without sending anything.
type NoopProvider struct{}

// SendBatch reports success for every envelope.
func (p *NoopProvider) SendBatch(_ context.Context, batch []targeting.Envelope) (BatchReport, error) {
	return successReport(batch), nil
}

// LoggingProvider logs every envelope with a masked token and reports
// success. Useful for development servers without push credentials.
type LoggingProvider struct {
	logger Logger
}

// NewLoggingProvider creates a new LoggingProvider.
func NewLoggingProvider(logger Logger) *LoggingProvider {
	return &LoggingProvider{logger: logger}
}

// SendBatch logs the batch.
func (p *LoggingProvider) SendBatch(_ context.Context, batch []targeting.Envelope) (BatchReport, error) {
	for _, env := range batch {
		p.logger.Infof("push: token=%s, locale=%s, message_id=%s, title=%q",
			model.MaskToken(env.Token), env.Locale, env.Content.MessageID, env.Content.Title)
	}
	return successReport(batch), nil
}

func successReport(batch []targeting.Envelope) BatchReport {
	results := make([]RecipientResult, 0, len(batch))
	for _, env := range batch {
		results = append(results, RecipientResult{
			Token:   model.MaskToken(env.Token),
			Locale:  env.Locale,
			Success: true,
		})
	}
	return BatchReport{Results: results}
}
