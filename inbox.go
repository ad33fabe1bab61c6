package civicpush

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/civicpush/model"
	"github.com/coregx/civicpush/targeting"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Inbox serves the two screen-facing reads: all messages a user may see,
// and the ranked, capped banners of one screen.
//
// Thread safety: Safe for concurrent use.
type Inbox struct {
	messages MessageRepository
	logger   Logger
	now      func() time.Time
}

// InboxOption configures an Inbox.
type InboxOption func(*Inbox) error

// NewInbox creates a new Inbox with the provided options.
//
// Required options:
//   - WithInboxMessages: message source
//   - WithInboxLogger: logger instance
func NewInbox(opts ...InboxOption) (*Inbox, error) {
	in := &Inbox{now: time.Now}

	for _, opt := range opts {
		if err := opt(in); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply inbox option", err)
		}
	}

	if in.messages == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageRepository is required (use WithInboxMessages)")
	}
	if in.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithInboxLogger)")
	}

	return in, nil
}

// WithInboxMessages sets the message source.
func WithInboxMessages(messages MessageRepository) InboxOption {
	return func(in *Inbox) error {
		if messages == nil {
			return fmt.Errorf("messages cannot be nil")
		}
		in.messages = messages
		return nil
	}
}

// WithInboxLogger sets the logger instance.
func WithInboxLogger(logger Logger) InboxOption {
	return func(in *Inbox) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		in.logger = logger
		return nil
	}
}

// WithInboxClock overrides time.Now for Banners.
func WithInboxClock(now func() time.Time) InboxOption {
	return func(in *Inbox) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		in.now = now
		return nil
	}
}

// ValidateUserContext checks the user mode and, for locals, the municipality.
// A visitor's municipality is ignored rather than rejected.
func ValidateUserContext(user model.UserContext) error {
	err := validation.ValidateStruct(&user,
		validation.Field(&user.Mode, validation.Required, validation.In(model.UserModeVisitor, model.UserModeLocal)),
		validation.Field(&user.Municipality,
			validation.When(user.Mode == model.UserModeLocal,
				validation.NilOrNotEmpty,
				validation.In(model.MunicipalityVis, model.MunicipalityKomiza))),
	)
	if err != nil {
		return NewErrorWithCause(ErrCodeValidation, "invalid user context", err)
	}
	return nil
}

// ValidateScreen checks screen is on the closed screen table.
func ValidateScreen(screen model.Screen) error {
	if screen == "" {
		return NewError(ErrCodeValidation, "screen is required")
	}
	if !screen.IsValid() {
		return NewError(ErrCodeValidation, fmt.Sprintf("unknown screen: %s", screen))
	}
	return nil
}

// Messages returns every visible message user may see, newest first.
// The activation window is not considered.
func (in *Inbox) Messages(ctx context.Context, user model.UserContext) ([]model.Message, error) {
	if err := ValidateUserContext(user); err != nil {
		return nil, err
	}

	msgs, err := in.messages.FindVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	return targeting.EligibleMessages(msgs, user), nil
}

// Banners returns at most targeting.MaxBannersPerScreen banners for screen
// at the inbox clock's current time.
func (in *Inbox) Banners(ctx context.Context, user model.UserContext, screen model.Screen) ([]model.Message, error) {
	return in.BannersAt(ctx, user, screen, in.now())
}

// BannersAt is Banners evaluated at now.
func (in *Inbox) BannersAt(ctx context.Context, user model.UserContext, screen model.Screen, now time.Time) ([]model.Message, error) {
	if err := ValidateUserContext(user); err != nil {
		return nil, err
	}
	if err := ValidateScreen(screen); err != nil {
		return nil, err
	}

	msgs, err := in.messages.FindVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	banners := targeting.SelectBanners(msgs, user, screen, now)
	in.logger.Debugf("Banners selected: screen=%s, mode=%s, candidates=%d, selected=%d",
		screen, user.Mode, len(msgs), len(banners))
	return banners, nil
}
