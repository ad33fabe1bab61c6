package civicpush_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/coregx/civicpush/targeting"
)

var (
	baseTime = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	errUnreachable = errors.New("dial tcp: connection refused")
)

// fakeProvider records every batch. Tokens in failTokens fail
// individually; a non-nil err fails the whole call. When hold is set the
// first call closes entered and blocks until hold is closed.
type fakeProvider struct {
	mu         sync.Mutex
	batches    [][]targeting.Envelope
	failTokens map[string]bool
	err        error
	hold       chan struct{}
	entered    chan struct{}
}

func (p *fakeProvider) SendBatch(_ context.Context, batch []targeting.Envelope) (civicpush.BatchReport, error) {
	p.mu.Lock()
	p.batches = append(p.batches, append([]targeting.Envelope(nil), batch...))
	first := len(p.batches) == 1
	hold, entered := p.hold, p.entered
	p.mu.Unlock()

	if first && hold != nil {
		close(entered)
		<-hold
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return civicpush.BatchReport{}, p.err
	}

	results := make([]civicpush.RecipientResult, 0, len(batch))
	for _, env := range batch {
		res := civicpush.RecipientResult{Token: model.MaskToken(env.Token), Locale: env.Locale, Success: true}
		if p.failTokens[env.Token] {
			res.Success = false
			res.Error = "DeviceNotRegistered"
		}
		results = append(results, res)
	}
	return civicpush.BatchReport{Results: results}, nil
}

func (p *fakeProvider) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func (p *fakeProvider) lastBatch() []targeting.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.batches) == 0 {
		return nil
	}
	return p.batches[len(p.batches)-1]
}

// recordingNotifications keeps every event it receives.
type recordingNotifications struct {
	mu          sync.Mutex
	registered  []model.DeviceView
	created     []bool
	completed   []civicpush.DispatchResult
	failed      []civicpush.DispatchPlan
	abandoned   []model.PushActivation
	returnError error
}

func (n *recordingNotifications) NotifyDeviceRegistered(_ context.Context, device model.DeviceView, created bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registered = append(n.registered, device)
	n.created = append(n.created, created)
	return n.returnError
}

func (n *recordingNotifications) NotifyDispatchCompleted(_ context.Context, result civicpush.DispatchResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, result)
	return n.returnError
}

func (n *recordingNotifications) NotifyDispatchFailed(_ context.Context, plan civicpush.DispatchPlan, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, plan)
	return n.returnError
}

func (n *recordingNotifications) NotifyActivationAbandoned(_ context.Context, activation model.PushActivation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.abandoned = append(n.abandoned, activation)
	return n.returnError
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func municipalityPtr(m model.Municipality) *model.Municipality { return &m }

func boolPtr(v bool) *bool { return &v }

func emergencyMessage(id string, from, to time.Time, tags ...model.Tag) model.Message {
	return model.NewMessage(id,
		model.LocalizedText{HR: "Prekid opskrbe vodom", EN: "Water supply interruption"},
		model.LocalizedText{HR: "Radovi na vodovodu do 14h", EN: "Repairs until 2 pm"},
		append([]model.Tag{model.TagEmergency}, tags...),
		from.Add(-time.Hour),
	).WithWindow(model.TimePtr(from), model.TimePtr(to))
}
