package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ civicpush.NotificationService = (*NotificationService)(nil)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/devices/{deviceID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/devices/{deviceID}", http.MethodGet, "404")))
}

func TestNotificationService_Counts(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())
	svc := NewNotificationService(m, nil)

	require.NoError(t, svc.NotifyDeviceRegistered(ctx, model.DeviceView{DeviceID: "d"}, true))
	require.NoError(t, svc.NotifyDeviceRegistered(ctx, model.DeviceView{DeviceID: "d"}, false))
	require.NoError(t, svc.NotifyDispatchCompleted(ctx, civicpush.DispatchResult{Considered: 5, Included: 4, Succeeded: 3, Failed: 1}))
	require.NoError(t, svc.NotifyDispatchFailed(ctx, civicpush.DispatchPlan{}, assert.AnError))
	require.NoError(t, svc.NotifyActivationAbandoned(ctx, model.PushActivation{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("refreshed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("unreachable")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.recipients.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recipients.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recipients.WithLabelValues("excluded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.abandoned))
}

type failingNext struct{ civicpush.NoOpNotificationService }

func (failingNext) NotifyActivationAbandoned(context.Context, model.PushActivation) error {
	return assert.AnError
}

func TestNotificationService_ForwardsErrors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	svc := NewNotificationService(m, &failingNext{})

	err := svc.NotifyActivationAbandoned(context.Background(), model.PushActivation{})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.abandoned), "counted even when forwarding fails")
}
