package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
)

type fakeRelay struct{ stats coreevent.Stats }

func (f *fakeRelay) Stats() coreevent.Stats { return f.stats }

type fakeObjects int

func (f fakeObjects) Len() int { return int(f) }

func TestCoreEventSink(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.Handle(ctx, coreevent.NewArgs(coreevent.PropertyValueChanged, "dev.gain")))
	require.NoError(t, m.Handle(ctx, coreevent.NewArgs(coreevent.PropertyValueChanged, "dev.rate")))
	require.NoError(t, m.Handle(ctx, coreevent.NewArgs(coreevent.PropertyAdded, "dev")))

	assert.Equal(t, "metrics", m.Name())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CoreEvents.WithLabelValues(coreevent.PropertyValueChanged.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CoreEvents.WithLabelValues(coreevent.PropertyAdded.String())))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/v1/objects", http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/v1/objects", http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/objects", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}

func TestHandlerExposesWatchedValues(t *testing.T) {
	m := New()
	m.WatchRelay(&fakeRelay{stats: coreevent.Stats{Queued: 3, Delivered: 7, Dropped: 1}})
	m.WatchObjects(fakeObjects(4))
	m.WebSocketClients.Set(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "propertyd_relay_delivered_total 7")
	assert.Contains(t, text, "propertyd_relay_dropped_total 1")
	assert.Contains(t, text, "propertyd_relay_queued 3")
	assert.Contains(t, text, "propertyd_objects 4")
	assert.Contains(t, text, "propertyd_websocket_clients 2")
	assert.Contains(t, text, "go_goroutines")
}
