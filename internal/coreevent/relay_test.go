package coreevent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Args
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Handle(_ context.Context, args Args) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, args)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestRelayDeliversInOrder(t *testing.T) {
	r := NewRelay(16)
	sink := &recordingSink{}
	r.AddSink(sink)
	require.NoError(t, r.Start(context.Background()))

	trigger := r.Trigger()
	for i := 0; i < 5; i++ {
		trigger(NewArgs(PropertyValueChanged, "dev", ParamName, "x", ParamValue, i))
	}
	r.Close()

	require.Equal(t, 5, sink.count())
	for i, ev := range sink.events {
		v, _ := ev.Param(ParamValue)
		assert.Equal(t, int64(i), v)
	}
	assert.Equal(t, uint64(5), r.Stats().Delivered)
	assert.ErrorIs(t, r.Start(context.Background()), ErrRelayClosed)
}

func TestRelayDropsWhenFull(t *testing.T) {
	r := NewRelay(2)
	for i := 0; i < 5; i++ {
		r.Publish(NewArgs(PropertyRemoved, "", ParamName, "x"))
	}
	stats := r.Stats()
	assert.Equal(t, 2, stats.Queued)
	assert.Equal(t, uint64(3), stats.Dropped)

	r.Close()
	r.Publish(NewArgs(PropertyRemoved, "", ParamName, "x"))
	assert.Equal(t, uint64(4), r.Stats().Dropped)
}

func TestRelayCountsSinkFailures(t *testing.T) {
	r := NewRelay(4)
	failing := &recordingSink{err: errors.New("broker down")}
	ok := &recordingSink{}
	r.AddSink(failing)
	r.AddSink(ok)
	require.NoError(t, r.Start(context.Background()))

	r.Publish(NewArgs(PropertyAdded, "dev", ParamName, "x"))
	require.Eventually(t, func() bool { return ok.count() == 1 }, time.Second, 5*time.Millisecond)
	r.Close()

	assert.Equal(t, uint64(1), r.Stats().Failed)
	assert.Equal(t, []string{"recording", "recording"}, r.Sinks())
}

func TestArgsPropertyPath(t *testing.T) {
	assert.Equal(t, "dev.child.gain", NewArgs(PropertyValueChanged, "dev.child", ParamName, "gain").PropertyPath())
	assert.Equal(t, "gain", NewArgs(PropertyValueChanged, "", ParamName, "gain").PropertyPath())
	assert.Equal(t, "dev", NewArgs(PropertyObjectUpdateEnd, "dev").PropertyPath())
}

func TestArgsMarshalJSON(t *testing.T) {
	args := NewArgs(PropertyValueChanged, "dev", ParamName, "gain", ParamValue, 2.5)
	args.Time = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := json.Marshal(args)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"event":"PropertyValueChanged","id":0,"path":"dev","time":"2024-01-02T03:04:05Z","parameters":{"Name":"gain","Value":2.5}}`,
		string(data))
}

type fakeMQTT struct {
	topic   string
	payload []byte
	qos     byte
}

func (f *fakeMQTT) Publish(topic string, payload []byte, qos byte, _ bool) error {
	f.topic, f.payload, f.qos = topic, payload, qos
	return nil
}

func TestMQTTSink(t *testing.T) {
	client := &fakeMQTT{}
	sink := NewMQTTSink(client, "propertyd/events/", 1)

	require.NoError(t, sink.Handle(context.Background(), NewArgs(PropertyValueChanged, "dev.child", ParamName, "gain", ParamValue, 3)))
	assert.Equal(t, "propertyd/events/PropertyValueChanged/dev/child/gain", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.Contains(t, string(client.payload), `"Value":3`)
}

type fakeNATS struct{ subject string }

func (f *fakeNATS) Publish(_ context.Context, subject string, _ []byte) error {
	f.subject = subject
	return nil
}

func TestNATSSink(t *testing.T) {
	client := &fakeNATS{}
	sink := NewNATSSink(client, "propertyd.events")
	require.NoError(t, sink.Handle(context.Background(), NewArgs(PropertyRemoved, "dev", ParamName, "x")))
	assert.Equal(t, "propertyd.events.PropertyRemoved.dev.x", client.subject)
}

type point struct {
	tags   map[string]string
	fields map[string]interface{}
}

type fakeWriter struct{ points []point }

func (f *fakeWriter) WritePoint(_ string, tags map[string]string, fields map[string]interface{}) {
	f.points = append(f.points, point{tags: tags, fields: fields})
}

func TestHistorySink(t *testing.T) {
	w := &fakeWriter{}
	sink := NewHistorySink(w)
	ctx := context.Background()

	require.NoError(t, sink.Handle(ctx, NewArgs(PropertyValueChanged, "dev", ParamName, "gain", ParamValue, 1.5)))
	require.NoError(t, sink.Handle(ctx, NewArgs(PropertyValueChanged, "dev", ParamName, "label", ParamValue, "text")))
	require.NoError(t, sink.Handle(ctx, NewArgs(PropertyObjectUpdateEnd, "dev",
		ParamUpdatedProperties, value.DictOf("x", 4, "label", "y"))))

	require.Len(t, w.points, 2)
	assert.Equal(t, "dev.gain", w.points[0].tags["path"])
	assert.Equal(t, 1.5, w.points[0].fields["value"])
	assert.Equal(t, "dev.x", w.points[1].tags["path"])
	assert.Equal(t, int64(4), w.points[1].fields["value"])
}
