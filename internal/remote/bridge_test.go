package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/audit"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/mqtt"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/registry"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/store"
)

type fakeSubscriber struct {
	topic   string
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.topic, f.handler = topic, handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topic string) error {
	if topic == f.topic {
		f.topic, f.handler = "", nil
	}
	return nil
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	tm := schema.NewTypeManager()
	c, err := schema.NewClass("Device", "",
		property.Int("rate", 100, property.WithMin(1), property.WithMax(1000)),
		property.String("serial", "sn-1", property.WithReadOnly(true)),
	)
	require.NoError(t, err)
	require.NoError(t, tm.AddType(c))
	reg := registry.New(store.NewMemoryRepository(), tm)
	_, err = reg.Create(context.Background(), "dev", "Device")
	require.NoError(t, err)
	return reg
}

func TestBridgeAppliesWrites(t *testing.T) {
	reg := newRegistry(t)
	var results []string
	b := NewBridge("propertyd", reg, WithObserver(func(r string) { results = append(results, r) }))

	sub := &fakeSubscriber{}
	require.NoError(t, b.Start(sub, 1))
	assert.Equal(t, "propertyd/set/#", sub.topic)

	require.NoError(t, sub.handler("propertyd/set/dev/rate", []byte(`5000`)))
	e, err := reg.Lookup("dev")
	require.NoError(t, err)
	rate, err := e.Object.GetPropertyValue("rate")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rate)

	require.NoError(t, sub.handler("propertyd/set/"+e.ID+"/rate", []byte(`1000`)), "same value by id")

	assert.ErrorIs(t, sub.handler("propertyd/set/dev/serial", []byte(`"x"`)), status.ErrAccessDenied)
	assert.ErrorIs(t, sub.handler("propertyd/set/nobody/rate", []byte(`1`)), registry.ErrObjectNotFound)
	assert.ErrorIs(t, sub.handler("propertyd/set/dev", []byte(`1`)), ErrBadTopic)
	assert.Error(t, sub.handler("propertyd/set/dev/rate", []byte(`{oops`)))

	assert.Equal(t, []string{ResultApplied, ResultIgnored, ResultRejected, ResultRejected, ResultRejected, ResultRejected}, results)

	require.NoError(t, b.Stop(sub))
	assert.Empty(t, sub.topic)
}

func TestBridgeStartError(t *testing.T) {
	b := NewBridge("propertyd", newRegistry(t))
	err := b.Start(&fakeSubscriber{err: mqtt.ErrNotConnected}, 1)
	assert.True(t, errors.Is(err, mqtt.ErrNotConnected))
}

func TestBridgeRecordsAppliedWrites(t *testing.T) {
	reg := newRegistry(t)
	trail := audit.NewMemoryRepository()
	b := NewBridge("propertyd", reg, WithAuditRecorder(trail))

	require.NoError(t, b.Handle("propertyd/set/dev/rate", []byte(`7`)))
	require.NoError(t, b.Handle("propertyd/set/dev/rate", []byte(`7`)))
	require.Error(t, b.Handle("propertyd/set/dev/serial", []byte(`"x"`)))

	res, err := trail.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total, "only applied writes are recorded")
	got := res.Entries[0]
	assert.Equal(t, audit.ActionSet, got.Action)
	assert.Equal(t, audit.SourceMQTT, got.Source)
	assert.Equal(t, "dev", got.ObjectName)
	assert.Equal(t, "rate", got.Path)
	assert.Equal(t, "7", got.Details["value"])
}
