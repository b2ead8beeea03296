package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(context.Background(), config.NATSConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := Connect(ctx, config.NATSConfig{Enabled: true, URL: "nats://127.0.0.1:1", MaxReconnects: 0})
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestUnconnectedClient(t *testing.T) {
	c := newClient(config.NATSConfig{Enabled: true})
	ctx := context.Background()

	assert.Equal(t, StatusDisconnected, c.Status())
	assert.ErrorIs(t, c.Publish(ctx, "", nil), ErrInvalidSubject)
	assert.ErrorIs(t, c.Publish(ctx, "propertyd.events", []byte("{}")), ErrNotConnected)
	assert.ErrorIs(t, c.HealthCheck(ctx), ErrNotConnected)
	require.NoError(t, c.Close())
	assert.Equal(t, StatusClosed, c.Status())
}

type recordingLogger struct{ msgs []string }

func (l *recordingLogger) Info(msg string, _ ...any) { l.msgs = append(l.msgs, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any) { l.msgs = append(l.msgs, msg) }

func TestStatusTransitions(t *testing.T) {
	logger := &recordingLogger{}
	c := newClient(config.NATSConfig{}, WithLogger(logger))
	c.setStatus(StatusConnected)

	c.handleDisconnect(nil, errors.New("eof"))
	assert.Equal(t, StatusReconnecting, c.Status())
	assert.Equal(t, "reconnecting", c.Status().String())

	c.handleClosed(nil)
	assert.Equal(t, StatusClosed, c.Status())
	c.handleDisconnect(nil, nil)
	assert.Equal(t, StatusClosed, c.Status(), "closed is terminal")
	assert.Equal(t, []string{"NATS disconnected", "NATS disconnected"}, logger.msgs)
}

func TestNATSOptions(t *testing.T) {
	c := newClient(config.NATSConfig{Token: "t", Name: "propertyd", MaxReconnects: 3, ReconnectWait: 1})
	assert.Len(t, c.natsOptions(), 10)
	assert.Len(t, newClient(config.NATSConfig{}).natsOptions(), 8)
}
