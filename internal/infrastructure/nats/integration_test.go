//go:build integration

package nats

import (
	"context"
	"testing"
	"time"

	gonats "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/config"
)

// Requires nats-server on 127.0.0.1:4222.
func TestIntegrationPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := Connect(ctx, config.NATSConfig{Enabled: true, URL: gonats.DefaultURL, Name: "propertyd-it", MaxReconnects: -1, ReconnectWait: 1})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.HealthCheck(ctx))

	sub, err := gonats.Connect(gonats.DefaultURL)
	require.NoError(t, err)
	defer sub.Close()
	s, err := sub.SubscribeSync("propertyd.events.>")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	require.NoError(t, c.Publish(ctx, "propertyd.events.PropertyValueChanged", []byte(`{"x":1}`)))
	msg, err := s.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(msg.Data))
}
