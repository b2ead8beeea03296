package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "propertyd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
instance:
  id: "lab-1"
database:
  path: "/tmp/objects.db"
schema:
  paths: ["./schemas", "./extra.cue"]
mqtt:
  enabled: true
  broker:
    host: "broker.local"
  qos: 2
api:
  port: 9090
security:
  auth_enabled: true
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "lab-1", cfg.Instance.ID)
	assert.Equal(t, "/tmp/objects.db", cfg.Database.Path)
	assert.True(t, cfg.Database.WALMode, "default kept")
	assert.Equal(t, []string{"./schemas", "./extra.cue"}, cfg.Schema.Paths)
	assert.Equal(t, "broker.local", cfg.MQTT.Broker.Host)
	assert.Equal(t, 1883, cfg.MQTT.Broker.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.API.Address())
	assert.Equal(t, 30*time.Second, cfg.API.ReadTimeout())
	assert.Equal(t, 1024, cfg.Relay.QueueSize)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("/nonexistent/propertyd.yaml")
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "invalid: [yaml: content"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing instance", func(c *Config) { c.Instance.ID = "" }, "instance.id"},
		{"database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"database disabled", func(c *Config) { c.Database.Enabled, c.Database.Path = false, "" }, ""},
		{"bad qos", func(c *Config) { c.MQTT.Enabled, c.MQTT.QoS = true, 3 }, "mqtt.qos"},
		{"bad qos ignored when disabled", func(c *Config) { c.MQTT.QoS = 3 }, ""},
		{"nats url", func(c *Config) { c.NATS.Enabled, c.NATS.URL = true, "" }, "nats.url"},
		{"influx bucket", func(c *Config) { c.InfluxDB.Enabled, c.InfluxDB.URL = true, "http://x" }, "influxdb.url"},
		{"bad port", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"auth without secret", func(c *Config) { c.Security.AuthEnabled = true }, "security.jwt.secret is required"},
		{"short secret", func(c *Config) { c.Security.AuthEnabled, c.Security.JWT.Secret = true, "short" }, "at least 32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PROPERTYD_DATABASE_PATH", "/var/lib/propertyd/objects.db")
	t.Setenv("PROPERTYD_API_PORT", "7070")
	t.Setenv("PROPERTYD_NATS_ENABLED", "true")
	t.Setenv("PROPERTYD_JWT_SECRET", "from-env-secret-with-enough-length!!")
	t.Setenv("PROPERTYD_SCHEMA_PATHS", "a"+string(os.PathListSeparator)+"b")
	t.Setenv("PROPERTYD_MQTT_PORT", "not-a-number")

	cfg, err := Load(writeConfig(t, "instance:\n  id: env\n"))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/propertyd/objects.db", cfg.Database.Path)
	assert.Equal(t, 7070, cfg.API.Port)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "from-env-secret-with-enough-length!!", cfg.Security.JWT.Secret)
	assert.Equal(t, []string{"a", "b"}, cfg.Schema.Paths)
	assert.Equal(t, 1883, cfg.MQTT.Broker.Port)
}
