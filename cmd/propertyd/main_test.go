package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/schema"
)

const testSchema = `
classes:
  - name: Sensor
    properties:
      - {name: rate, type: int, default: 10, min: 1, max: 100}
      - {name: unit, type: string, default: V}
`

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunInvalidConfig(t *testing.T) {
	t.Setenv("PROPERTYD_CONFIG", "/nonexistent/propertyd.yaml")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestRunBadSchemaPath(t *testing.T) {
	dir := t.TempDir()
	cfg := fmt.Sprintf("database:\n  enabled: false\nschema:\n  paths: [%q]\napi:\n  port: %d\n",
		filepath.Join(dir, "missing"), freePort(t))
	t.Setenv("PROPERTYD_CONFIG", writeFile(t, dir, "propertyd.yaml", cfg))

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading schemas")
}

func TestLoadSchemas(t *testing.T) {
	dir := t.TempDir()
	schemas := filepath.Join(dir, "schemas")
	require.NoError(t, os.Mkdir(schemas, 0o755))
	writeFile(t, schemas, "sensor.yaml", testSchema)
	writeFile(t, schemas, "README.md", "ignored")
	extra := writeFile(t, dir, "extra.yaml", "classes:\n  - {name: Probe, parent: Sensor}\n")

	tm := schema.NewTypeManager()
	n, err := loadSchemas(tm, []string{schemas, extra})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	props, err := tm.ClassProperties("Probe")
	require.NoError(t, err)
	assert.Len(t, props, 2)

	_, err = loadSchemas(schema.NewTypeManager(), []string{writeFile(t, dir, "bad.txt", "x")})
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("PROPERTYD_CONFIG", "")
	assert.Equal(t, defaultConfigPath, getConfigPath())
	t.Setenv("PROPERTYD_CONFIG", "/etc/propertyd.yaml")
	assert.Equal(t, "/etc/propertyd.yaml", getConfigPath())
}

// startDaemon runs the daemon until the returned stop function is called.
func startDaemon(t *testing.T, base string) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	require.Eventually(t, func() bool {
		res, err := http.Get(base + "/api/v1/health")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(15 * time.Second):
			t.Fatal("run did not return after cancel")
		}
	}
}

func TestRunPersistsObjectsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "sensor.yaml", testSchema)
	port := freePort(t)
	cfg := fmt.Sprintf(`
instance:
  id: test
database:
  path: %q
schema:
  paths: [%q]
api:
  host: 127.0.0.1
  port: %d
logging:
  level: error
  output: stderr
`, filepath.Join(dir, "data", "propertyd.db"), schemaPath, port)
	t.Setenv("PROPERTYD_CONFIG", writeFile(t, dir, "propertyd.yaml", cfg))
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	stop := startDaemon(t, base)
	res, err := http.Post(base+"/api/v1/objects/", "application/json", strings.NewReader(`{"name":"s1","class":"Sensor"}`))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	req, err := http.NewRequest(http.MethodPut, base+"/api/v1/objects/s1/properties/rate", strings.NewReader(`500`))
	require.NoError(t, err)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	stop()

	stop = startDaemon(t, base)
	defer stop()
	res, err = http.Get(base + "/api/v1/objects/s1/properties/rate")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var body struct {
		Value int `json:"value"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, 100, body.Value)
}
