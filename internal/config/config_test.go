package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Inventory.Timeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9090"
store:
  driver: postgres
  postgres_url: postgres://file
kafka:
  brokers: [file:9092]
inventory:
  timeout: 2s
`), 0o600))

	cfg, err := load(path, env(map[string]string{
		"PG_URL":            "postgres://env",
		"KAFKA_BROKERS":     "a:9092, b:9092",
		"INVENTORY_TIMEOUT": "750ms",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://env", cfg.Store.PostgresURL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "inventory.deleted", cfg.Kafka.Topic)
	assert.Equal(t, 750*time.Millisecond, cfg.Inventory.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed"), 0o600))
	_, err = load(path, env(nil))
	assert.ErrorContains(t, err, "parsing")

	_, err = load("", env(map[string]string{"INVENTORY_TIMEOUT": "soon"}))
	assert.ErrorContains(t, err, "INVENTORY_TIMEOUT")

	_, err = load("", env(map[string]string{"STORE_DRIVER": "mysql"}))
	assert.ErrorContains(t, err, "mysql_dsn")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "sqlite"
	cfg.Inventory.Timeout = 0
	cfg.Kafka.Brokers = []string{"k:9092"}
	cfg.Kafka.Topic = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "store.driver")
	assert.ErrorContains(t, err, "inventory.timeout")
	assert.ErrorContains(t, err, "kafka.topic")
}
