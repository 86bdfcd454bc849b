package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "Dam_6Apr25.txt"), cfg.DamFile)
	assert.Equal(t, filepath.Join("data", "GW_6Apr25.txt"), cfg.GroundwaterFile)
	assert.Equal(t, filepath.Join("data", "Transfer_Data.txt"), cfg.TransferFile)
	assert.Equal(t, filepath.Join("data", "Wastewater_Data.txt"), cfg.WastewaterFile)
	assert.Empty(t, cfg.SchemaFile)
	assert.Equal(t, 30*time.Second, cfg.ReloadInterval)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 8, cfg.ShapefileCacheSize)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "water-use-records", cfg.KafkaTopic)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.Equal(t, "ir", cfg.MapboxCountry)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_DIR", "/srv/water")
	t.Setenv("DAM_FILE", "dams.csv")
	t.Setenv("GW_FILE", "/abs/gw.csv")
	t.Setenv("RELOAD_INTERVAL", "1m")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, filepath.Join("/srv/water", "dams.csv"), cfg.DamFile)
	assert.Equal(t, "/abs/gw.csv", cfg.GroundwaterFile)
	assert.Equal(t, time.Minute, cfg.ReloadInterval)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":7070\"\nreload_interval: 5s\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RELOAD_INTERVAL", "7s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, 7*time.Second, cfg.ReloadInterval, "env wins over file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG_FILE")
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"SHUTDOWN_TIMEOUT":     "not-a-duration",
		"RELOAD_INTERVAL":      "-1s",
		"MAPBOX_TIMEOUT":       "bad",
		"MAX_UPLOAD_BYTES":     "0",
		"SHAPEFILE_CACHE_SIZE": "many",
		"KAFKA_ENABLED":        "maybe",
	}
	for env, value := range cases {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), env)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestConfig_Paths(t *testing.T) {
	cfg := &Config{DamFile: "d", GroundwaterFile: "g", TransferFile: "t", WastewaterFile: "w"}
	assert.Equal(t, map[string]string{"dam": "d", "groundwater": "g", "transfer": "t", "wastewater": "w"}, cfg.Paths())
}
