package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service settings, populated from environment variables
// and an optional YAML file named by CONFIG_FILE.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Input files. Relative paths are resolved against DataDir.
	DataDir         string
	DamFile         string
	GroundwaterFile string
	TransferFile    string
	WastewaterFile  string
	SchemaFile      string
	ReloadInterval  time.Duration

	MaxUploadBytes     int64
	ShapefileCacheSize int

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxCountry   string
}

var defaults = map[string]any{
	"http_addr":            ":8080",
	"log_level":            "info",
	"log_format":           "json",
	"shutdown_timeout":     "10s",
	"data_dir":             "data",
	"dam_file":             "Dam_6Apr25.txt",
	"gw_file":              "GW_6Apr25.txt",
	"transfer_file":        "Transfer_Data.txt",
	"wastewater_file":      "Wastewater_Data.txt",
	"schema_file":          "",
	"reload_interval":      "30s",
	"max_upload_bytes":     "52428800",
	"shapefile_cache_size": "8",
	"kafka_enabled":        "false",
	"kafka_brokers":        "localhost:9092",
	"kafka_topic":          "water-use-records",
	"mapbox_token":         "",
	"mapbox_enabled":       "",
	"mapbox_timeout":       "5s",
	"mapbox_cache_size":    "1000",
	"mapbox_country":       "ir",
}

// Load reads configuration from environment variables, applying defaults where unset.
// Precedence: env > CONFIG_FILE > defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
	}

	shutdownTimeout, err := parsePositiveDuration(v, "shutdown_timeout")
	if err != nil {
		return nil, err
	}
	reloadInterval, err := parsePositiveDuration(v, "reload_interval")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration(v, "mapbox_timeout")
	if err != nil {
		return nil, err
	}
	maxUpload, err := parsePositiveInt(v, "max_upload_bytes")
	if err != nil {
		return nil, err
	}
	shapefileCache, err := parsePositiveInt(v, "shapefile_cache_size")
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool(v, "kafka_enabled")
	if err != nil {
		return nil, err
	}

	mapboxToken := v.GetString("mapbox_token")
	mapboxEnabled := mapboxToken != ""
	if s := v.GetString("mapbox_enabled"); s != "" {
		mapboxEnabled = s == "true"
	}

	dataDir := v.GetString("data_dir")
	cfg := &Config{
		HTTPAddr:        v.GetString("http_addr"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:         dataDir,
		DamFile:         resolve(dataDir, v.GetString("dam_file")),
		GroundwaterFile: resolve(dataDir, v.GetString("gw_file")),
		TransferFile:    resolve(dataDir, v.GetString("transfer_file")),
		WastewaterFile:  resolve(dataDir, v.GetString("wastewater_file")),
		SchemaFile:      v.GetString("schema_file"),
		ReloadInterval:  reloadInterval,

		MaxUploadBytes:     int64(maxUpload),
		ShapefileCacheSize: shapefileCache,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: parseBrokers(v.GetString("kafka_brokers")),
		KafkaTopic:   v.GetString("kafka_topic"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(v),
		MapboxCountry:   v.GetString("mapbox_country"),
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// Paths returns the input file paths keyed by source schema name.
func (c *Config) Paths() map[string]string {
	return map[string]string{
		"dam":         c.DamFile,
		"groundwater": c.GroundwaterFile,
		"transfer":    c.TransferFile,
		"wastewater":  c.WastewaterFile,
	}
}

func envName(key string) string { return strings.ToUpper(key) }

func parsePositiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", envName(key))
	}
	return d, nil
}

func parsePositiveInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(v.GetString(key))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", envName(key))
	}
	return n, nil
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	b, err := strconv.ParseBool(v.GetString(key))
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", envName(key))
	}
	return b, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseMapboxCacheSize(v *viper.Viper) int {
	if n, err := strconv.Atoi(v.GetString("mapbox_cache_size")); err == nil && n > 0 {
		return n
	}
	return 1000
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
