package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.SchemaName != "default" {
		t.Errorf("expected schema name default, got %s", cfg.SchemaName)
	}
	if cfg.TotalSegments != 4 {
		t.Errorf("expected 4 total segments, got %d", cfg.TotalSegments)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("expected batch size 100, got %d", cfg.BatchSize)
	}
	if cfg.MetadataCacheTTL != time.Minute {
		t.Errorf("expected metadata cache ttl 1m, got %s", cfg.MetadataCacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{
			name:     "empty connector id",
			mutate:   func(c *Config) { c.ConnectorID = "" },
			expected: "invalid configuration: connector id not specified",
		},
		{
			name:     "empty driver",
			mutate:   func(c *Config) { c.StoreDriver = "" },
			expected: "invalid configuration: store driver not specified",
		},
		{
			name:     "unknown compression",
			mutate:   func(c *Config) { c.Compression = "lz4" },
			expected: `invalid configuration: unknown compression "lz4"`,
		},
		{
			name:     "zero segments",
			mutate:   func(c *Config) { c.TotalSegments = 0 },
			expected: "invalid configuration: total segments must be positive",
		},
		{
			name:     "zero batch size",
			mutate:   func(c *Config) { c.BatchSize = 0 },
			expected: "invalid configuration: batch size must be positive",
		},
		{
			name:     "negative ttl",
			mutate:   func(c *Config) { c.MetadataCacheTTL = -time.Second },
			expected: "invalid configuration: metadata cache ttl must not be negative",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.LogLevel = "loud" },
			expected: `invalid configuration: unknown log level "loud"`,
		},
		{
			name:     "bad exporter",
			mutate:   func(c *Config) { c.Telemetry.Exporters = []string{"carrier-pigeon"} },
			expected: "invalid configuration: telemetry: invalid exporter: carrier-pigeon, valid options are: prometheus, otlp, stdout",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if err.Error() != tc.expected {
				t.Errorf("expected error %q, got %q", tc.expected, err.Error())
			}
		})
	}
}

func TestFromProperties(t *testing.T) {
	cfg, err := FromProperties(map[string]string{
		"connector-id":        "ddb",
		"store-driver":        "pebble",
		"store-dsn":           "/var/lib/ddb",
		"compression":         "zstd",
		"total-segments":      "8",
		"batch-size":          "250",
		"metadata-cache-ttl":  "30s",
		"Telemetry.Enabled":   "true",
		"telemetry.exporters": "prometheus,stdout",
	})
	if err != nil {
		t.Fatalf("FromProperties failed: %v", err)
	}

	want := NewDefaultConfig()
	want.ConnectorID = "ddb"
	want.StoreDriver = "pebble"
	want.StoreDSN = "/var/lib/ddb"
	want.Compression = attribute.CompressionZstd
	want.TotalSegments = 8
	want.BatchSize = 250
	want.MetadataCacheTTL = 30 * time.Second
	want.Telemetry.Enabled = true
	want.Telemetry.Exporters = []string{"prometheus", "stdout"}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromPropertiesErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown key":    {"bogus": "1"},
		"not a number":   {"batch-size": "many"},
		"bad duration":   {"metadata-cache-ttl": "soon"},
		"invalid config": {"total-segments": "0"},
	}

	for name, props := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromProperties(props); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestPropertiesRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.StoreDriver = "remote"
	cfg.StoreDSN = "localhost:50051"

	back, err := FromProperties(cfg.Properties())
	if err != nil {
		t.Fatalf("FromProperties failed: %v", err)
	}
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "connector.yaml")
	yamlData := `
store-driver: pebble
store-dsn: /data/pebble
batch-size: 50
metadata-cache-ttl: 2m
telemetry:
  enabled: true
  exporters: [stdout]
`
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("PRESTO_DYNAMODB_TOTAL_SEGMENTS", "16")

	cfg, err := LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.StoreDriver != "pebble" || cfg.StoreDSN != "/data/pebble" {
		t.Errorf("unexpected store settings %s %s", cfg.StoreDriver, cfg.StoreDSN)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("expected batch size 50, got %d", cfg.BatchSize)
	}
	if cfg.MetadataCacheTTL != 2*time.Minute {
		t.Errorf("expected ttl 2m, got %s", cfg.MetadataCacheTTL)
	}
	if cfg.TotalSegments != 16 {
		t.Errorf("expected env override of total segments to 16, got %d", cfg.TotalSegments)
	}
	if !cfg.Telemetry.Enabled || len(cfg.Telemetry.Exporters) != 1 || cfg.Telemetry.Exporters[0] != "stdout" {
		t.Errorf("unexpected telemetry config %+v", cfg.Telemetry)
	}
	if cfg.SchemaName != DefaultSchemaName {
		t.Errorf("expected default schema name, got %s", cfg.SchemaName)
	}
}

func TestLoadFileProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dynamodb.properties")
	data := "store-driver=badger\nstore-dsn=/data/badger\nschema-name=prod\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.SchemaName != "prod" || cfg.StoreDSN != "/data/badger" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
