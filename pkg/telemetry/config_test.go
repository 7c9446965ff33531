// ABOUTME: Tests for telemetry configuration validation, environment variable loading and default values

package telemetry

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServiceName != "presto-dynamodb" {
		t.Errorf("Expected default service name 'presto-dynamodb', got '%s'", cfg.ServiceName)
	}

	if cfg.Enabled {
		t.Error("Expected telemetry to be disabled by default")
	}

	if len(cfg.Exporters) != 1 || cfg.Exporters[0] != "prometheus" {
		t.Errorf("Expected default exporters ['prometheus'], got %v", cfg.Exporters)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "" }},
		{"empty service version", func(c *Config) { c.ServiceVersion = "" }},
		{"negative sample rate", func(c *Config) { c.SampleRate = -0.1 }},
		{"sample rate above one", func(c *Config) { c.SampleRate = 1.5 }},
		{"zero export timeout", func(c *Config) { c.ExportTimeout = 0 }},
		{"zero batch timeout", func(c *Config) { c.BatchTimeout = 0 }},
		{"zero metric interval", func(c *Config) { c.MetricInterval = 0 }},
		{"zero queue size", func(c *Config) { c.MaxQueueSize = 0 }},
		{"zero batch size", func(c *Config) { c.MaxExportBatchSize = 0 }},
		{"unknown exporter", func(c *Config) { c.Exporters = []string{"jaeger"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PRESTO_DYNAMODB_TELEMETRY_ENABLED", "true")
	t.Setenv("PRESTO_DYNAMODB_TELEMETRY_SERVICE_NAME", "connector")
	t.Setenv("PRESTO_DYNAMODB_TELEMETRY_EXPORTERS", "stdout, otlp")
	t.Setenv("PRESTO_DYNAMODB_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("PRESTO_DYNAMODB_TELEMETRY_EXPORT_TIMEOUT", "10s")
	t.Setenv("PRESTO_DYNAMODB_TELEMETRY_METRIC_INTERVAL", "not-a-duration")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	if !cfg.Enabled {
		t.Error("Expected telemetry to be enabled from env")
	}
	if cfg.ServiceName != "connector" {
		t.Errorf("Expected service name from env, got %s", cfg.ServiceName)
	}
	if !cfg.HasExporter("stdout") || !cfg.HasExporter("otlp") || cfg.HasExporter("prometheus") {
		t.Errorf("Unexpected exporters: %v", cfg.Exporters)
	}
	if cfg.SampleRate != 0.5 {
		t.Errorf("Expected sample rate 0.5, got %f", cfg.SampleRate)
	}
	if cfg.ExportTimeout != 10*time.Second {
		t.Errorf("Expected export timeout 10s, got %s", cfg.ExportTimeout)
	}
	if cfg.MetricInterval != time.Minute {
		t.Errorf("Invalid duration should keep the default, got %s", cfg.MetricInterval)
	}
}
