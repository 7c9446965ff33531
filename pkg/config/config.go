package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/telemetry"
)

const (
	DefaultConnectorID      = "dynamodb"
	DefaultSchemaName       = "default"
	DefaultTotalSegments    = 4
	DefaultBatchSize        = 100
	DefaultSampleSize       = 100
	DefaultMetadataCacheTTL = time.Minute

	// EnvPrefix prefixes environment overrides of file configuration
	EnvPrefix = "PRESTO_DYNAMODB"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the connector configuration. Catalog properties use the
// mapstructure keys; nested telemetry keys are written as "telemetry.<key>".
type Config struct {
	ConnectorID string `json:"connector_id" mapstructure:"connector-id"`

	// Store configuration
	StoreDriver string                `json:"store_driver" mapstructure:"store-driver"`
	StoreDSN    string                `json:"store_dsn" mapstructure:"store-dsn"`
	Compression attribute.Compression `json:"compression" mapstructure:"compression"`

	// Metadata configuration
	SchemaName       string        `json:"schema_name" mapstructure:"schema-name"`
	SampleSize       int           `json:"sample_size" mapstructure:"sample-size"`
	MetadataCacheTTL time.Duration `json:"metadata_cache_ttl" mapstructure:"metadata-cache-ttl"`

	// Scan configuration
	TotalSegments int `json:"total_segments" mapstructure:"total-segments"`
	BatchSize     int `json:"batch_size" mapstructure:"batch-size"`

	LogLevel  string           `json:"log_level" mapstructure:"log-level"`
	Telemetry telemetry.Config `json:"telemetry" mapstructure:"telemetry"`
}

// NewDefaultConfig creates a Config with recommended default values
func NewDefaultConfig() *Config {
	return &Config{
		ConnectorID: DefaultConnectorID,

		StoreDriver: "badger",
		StoreDSN:    ":memory:",
		Compression: attribute.CompressionNone,

		SchemaName:       DefaultSchemaName,
		SampleSize:       DefaultSampleSize,
		MetadataCacheTTL: DefaultMetadataCacheTTL,

		TotalSegments: DefaultTotalSegments,
		BatchSize:     DefaultBatchSize,

		LogLevel:  "info",
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ConnectorID == "" {
		return fmt.Errorf("%w: connector id not specified", ErrInvalidConfig)
	}

	if c.StoreDriver == "" {
		return fmt.Errorf("%w: store driver not specified", ErrInvalidConfig)
	}

	if c.StoreDSN == "" {
		return fmt.Errorf("%w: store dsn not specified", ErrInvalidConfig)
	}

	switch c.Compression {
	case "", attribute.CompressionNone, attribute.CompressionZstd:
	default:
		return fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, c.Compression)
	}

	if c.SchemaName == "" {
		return fmt.Errorf("%w: schema name not specified", ErrInvalidConfig)
	}

	if c.SampleSize <= 0 {
		return fmt.Errorf("%w: sample size must be positive", ErrInvalidConfig)
	}

	if c.MetadataCacheTTL < 0 {
		return fmt.Errorf("%w: metadata cache ttl must not be negative", ErrInvalidConfig)
	}

	if c.TotalSegments <= 0 {
		return fmt.Errorf("%w: total segments must be positive", ErrInvalidConfig)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %v", ErrInvalidConfig, err)
	}

	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// FromProperties builds a validated Config from catalog properties,
// starting from the defaults
func FromProperties(properties map[string]string) (*Config, error) {
	cfg := NewDefaultConfig()

	input := make(map[string]interface{})
	nested := make(map[string]map[string]interface{})
	for key, value := range properties {
		key = strings.ToLower(strings.TrimSpace(key))
		if section, name, ok := strings.Cut(key, "."); ok {
			if nested[section] == nil {
				nested[section] = make(map[string]interface{})
			}
			nested[section][name] = value
			continue
		}
		input[key] = value
	}
	for section, values := range nested {
		input[section] = values
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook(),
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(md.Unused) > 0 {
		return nil, fmt.Errorf("%w: unknown properties %s", ErrInvalidConfig, strings.Join(md.Unused, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file (properties, yaml, json or toml),
// applies PRESTO_DYNAMODB_* environment overrides and validates the result
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if strings.EqualFold(filepath.Ext(path), ".properties") {
		v.SetConfigType("properties")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v, NewDefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key with viper so environment overrides apply
// to keys missing from the file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("connector-id", cfg.ConnectorID)
	v.SetDefault("store-driver", cfg.StoreDriver)
	v.SetDefault("store-dsn", cfg.StoreDSN)
	v.SetDefault("compression", string(cfg.Compression))
	v.SetDefault("schema-name", cfg.SchemaName)
	v.SetDefault("sample-size", cfg.SampleSize)
	v.SetDefault("metadata-cache-ttl", cfg.MetadataCacheTTL)
	v.SetDefault("total-segments", cfg.TotalSegments)
	v.SetDefault("batch-size", cfg.BatchSize)
	v.SetDefault("log-level", cfg.LogLevel)

	t := cfg.Telemetry
	v.SetDefault("telemetry.service-name", t.ServiceName)
	v.SetDefault("telemetry.service-version", t.ServiceVersion)
	v.SetDefault("telemetry.enabled", t.Enabled)
	v.SetDefault("telemetry.exporters", t.Exporters)
	v.SetDefault("telemetry.sample-rate", t.SampleRate)
	v.SetDefault("telemetry.otlp-endpoint", t.OTLPEndpoint)
	v.SetDefault("telemetry.export-timeout", t.ExportTimeout)
	v.SetDefault("telemetry.batch-timeout", t.BatchTimeout)
	v.SetDefault("telemetry.metric-interval", t.MetricInterval)
	v.SetDefault("telemetry.max-queue-size", t.MaxQueueSize)
	v.SetDefault("telemetry.max-export-batch-size", t.MaxExportBatchSize)
}

// Properties renders the configuration as catalog properties
func (c *Config) Properties() map[string]string {
	return map[string]string{
		"connector-id":        c.ConnectorID,
		"store-driver":        c.StoreDriver,
		"store-dsn":           c.StoreDSN,
		"compression":         string(c.Compression),
		"schema-name":         c.SchemaName,
		"sample-size":         fmt.Sprint(c.SampleSize),
		"metadata-cache-ttl":  c.MetadataCacheTTL.String(),
		"total-segments":      fmt.Sprint(c.TotalSegments),
		"batch-size":          fmt.Sprint(c.BatchSize),
		"log-level":           c.LogLevel,
		"telemetry.enabled":   fmt.Sprint(c.Telemetry.Enabled),
		"telemetry.exporters": strings.Join(c.Telemetry.Exporters, ","),
	}
}
