package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/config"
	"github.com/jugaji/presto-dynamodb/pkg/spi"
	"github.com/jugaji/presto-dynamodb/pkg/store"
	"github.com/jugaji/presto-dynamodb/pkg/telemetry"
)

// ConnectorName is the name catalogs use to select this connector
const ConnectorName = "dynamodb"

func init() {
	spi.Register(Factory{})
}

// Connector serves one catalog backed by a table store
type Connector struct {
	client            *Client
	metadata          *Metadata
	splitManager      *SplitManager
	recordSetProvider *RecordSetProvider
	telemetry         telemetry.Telemetry
	logger            log.Logger
}

var _ spi.Connector = (*Connector)(nil)

// NewConnector creates a connector over st. The connector owns the store.
func NewConnector(cfg *config.Config, st store.Store, opts ...ClientOption) (*Connector, error) {
	client, err := NewClient(st, cfg, opts...)
	if err != nil {
		return nil, err
	}

	metadata := NewMetadata(cfg.ConnectorID, client)
	return &Connector{
		client:            client,
		metadata:          metadata,
		splitManager:      NewSplitManager(cfg.ConnectorID, metadata, cfg.TotalSegments),
		recordSetProvider: NewRecordSetProvider(cfg.ConnectorID, client, cfg.BatchSize),
		telemetry:         client.telemetry,
		logger:            client.base.WithField("connector", cfg.ConnectorID),
	}, nil
}

func (c *Connector) Metadata() spi.Metadata {
	return c.metadata
}

func (c *Connector) SplitManager() spi.SplitManager {
	return c.splitManager
}

func (c *Connector) RecordSetProvider() spi.RecordSetProvider {
	return c.recordSetProvider
}

// DynamoMetadata returns the concrete metadata service
func (c *Connector) DynamoMetadata() *Metadata {
	return c.metadata
}

// Shutdown closes the store and flushes telemetry
func (c *Connector) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down connector")
	return errors.Join(c.client.Close(), c.telemetry.Shutdown(ctx))
}

// Factory creates dynamodb connectors from catalog properties
type Factory struct{}

var _ spi.ConnectorFactory = Factory{}

func (Factory) Name() string {
	return ConnectorName
}

// Create decodes the catalog properties, opens the configured store driver
// and builds a connector. The catalog name is the default connector id.
func (Factory) Create(catalog string, properties map[string]string) (spi.Connector, error) {
	cfg, err := config.FromProperties(properties)
	if err != nil {
		return nil, err
	}
	if _, ok := properties["connector-id"]; !ok && catalog != "" {
		cfg.ConnectorID = catalog
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.NewLogger(log.WithLevel(level)).WithField("catalog", catalog)

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	st, err := store.Open(cfg.StoreDriver, cfg.StoreDSN, store.Options{
		Compression: cfg.Compression,
		Logger:      logger,
	})
	if err != nil {
		tel.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}

	connector, err := NewConnector(cfg, st, WithLogger(logger), WithTelemetry(tel))
	if err != nil {
		st.Close()
		tel.Shutdown(context.Background())
		return nil, err
	}

	logger.Info("Created connector %s on %s store", cfg.ConnectorID, cfg.StoreDriver)
	return connector, nil
}
