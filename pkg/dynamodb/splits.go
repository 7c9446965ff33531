package dynamodb

import (
	"context"
	"fmt"

	"github.com/jugaji/presto-dynamodb/pkg/spi"
)

// SplitManager splits tables into parallel scan segments
type SplitManager struct {
	connectorID   string
	metadata      *Metadata
	totalSegments int
}

var _ spi.SplitManager = (*SplitManager)(nil)

// NewSplitManager creates a split manager producing totalSegments splits per table
func NewSplitManager(connectorID string, metadata *Metadata, totalSegments int) *SplitManager {
	if totalSegments < 1 {
		totalSegments = 1
	}
	return &SplitManager{
		connectorID:   connectorID,
		metadata:      metadata,
		totalSegments: totalSegments,
	}
}

// Splits returns one split per segment of the table
func (m *SplitManager) Splits(ctx context.Context, handle spi.TableHandle) ([]spi.Split, error) {
	th, err := m.metadata.tableHandle(handle)
	if err != nil {
		return nil, err
	}
	if th.ConnectorID != m.connectorID {
		return nil, fmt.Errorf("%w: table handle belongs to connector %q", spi.ErrInvalidArgument, th.ConnectorID)
	}
	if _, err := m.metadata.client.Table(ctx, th.SchemaName, th.TableName); err != nil {
		return nil, err
	}

	splits := make([]spi.Split, m.totalSegments)
	for segment := range splits {
		splits[segment] = Split{
			ConnectorID:   m.connectorID,
			SchemaName:    th.SchemaName,
			TableName:     th.TableName,
			Segment:       segment,
			TotalSegments: m.totalSegments,
		}
	}
	return splits, nil
}
