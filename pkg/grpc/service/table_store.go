package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/store"
	"github.com/jugaji/presto-dynamodb/pkg/telemetry"
)

// DefaultMaxItemSize is the largest item PutItem accepts by default
const DefaultMaxItemSize = 400 * 1024

// TableStoreService exposes a store.Store over gRPC
type TableStoreService struct {
	store     store.Store
	logger    log.Logger
	telemetry telemetry.Telemetry

	maxItemSize int // Maximum allowed wire size of a PutItem item
}

// Option configures a TableStoreService
type Option func(*TableStoreService)

// WithLogger sets the service logger
func WithLogger(logger log.Logger) Option {
	return func(s *TableStoreService) {
		s.logger = logger
	}
}

// WithTelemetry sets the service telemetry
func WithTelemetry(tel telemetry.Telemetry) Option {
	return func(s *TableStoreService) {
		s.telemetry = tel
	}
}

// WithMaxItemSize limits the size of items accepted by PutItem
func WithMaxItemSize(size int) Option {
	return func(s *TableStoreService) {
		s.maxItemSize = size
	}
}

// NewTableStoreService creates a new TableStoreService
func NewTableStoreService(st store.Store, opts ...Option) *TableStoreService {
	s := &TableStoreService{
		store:       st,
		logger:      log.NewNop(),
		telemetry:   telemetry.NewNoop(),
		maxItemSize: DefaultMaxItemSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "service")
	return s
}

// Register registers the service with a gRPC server
func (s *TableStoreService) Register(server *grpc.Server) {
	server.RegisterService(&ServiceDesc, s)
}

// startRPC opens the span of an RPC
func (s *TableStoreService) startRPC(ctx context.Context, method string) (context.Context, trace.Span) {
	return s.telemetry.StartSpan(ctx, telemetry.SpanRPCPrefix+method,
		attribute.String(telemetry.AttrMethod, method))
}

func (s *TableStoreService) record(ctx context.Context, span trace.Span, method string, start time.Time, err error) {
	telemetry.EndSpan(span, err)

	attrs := []attribute.KeyValue{
		attribute.String(telemetry.AttrMethod, method),
		attribute.String(telemetry.AttrStatus, telemetry.Status(err)),
	}
	s.telemetry.RecordCounter(ctx, telemetry.MetricRPCRequests, 1, attrs...)
	telemetry.RecordDuration(ctx, s.telemetry, telemetry.MetricStoreDuration, start, attrs...)

	if err != nil {
		s.logger.Warn("%s failed: %v", method, err)
	}
}

// ListTables returns the names of all tables
func (s *TableStoreService) ListTables(ctx context.Context, _ *emptypb.Empty) (resp *structpb.Struct, err error) {
	ctx, span := s.startRPC(ctx, "ListTables")
	defer func(start time.Time) { s.record(ctx, span, "ListTables", start, err) }(time.Now())

	names, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, ToStatus(err)
	}

	tables := make([]interface{}, len(names))
	for i, name := range names {
		tables[i] = name
	}

	resp, err = structpb.NewStruct(map[string]interface{}{"tables": tables})
	if err != nil {
		return nil, ToStatus(err)
	}
	return resp, nil
}

// DescribeTable returns the JSON encoded descriptor of a table
func (s *TableStoreService) DescribeTable(ctx context.Context, req *structpb.Struct) (resp *wrapperspb.BytesValue, err error) {
	ctx, span := s.startRPC(ctx, "DescribeTable")
	defer func(start time.Time) { s.record(ctx, span, "DescribeTable", start, err) }(time.Now())

	table := req.GetFields()[FieldTable].GetStringValue()
	desc, err := s.store.DescribeTable(ctx, table)
	if err != nil {
		return nil, ToStatus(err)
	}

	data, err := json.Marshal(desc)
	if err != nil {
		return nil, ToStatus(err)
	}
	return wrapperspb.Bytes(data), nil
}

// CreateTable creates a table from a JSON encoded descriptor
func (s *TableStoreService) CreateTable(ctx context.Context, req *wrapperspb.BytesValue) (_ *emptypb.Empty, err error) {
	ctx, span := s.startRPC(ctx, "CreateTable")
	defer func(start time.Time) { s.record(ctx, span, "CreateTable", start, err) }(time.Now())

	var desc store.TableDescriptor
	if err := json.Unmarshal(req.GetValue(), &desc); err != nil {
		return nil, ToStatus(fmt.Errorf("%w: %v", store.ErrInvalidTable, err))
	}

	if err := s.store.CreateTable(ctx, desc); err != nil {
		return nil, ToStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// PutItem stores an item
func (s *TableStoreService) PutItem(ctx context.Context, req *structpb.Struct) (_ *emptypb.Empty, err error) {
	ctx, span := s.startRPC(ctx, "PutItem")
	defer func(start time.Time) { s.record(ctx, span, "PutItem", start, err) }(time.Now())

	table, item, err := DecodePutItemRequest(req)
	if err != nil {
		return nil, ToStatus(err)
	}

	// item size is measured on the wire encoding it arrived in
	if size := proto.Size(req.GetFields()[FieldItem]); s.maxItemSize > 0 && size > s.maxItemSize {
		return nil, ToStatus(fmt.Errorf("%w: %d bytes exceeds %d", ErrItemTooLarge, size, s.maxItemSize))
	}

	if err := s.store.PutItem(ctx, table, item); err != nil {
		return nil, ToStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Scan streams the items of a table segment
func (s *TableStoreService) Scan(req *structpb.Struct, stream grpc.ServerStream) (err error) {
	ctx, span := s.startRPC(stream.Context(), "Scan")
	defer func(start time.Time) { s.record(ctx, span, "Scan", start, err) }(time.Now())

	table, opts := DecodeScanRequest(req)
	scanner, err := s.store.Scan(ctx, table, opts)
	if err != nil {
		return ToStatus(err)
	}
	defer scanner.Close()

	if err := stream.SendHeader(metadata.Pairs(ScanReadyHeader, "true")); err != nil {
		return err
	}

	count := 0
	for scanner.Next() {
		entry, err := EncodeScanEntry(scanner.Key(), scanner.Item())
		if err != nil {
			return ToStatus(err)
		}
		if err := stream.SendMsg(entry); err != nil {
			return err
		}
		count++
	}
	if err := scanner.Error(); err != nil {
		return ToStatus(err)
	}

	s.telemetry.RecordCounter(ctx, telemetry.MetricScanItems, int64(count),
		attribute.String(telemetry.AttrTable, table),
		attribute.Int(telemetry.AttrSegment, opts.Segment),
	)
	s.logger.Debug("Streamed %d items from %s segment %d/%d", count, table, opts.Segment, opts.TotalSegments)
	return nil
}
