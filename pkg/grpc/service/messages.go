package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// Request fields of the struct messages
const (
	FieldTable         = "table"
	FieldTables        = "tables"
	FieldItem          = "item"
	FieldSegment       = "segment"
	FieldTotalSegments = "total_segments"
	FieldLimit         = "limit"
)

// ScanReadyHeader is sent once a scan has been opened, before any item
const ScanReadyHeader = "x-scan-ready"

// ErrItemTooLarge is returned when an item exceeds the maximum item size
var ErrItemTooLarge = errors.New("item too large")

// ErrInvalidRequest is returned for malformed requests
var ErrInvalidRequest = errors.New("invalid request")

// ScanEntry is one streamed scan result
type ScanEntry struct {
	Key  []byte         `json:"key"`
	Item attribute.Item `json:"item"`
}

// EncodePutItemRequest builds a PutItem request
func EncodePutItemRequest(table string, item attribute.Item) (*structpb.Struct, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	itemStruct, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTable: structpb.NewStringValue(table),
		FieldItem:  structpb.NewStructValue(itemStruct),
	}}, nil
}

// DecodePutItemRequest extracts the table and item of a PutItem request
func DecodePutItemRequest(req *structpb.Struct) (string, attribute.Item, error) {
	table := req.GetFields()[FieldTable].GetStringValue()
	itemStruct := req.GetFields()[FieldItem].GetStructValue()
	if itemStruct == nil {
		return "", nil, fmt.Errorf("%w: missing item", ErrInvalidRequest)
	}

	data, err := json.Marshal(itemStruct.AsMap())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	item, err := attribute.ParseItem(data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return table, item, nil
}

// EncodeScanRequest builds a Scan request
func EncodeScanRequest(table string, opts store.ScanOptions) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTable:         structpb.NewStringValue(table),
		FieldSegment:       structpb.NewNumberValue(float64(opts.Segment)),
		FieldTotalSegments: structpb.NewNumberValue(float64(opts.TotalSegments)),
		FieldLimit:         structpb.NewNumberValue(float64(opts.Limit)),
	}}
}

// DecodeScanRequest extracts the table and options of a Scan request
func DecodeScanRequest(req *structpb.Struct) (string, store.ScanOptions) {
	fields := req.GetFields()
	return fields[FieldTable].GetStringValue(), store.ScanOptions{
		Segment:       int(fields[FieldSegment].GetNumberValue()),
		TotalSegments: int(fields[FieldTotalSegments].GetNumberValue()),
		Limit:         int(fields[FieldLimit].GetNumberValue()),
	}
}

// TableRequest builds a request naming a single table
func TableRequest(table string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTable: structpb.NewStringValue(table),
	}}
}

// EncodeScanEntry encodes a scan result
func EncodeScanEntry(key []byte, item attribute.Item) (*wrapperspb.BytesValue, error) {
	data, err := json.Marshal(ScanEntry{Key: key, Item: item})
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(data), nil
}

// DecodeScanEntry decodes a scan result
func DecodeScanEntry(msg *wrapperspb.BytesValue) (ScanEntry, error) {
	var entry ScanEntry
	if err := json.Unmarshal(msg.GetValue(), &entry); err != nil {
		return ScanEntry{}, fmt.Errorf("%w: %v", attribute.ErrCorruptItem, err)
	}
	return entry, nil
}
