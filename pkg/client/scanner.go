package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/grpc/service"
)

// streamScanner reads scan results from a server stream
type streamScanner struct {
	stream  grpc.ClientStream
	cancel  context.CancelFunc
	current service.ScanEntry
	err     error
	done    bool
	closed  bool
	pending bool // current holds an entry not yet returned by Next
}

// Next advances the scanner to the next item
func (s *streamScanner) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	if s.pending {
		s.pending = false
		return true
	}
	if s.done {
		return false
	}

	msg := new(wrapperspb.BytesValue)
	if err := s.stream.RecvMsg(msg); err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = fmt.Errorf("error receiving scan response: %w", service.FromStatus(err))
		}
		return false
	}

	entry, err := service.DecodeScanEntry(msg)
	if err != nil {
		s.done = true
		s.err = err
		return false
	}

	s.current = entry
	return true
}

// Key returns the primary key of the current item
func (s *streamScanner) Key() []byte {
	return s.current.Key
}

// Item returns the current item
func (s *streamScanner) Item() attribute.Item {
	return s.current.Item
}

// Error returns any error that occurred during iteration
func (s *streamScanner) Error() error {
	return s.err
}

// Close cancels the stream
func (s *streamScanner) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return nil
}
