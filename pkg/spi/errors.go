package spi

import "errors"

var (
	// ErrInvalidArgument is returned for out of range field indexes and type mismatches
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIllegalState is returned when a cursor is read in the wrong state
	ErrIllegalState = errors.New("illegal state")

	// ErrUnsupported is returned by accessors a connector does not implement
	ErrUnsupported = errors.New("unsupported operation")

	// ErrNotFound is returned for unknown schemas, tables and factories
	ErrNotFound = errors.New("not found")
)
