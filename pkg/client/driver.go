package client

import (
	"context"

	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// DriverName is the store driver name of remote table stores
const DriverName = "remote"

func init() {
	store.Register(DriverName, Open)
}

// Open connects to the table store server at dsn with default client options
func Open(dsn string, opts store.Options) (store.Store, error) {
	options := DefaultClientOptions()
	options.Endpoint = dsn
	options.Logger = opts.Logger

	c, err := NewClient(options)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}
