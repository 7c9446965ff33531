package dynamodb

// Store drivers available to catalogs
import (
	_ "github.com/jugaji/presto-dynamodb/pkg/client"
	_ "github.com/jugaji/presto-dynamodb/pkg/store/badgerstore"
	_ "github.com/jugaji/presto-dynamodb/pkg/store/pebblestore"
)
