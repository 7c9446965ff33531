package attribute

import (
	"encoding/json"
	"fmt"
)

// Item is a single record of the store: attribute name to value
type Item map[string]Value

// KeyBytes returns the bytes of the named key attribute.
// Only string, number and binary attributes can serve as keys.
func (it Item) KeyBytes(attr string) ([]byte, error) {
	v, ok := it[attr]
	if !ok {
		return nil, fmt.Errorf("%w: key attribute %q missing", ErrInvalidValue, attr)
	}

	switch v.Kind() {
	case KindString:
		return []byte(*v.S), nil
	case KindNumber:
		return []byte(*v.N), nil
	case KindBinary:
		return v.B, nil
	default:
		return nil, fmt.Errorf("%w: key attribute %q has kind %s", ErrInvalidValue, attr, v.Kind())
	}
}

// ParseItem decodes an item from DynamoDB JSON
func ParseItem(data []byte) (Item, error) {
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to parse item: %w", err)
	}
	return item, nil
}
