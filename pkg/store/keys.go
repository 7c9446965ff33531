package store

const (
	descriptorTag byte = 'd'
	itemTag       byte = 't'
	separator     byte = 0x00
)

// descriptorPrefix is the prefix of every table descriptor key
func descriptorPrefix() []byte {
	return []byte{descriptorTag, separator}
}

// descriptorKey is d\x00<table>
func descriptorKey(table string) []byte {
	return append(descriptorPrefix(), table...)
}

// itemPrefix is t\x00<table>\x00
func itemPrefix(table string) []byte {
	key := make([]byte, 0, len(table)+3)
	key = append(key, itemTag, separator)
	key = append(key, table...)
	return append(key, separator)
}

// itemKey is t\x00<table>\x00<primary key>
func itemKey(table string, primaryKey []byte) []byte {
	return append(itemPrefix(table), primaryKey...)
}

// prefixUpperBound returns the smallest key greater than every key with the prefix
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
