// Package attribute models items in the store's native attribute format.
//
// Values follow the DynamoDB JSON shape: every value is an object with a
// single member naming its kind, for example {"S":"abc"} or {"N":"42"}.
package attribute

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jugaji/presto-dynamodb/pkg/spi"
)

// Kind identifies which member of a Value is set
type Kind int

const (
	KindUnset Kind = iota
	KindString
	KindNumber
	KindBinary
	KindBool
	KindNull
	KindStringSet
	KindNumberSet
	KindBinarySet
	KindList
	KindMap
)

var kindNames = map[Kind]string{
	KindUnset:     "UNSET",
	KindString:    "S",
	KindNumber:    "N",
	KindBinary:    "B",
	KindBool:      "BOOL",
	KindNull:      "NULL",
	KindStringSet: "SS",
	KindNumberSet: "NS",
	KindBinarySet: "BS",
	KindList:      "L",
	KindMap:       "M",
}

// String returns the DynamoDB JSON member name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// ErrInvalidValue is returned when a value does not have exactly one member set
var ErrInvalidValue = errors.New("invalid attribute value")

// Value is a single attribute value. Exactly one member is expected to be set.
type Value struct {
	S    *string          `json:"S,omitempty"`
	N    *string          `json:"N,omitempty"`
	B    []byte           `json:"B,omitempty"`
	BOOL *bool            `json:"BOOL,omitempty"`
	NULL bool             `json:"NULL,omitempty"`
	SS   []string         `json:"SS,omitempty"`
	NS   []string         `json:"NS,omitempty"`
	BS   [][]byte         `json:"BS,omitempty"`
	L    []Value          `json:"L,omitempty"`
	M    map[string]Value `json:"M,omitempty"`
}

// String creates a string value
func String(s string) Value {
	return Value{S: &s}
}

// Number creates a number value from its decimal representation
func Number(n string) Value {
	return Value{N: &n}
}

// Int creates a number value from an integer
func Int(n int64) Value {
	return Number(strconv.FormatInt(n, 10))
}

// Float creates a number value from a float
func Float(f float64) Value {
	return Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// Bool creates a boolean value
func Bool(b bool) Value {
	return Value{BOOL: &b}
}

// Null creates a null value
func Null() Value {
	return Value{NULL: true}
}

// Binary creates a binary value
func Binary(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{B: b}
}

// StringSet creates a string set value
func StringSet(ss ...string) Value {
	return Value{SS: ss}
}

// NumberSet creates a number set value
func NumberSet(ns ...string) Value {
	return Value{NS: ns}
}

// List creates a list value
func List(values ...Value) Value {
	if values == nil {
		values = []Value{}
	}
	return Value{L: values}
}

// Map creates a map value
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{M: m}
}

// Kind reports which member of the value is set
func (v Value) Kind() Kind {
	switch {
	case v.S != nil:
		return KindString
	case v.N != nil:
		return KindNumber
	case v.B != nil:
		return KindBinary
	case v.BOOL != nil:
		return KindBool
	case v.NULL:
		return KindNull
	case v.SS != nil:
		return KindStringSet
	case v.NS != nil:
		return KindNumberSet
	case v.BS != nil:
		return KindBinarySet
	case v.L != nil:
		return KindList
	case v.M != nil:
		return KindMap
	default:
		return KindUnset
	}
}

// Text renders the value as the string form the record cursor coerces from.
// Null and unset values render as the empty string.
func (v Value) Text() string {
	switch v.Kind() {
	case KindString:
		return *v.S
	case KindNumber:
		return *v.N
	case KindBool:
		return strconv.FormatBool(*v.BOOL)
	case KindBinary:
		return base64.StdEncoding.EncodeToString(v.B)
	case KindStringSet:
		return compactJSON(v.SS)
	case KindNumberSet:
		return compactJSON(v.NS)
	case KindBinarySet:
		return compactJSON(v.BS)
	case KindList:
		return compactJSON(v.L)
	case KindMap:
		return compactJSON(v.M)
	default:
		return ""
	}
}

func compactJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// MarshalJSON emits only the member that is set, keeping empty lists and maps
func (v Value) MarshalJSON() ([]byte, error) {
	var member interface{}
	switch v.Kind() {
	case KindString:
		member = *v.S
	case KindNumber:
		member = *v.N
	case KindBinary:
		member = v.B
	case KindBool:
		member = *v.BOOL
	case KindNull:
		member = true
	case KindStringSet:
		member = v.SS
	case KindNumberSet:
		member = v.NS
	case KindBinarySet:
		member = v.BS
	case KindList:
		member = v.L
	case KindMap:
		member = v.M
	default:
		return nil, fmt.Errorf("%w: no member set", ErrInvalidValue)
	}
	return json.Marshal(map[string]interface{}{v.Kind().String(): member})
}

// UnmarshalJSON decodes a DynamoDB JSON value
func (v *Value) UnmarshalJSON(data []byte) error {
	type plain Value
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = Value(p)
	if v.Kind() == KindUnset {
		return fmt.Errorf("%w: %s", ErrInvalidValue, string(data))
	}
	return nil
}

// InferType maps a value to the column type it is read as.
// Null and unset values carry no type information.
func InferType(v Value) (spi.Type, bool) {
	switch v.Kind() {
	case KindNumber:
		if _, err := strconv.ParseInt(*v.N, 10, 64); err == nil {
			return spi.Bigint, true
		}
		return spi.Double, true
	case KindBool:
		return spi.Boolean, true
	case KindNull, KindUnset:
		return "", false
	default:
		return spi.Varchar, true
	}
}
