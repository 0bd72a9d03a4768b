package sheet

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind defines the storage type for a normalized value
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBoolean
	KindInstant
	KindTextList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindInstant:
		return "instant"
	case KindTextList:
		return "text_list"
	}
	return "unknown"
}

// Value is a normalized cell value held by a Record
type Value struct {
	kind    Kind
	text    string
	number  float64
	boolean bool
	instant time.Time
	list    []string
}

// Null creates a null value
func Null() Value { return Value{} }

// Text creates a text value. Empty text stays text, not null.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number creates a numeric value
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// Bool creates a boolean value
func Bool(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// Instant creates a timestamp value
func Instant(t time.Time) Value { return Value{kind: KindInstant, instant: t} }

// List creates a text list value; a nil slice is stored as empty
func List(items []string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{kind: KindTextList, list: items}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsText() bool   { return v.kind == KindText }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsInstant() bool {
	return v.kind == KindInstant
}

// AsText returns the text payload and whether the value is text
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsNumber returns the numeric payload and whether the value is numeric
func (v Value) AsNumber() (float64, bool) { return v.number, v.kind == KindNumber }

// AsBool returns the boolean payload and whether the value is boolean
func (v Value) AsBool() (bool, bool) { return v.boolean, v.kind == KindBoolean }

// AsInstant returns the timestamp payload and whether the value is a timestamp
func (v Value) AsInstant() (time.Time, bool) { return v.instant, v.kind == KindInstant }

// AsList returns the list payload and whether the value is a text list
func (v Value) AsList() ([]string, bool) { return v.list, v.kind == KindTextList }

// IsEmpty reports null or empty text
func (v Value) IsEmpty() bool {
	return v.kind == KindNull || (v.kind == KindText && v.text == "")
}

// Any returns the plain Go value: nil, string, float64, bool, time.Time or []string
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.number
	case KindBoolean:
		return v.boolean
	case KindInstant:
		return v.instant
	case KindTextList:
		return v.list
	}
	return nil
}

// String returns a display form of the value
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindInstant:
		return v.instant.Format(time.RFC3339Nano)
	case KindTextList:
		return strings.Join(v.list, ",")
	}
	return ""
}

// Equal compares kind and payload; instants compare by instant, not location
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.number == o.number
	case KindBoolean:
		return v.boolean == o.boolean
	case KindInstant:
		return v.instant.Equal(o.instant)
	case KindTextList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
	}
	return true
}

// MarshalJSON encodes the plain value
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// ValueOf converts a plain Go value into a Value. Unsupported types become null.
func ValueOf(x any) Value {
	switch v := x.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case string:
		return Text(v)
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case bool:
		return Bool(v)
	case time.Time:
		return Instant(v)
	case []string:
		return List(v)
	}
	return Null()
}
