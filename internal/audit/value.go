package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

// Value kinds. The zero Value is absent.
const (
	KindAbsent Kind = iota
	KindNull
	KindScalar
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a payload tree attached to an audit event. Absent means "not
// provided" and is stripped before persistence; Null is a real value and is
// kept.
type Value struct {
	kind   Kind
	scalar any
	items  []Value
	fields map[string]Value
}

type missing struct{}

// Missing returns the marker FromAny converts to an absent Value. Use it in
// map literals for fields that were not provided.
func Missing() any { return missing{} }

// Absent returns the "not provided" marker.
func Absent() Value { return Value{} }

// Null returns an explicit null.
func Null() Value { return Value{kind: KindNull} }

// String returns a string scalar.
func String(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Tag is a plain string actor or target used when no structured context
// could be resolved, e.g. Tag("unknown").
func Tag(s string) Value { return String(s) }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindScalar, scalar: b} }

// Int returns an integer scalar.
func Int(i int64) Value { return Value{kind: KindScalar, scalar: i} }

// Number returns a floating point scalar.
func Number(f float64) Value { return Value{kind: KindScalar, scalar: f} }

// Array returns an array of items.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, items: items}
}

// Object returns an object of fields.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, fields: fields}
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v is the absent marker.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Field returns the named field of an object, or Absent.
func (v Value) Field(name string) Value {
	if v.kind != KindObject {
		return Absent()
	}
	return v.fields[name]
}

// Items returns the elements of an array.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.items
}

// Scalar returns the scalar payload.
func (v Value) Scalar() any { return v.scalar }

// FromAny converts decoded JSON and common Go values into a Value.
func FromAny(in any) Value {
	switch x := in.(type) {
	case Value:
		return x
	case missing:
		return Absent()
	case nil:
		return Null()
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint32:
		return Int(int64(x))
	case float32:
		return Number(float64(x))
	case float64:
		return Number(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		if f, err := x.Float64(); err == nil {
			return Number(f)
		}
		return String(x.String())
	case time.Time:
		return String(x.UTC().Format(time.RFC3339Nano))
	case []Value:
		return Array(x...)
	case []any:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			items = append(items, FromAny(item))
		}
		return Array(items...)
	case []string:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			items = append(items, String(item))
		}
		return Array(items...)
	case map[string]Value:
		return Object(x)
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			fields[k] = FromAny(item)
		}
		return Object(fields)
	case map[string]string:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			fields[k] = String(item)
		}
		return Object(fields)
	case error:
		return String(x.Error())
	case fmt.Stringer:
		return String(x.String())
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return String(fmt.Sprint(x))
		}
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return String(string(data))
		}
		return FromAny(decoded)
	}
}

// MarshalJSON encodes v. Absent object fields and array elements are
// skipped; a bare absent value encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindAbsent, KindNull:
		return []byte("null"), nil
	case KindScalar:
		return json.Marshal(v.scalar)
	case KindArray:
		out := make([]json.RawMessage, 0, len(v.items))
		for _, item := range v.items {
			if item.kind == KindAbsent {
				continue
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			out = append(out, data)
		}
		return json.Marshal(out)
	case KindObject:
		out := make(map[string]json.RawMessage, len(v.fields))
		for k, f := range v.fields {
			if f.kind == KindAbsent {
				continue
			}
			data, err := f.MarshalJSON()
			if err != nil {
				return nil, err
			}
			out[k] = data
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("audit: unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON decodes JSON into v. Decoded values never contain absent
// markers.
func (v *Value) UnmarshalJSON(data []byte) error {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*v = FromAny(decoded)
	return nil
}
