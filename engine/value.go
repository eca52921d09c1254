package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindRecord
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	default:
		return "null"
	}
}

// Value is a binding value whose shape is decided once, when it enters the
// engine. Scalars are kept in their rendered string form.
type Value struct {
	kind   Kind
	scalar string
	fields []Field
	items  []Value
}

// Field is a named member of a Record, or a keyed element during iteration.
type Field struct {
	Key   string
	Value Value
}

// Null is the absent value.
var Null = Value{}

// Scalar wraps an already rendered scalar.
func Scalar(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Record builds a record from fields, kept in the given order.
func Record(fields ...Field) Value { return Value{kind: KindRecord, fields: fields} }

// Sequence builds an ordered sequence.
func Sequence(items ...Value) Value { return Value{kind: KindSequence, items: items} }

func (v Value) Kind() Kind { return v.kind }

// Scalar returns the string form of a scalar value.
func (v Value) Scalar() (string, bool) {
	return v.scalar, v.kind == KindScalar
}

// Fields returns the members of a record.
func (v Value) Fields() []Field { return v.fields }

// Field looks up a direct member of a record.
func (v Value) Field(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null, false
}

func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindRecord:
		parts := make([]string, len(v.fields))
		for i, f := range v.fields {
			parts[i] = f.Key + ":" + f.Value.String()
		}
		return "{" + strings.Join(parts, " ") + "}"
	case KindSequence:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return "null"
	}
}

// Flatten turns a record into dot-joined leaf paths, depth first in field
// order. Sequence members contribute their index as a path segment.
// Flattening a non-record yields nothing.
func (v Value) Flatten() []Field {
	if v.kind != KindRecord {
		return nil
	}
	var out []Field
	flatten(v, nil, &out)
	return out
}

func flatten(v Value, path []string, out *[]Field) {
	switch v.kind {
	case KindRecord:
		for _, f := range v.fields {
			flatten(f.Value, append(path, f.Key), out)
		}
	case KindSequence:
		for i, it := range v.items {
			flatten(it, append(path, strconv.Itoa(i)), out)
		}
	default:
		*out = append(*out, Field{Key: strings.Join(path, "."), Value: v})
	}
}

// Elements returns the keyed members to iterate over: indexes for a
// sequence, field names for a record, a single "0" entry for a scalar and
// nothing for null.
func (v Value) Elements() []Field {
	switch v.kind {
	case KindSequence:
		out := make([]Field, len(v.items))
		for i, it := range v.items {
			out[i] = Field{Key: strconv.Itoa(i), Value: it}
		}
		return out
	case KindRecord:
		return v.fields
	case KindScalar:
		return []Field{{Key: "0", Value: v}}
	default:
		return nil
	}
}

// ValueOf converts a Go value into a Value. Maps with string keys and
// structs become records (map keys sorted, struct fields in declaration
// order, honouring json tag names), slices and arrays become sequences,
// numbers, booleans, strings and fmt.Stringers become scalars. Anything
// else, including nil, is Null.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case Value:
		return t
	case string:
		return Scalar(t)
	case bool:
		return Scalar(strconv.FormatBool(t))
	case json.Number:
		return Scalar(t.String())
	case float64:
		return Scalar(formatFloat(t, 64))
	case float32:
		return Scalar(formatFloat(float64(t), 32))
	case int:
		return Scalar(strconv.Itoa(t))
	case int64:
		return Scalar(strconv.FormatInt(t, 10))
	case map[string]any:
		if t == nil {
			return Null
		}
		return recordFromMap(t)
	case []any:
		if t == nil {
			return Null
		}
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = ValueOf(it)
		}
		return Sequence(items...)
	case fmt.Stringer:
		return Scalar(t.String())
	}
	return valueOfReflect(reflect.ValueOf(x))
}

func recordFromMap(m map[string]any) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]Field, len(keys))
	for i, k := range keys {
		fields[i] = Field{Key: k, Value: ValueOf(m[k])}
	}
	return Record(fields...)
}

func valueOfReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Invalid:
		return Null
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.String:
		return Scalar(rv.String())
	case reflect.Bool:
		return Scalar(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Scalar(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return Scalar(formatFloat(rv.Float(), rv.Type().Bits()))
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null
		}
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = ValueOf(rv.Index(i).Interface())
		}
		return Sequence(items...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return Null
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return recordFromMap(m)
	case reflect.Struct:
		return recordFromStruct(rv)
	default:
		return Null
	}
}

func recordFromStruct(rv reflect.Value) Value {
	rt := rv.Type()
	var fields []Field
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		key := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				key = name
			}
		}
		fields = append(fields, Field{Key: key, Value: ValueOf(rv.Field(i).Interface())})
	}
	return Record(fields...)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
