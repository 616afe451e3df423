package mustache

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Getter is implemented by views that resolve their own members. It takes
// precedence over reflection.
type Getter interface {
	Get(name string) (any, bool)
}

// Keyed is a Getter whose members can be enumerated in a fixed order.
type Keyed interface {
	Getter
	Keys() []string
}

// Unwrapper is implemented by views that decorate another value, such as a
// frame overlay. Sequence, truth and mapping checks look through it.
type Unwrapper interface {
	Unwrap() any
}

func unwrap(v any) any {
	for {
		u, ok := v.(Unwrapper)
		if !ok {
			return v
		}
		v = u.Unwrap()
	}
}

// OrderedMap is a string-keyed mapping that remembers insertion order.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// Set stores v under key. A new key is appended to the key order; an
// existing key keeps its position.
func (m *OrderedMap) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get implements Getter.
func (m *OrderedMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

func (m *OrderedMap) String() string {
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		parts[i] = k + ":" + Stringify(m.values[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Member resolves a single name on v. Getters are asked directly; maps are
// indexed by key; structs expose exported fields (by name or by a
// `mustache:"name"` tag) and methods without arguments; slices, arrays and
// strings expose "length" and numeric indexes.
func Member(v any, name string) (any, bool) {
	if v == nil {
		return nil, false
	}
	if g, ok := v.(Getter); ok {
		return g.Get(name)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		if out, ok := callMethod(rv, name); ok {
			return out, true
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		var key reflect.Value
		switch rv.Type().Key().Kind() {
		case reflect.String:
			key = reflect.ValueOf(name).Convert(rv.Type().Key())
		case reflect.Interface:
			key = reflect.ValueOf(name)
		default:
			return nil, false
		}
		item := rv.MapIndex(key)
		if item.IsValid() {
			return item.Interface(), true
		}
	case reflect.Struct:
		if field, ok := structField(rv, name); ok {
			return field.Interface(), true
		}
	case reflect.Slice, reflect.Array, reflect.String:
		if name == "length" {
			return rv.Len(), true
		}
		if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < rv.Len() {
			if rv.Kind() == reflect.String {
				return string(rv.String()[i]), true
			}
			return rv.Index(i).Interface(), true
		}
	}

	return callMethod(rv, name)
}

func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	if f, ok := rv.Type().FieldByName(name); ok && f.IsExported() {
		// Promoted through a nil embedded pointer: a miss.
		field, err := rv.FieldByIndexErr(f.Index)
		if err != nil {
			return reflect.Value{}, false
		}
		return field, true
	}
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Type().Field(i)
		if f.IsExported() && f.Tag.Get("mustache") == name {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func callMethod(rv reflect.Value, name string) (any, bool) {
	if name == "" || !rv.IsValid() {
		return nil, false
	}
	method := rv.MethodByName(name)
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() == 0 {
		return nil, false
	}
	return method.Call(nil)[0].Interface(), true
}

// Items returns the elements of a slice or array. Strings and byte slices
// are not sequences.
func Items(v any) ([]any, bool) {
	v = unwrap(v)
	if v == nil {
		return nil, false
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// Entry is one key and value of a keyed mapping.
type Entry struct {
	Key   string
	Value any
}

// Entries enumerates the members of a mapping. Keyed values keep their own
// order, structs list exported fields in declaration order and Go maps are
// listed by ascending key since they have no order of their own.
func Entries(v any) ([]Entry, bool) {
	v = unwrap(v)
	if v == nil {
		return nil, false
	}
	if k, ok := v.(Keyed); ok {
		keys := k.Keys()
		entries := make([]Entry, 0, len(keys))
		for _, key := range keys {
			value, _ := k.Get(key)
			entries = append(entries, Entry{Key: key, Value: value})
		}
		return entries, true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		entries := make([]Entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, Entry{Key: fmt.Sprint(iter.Key().Interface()), Value: iter.Value().Interface()})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		return entries, true
	case reflect.Struct:
		var entries []Entry
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Type().Field(i)
			if !f.IsExported() {
				continue
			}
			key := f.Name
			if tag := f.Tag.Get("mustache"); tag != "" {
				key = tag
			}
			entries = append(entries, Entry{Key: key, Value: rv.Field(i).Interface()})
		}
		return entries, true
	}
	return nil, false
}

// IsNil reports whether v is nil or a nil pointer, map, slice, interface or
// func.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Truthy reports whether v counts as true: nil, false, zero, NaN and the
// empty string are false and everything else, empty slices included, is
// true.
func Truthy(v any) bool {
	v = unwrap(v)
	if IsNil(v) {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.String:
		return rv.Len() > 0
	}
	return true
}

// Stringify formats v the way a template prints it: nil is empty, numbers
// use their shortest form and sequences are joined with commas.
func Stringify(v any) string {
	if IsNil(v) {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return FormatNumber(x)
	case float32:
		return FormatNumber(float64(x))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Pointer:
		return Stringify(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

// FormatNumber formats f without a trailing fraction for whole numbers.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.Abs(f) >= 1e21:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Escape replaces the HTML special characters in s with entities.
func Escape(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
