package template

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/spf13/cast"
)

// SafeString is text that is already escaped for the output and is written
// verbatim when autoescaping is on.
type SafeString string

// MarkSafe wraps s as a SafeString.
func MarkSafe(s string) SafeString { return SafeString(s) }

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape HTML-escapes s.
func Escape(s string) string { return htmlEscaper.Replace(s) }

func isSafe(v any) bool {
	_, ok := v.(SafeString)
	return ok
}

// withSafety returns out as a SafeString when in was one.
func withSafety(in any, out string) any {
	if isSafe(in) {
		return SafeString(out)
	}
	return out
}

// toString converts a resolved value to its textual form. nil renders as
// the empty string.
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case SafeString:
		return string(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return toString(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = toString(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

// truthy reports the boolean value of v in conditions: nil, false, zero
// numbers, empty strings and empty collections are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case SafeString:
		return x != ""
	case time.Time:
		return !x.IsZero()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Bool:
		return rv.Bool()
	}
	return true
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isStringLike(v any) bool {
	switch v.(type) {
	case string, SafeString:
		return true
	}
	return false
}

// equalValues compares two resolved values the way template conditions do:
// numbers by value, strings by content regardless of safety.
func equalValues(a, b any) bool {
	switch {
	case isNumber(a) && isNumber(b):
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	case isStringLike(a) && isStringLike(b):
		return toString(a) == toString(b)
	case a == nil || b == nil:
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers and strings. ok is false for values that
// have no order.
func compareValues(a, b any) (cmp int, ok bool) {
	switch {
	case isNumber(a) && isNumber(b):
		x, y := cast.ToFloat64(a), cast.ToFloat64(b)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case isStringLike(a) && isStringLike(b):
		return strings.Compare(toString(a), toString(b)), true
	case isTime(a) && isTime(b):
		return a.(time.Time).Compare(b.(time.Time)), true
	}
	return 0, false
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

// contains implements the `in` operator.
func contains(container, item any) bool {
	if container == nil {
		return false
	}
	if isStringLike(container) {
		return strings.Contains(toString(container), toString(item))
	}
	rv := indirect(reflect.ValueOf(container))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equalValues(rv.Index(i).Interface(), item) {
				return true
			}
		}
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if equalValues(k.Interface(), item) {
				return true
			}
		}
	}
	return false
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// resolveAttr looks name up on v: map keys, slice indexes, struct fields
// and niladic methods. Field and method names are tried as written and in
// CamelCase, so `base_class` finds BaseClass. Maps also answer `items`,
// `keys` and `values` with key-sorted lists.
func resolveAttr(v any, name string) (any, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	if m, ok := v.(map[string]any); ok {
		if x, ok := m[name]; ok {
			return x, true, nil
		}
		return mapView(reflect.ValueOf(m), name)
	}

	rv := reflect.ValueOf(v)
	if out, ok, err := callMethod(rv, name); ok || err != nil {
		return out, ok, err
	}
	rv = indirect(rv)
	if !rv.IsValid() {
		return nil, false, nil
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			x := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if x.IsValid() {
				return x.Interface(), true, nil
			}
		}
		return mapView(rv, name)
	case reflect.Slice, reflect.Array, reflect.String:
		i, err := strconv.Atoi(name)
		if err != nil {
			return nil, false, nil
		}
		if i < 0 {
			i += rv.Len()
		}
		if i < 0 || i >= rv.Len() {
			return nil, false, nil
		}
		if rv.Kind() == reflect.String {
			return string(rv.String()[i]), true, nil
		}
		return rv.Index(i).Interface(), true, nil
	case reflect.Struct:
		for _, n := range candidateNames(name) {
			if f, ok := rv.Type().FieldByName(n); ok && f.IsExported() {
				return rv.FieldByIndex(f.Index).Interface(), true, nil
			}
		}
		if rv.CanAddr() {
			return callMethod(rv.Addr(), name)
		}
	}
	return nil, false, nil
}

func candidateNames(name string) []string {
	camel := strcase.ToCamel(name)
	if camel == name {
		return []string{name}
	}
	return []string{name, camel}
}

func callMethod(rv reflect.Value, name string) (any, bool, error) {
	if !rv.IsValid() {
		return nil, false, nil
	}
	for _, n := range candidateNames(name) {
		m := rv.MethodByName(n)
		if !m.IsValid() {
			continue
		}
		t := m.Type()
		if t.NumIn() != 0 {
			continue
		}
		switch {
		case t.NumOut() == 1:
			return m.Call(nil)[0].Interface(), true, nil
		case t.NumOut() == 2 && t.Out(1) == errorType:
			out := m.Call(nil)
			if err, _ := out[1].Interface().(error); err != nil {
				return nil, false, err
			}
			return out[0].Interface(), true, nil
		}
	}
	return nil, false, nil
}

func mapView(rv reflect.Value, name string) (any, bool, error) {
	keys := sortedKeys(rv)
	switch name {
	case "keys":
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k.Interface()
		}
		return out, true, nil
	case "values":
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = rv.MapIndex(k).Interface()
		}
		return out, true, nil
	case "items":
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = []any{k.Interface(), rv.MapIndex(k).Interface()}
		}
		return out, true, nil
	case "count", "size":
		return rv.Len(), true, nil
	}
	return nil, false, nil
}

func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i].Interface(), keys[j].Interface()
		if c, ok := compareValues(a, b); ok {
			return c < 0
		}
		return toString(a) < toString(b)
	})
	return keys
}

// iterate returns the elements a for loop walks: slice and array elements,
// sorted map keys, or the characters of a string. Anything else yields
// nothing.
func iterate(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	if isStringLike(v) {
		var out []any
		for _, r := range toString(v) {
			out = append(out, string(r))
		}
		return out
	}
	rv := indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		keys := sortedKeys(rv)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k.Interface()
		}
		return out
	}
	return nil
}

// mapItems returns key/value pairs of a map in key order, or nil when v is
// not a map.
func mapItems(v any) ([][2]any, bool) {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, false
	}
	keys := sortedKeys(rv)
	out := make([][2]any, len(keys))
	for i, k := range keys {
		out[i] = [2]any{k.Interface(), rv.MapIndex(k).Interface()}
	}
	return out, true
}

func length(v any) int {
	if v == nil {
		return 0
	}
	if isStringLike(v) {
		return len([]rune(toString(v)))
	}
	rv := indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		return rv.Len()
	}
	return 0
}
