package postgres

import (
	"reflect"
	"sync"
)

// columnCache maps a struct type to its db-tagged fields.
var columnCache sync.Map // map[reflect.Type][]column

type column struct {
	index []int
	name  string
}

// ExtractDBColumns returns the column names of T's "db" tags in field order,
// including embedded structs.
//
//	cols := ExtractDBColumns[bodies.Body]()
//	// ["id", "code", "name", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	cols := columnsOf(reflect.TypeOf(zero))
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap converts a struct to a column → value map using "db" tags.
// When only is non-empty the map is limited to those columns.
func StructToMap(v any, only ...string) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var keep map[string]bool
	if len(only) > 0 {
		keep = make(map[string]bool, len(only))
		for _, name := range only {
			keep[name] = true
		}
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		if keep != nil && !keep[c.name] {
			continue
		}
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}

// Without returns a copy of m minus the given keys.
func Without(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func columnsOf(t reflect.Type) []column {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}
	cols := collectColumns(t, nil)
	columnCache.Store(t, cols)
	return cols
}

func collectColumns(t reflect.Type, prefix []int) []column {
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int{}, prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			cols = append(cols, collectColumns(field.Type, index)...)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{index: index, name: tag})
	}
	return cols
}
