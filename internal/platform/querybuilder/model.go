package querybuilder

import (
	"errors"
	"reflect"
	"strings"
)

// InsertModel renders a single-row INSERT from the exported db-tagged fields of model.
// suffix is appended verbatim, e.g. "ON CONFLICT (public_id) DO NOTHING".
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		return "", nil, errors.New("insert table is required")
	}
	cols, vals, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}

	var w argWriter
	w.sql.WriteString("INSERT INTO ")
	w.sql.WriteString(table)
	w.sql.WriteString(" (")
	w.sql.WriteString(strings.Join(cols, ", "))
	w.sql.WriteString(") VALUES (")
	for i, v := range vals {
		if i > 0 {
			w.sql.WriteString(", ")
		}
		w.bind(v)
	}
	w.sql.WriteByte(')')
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		w.sql.WriteByte(' ')
		w.sql.WriteString(suffix)
	}
	return w.sql.String(), w.args, nil
}

func modelColumns(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, errors.New("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, errors.New("model must be a struct")
	}

	typ := value.Type()
	var (
		cols []string
		vals []any
	)
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}
	if len(cols) == 0 {
		return nil, nil, errors.New("model has no db columns")
	}
	return cols, vals, nil
}
