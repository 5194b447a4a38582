// Package querybuilder renders the small set of Postgres statements the
// contest repositories issue, numbering $n placeholders across clauses.
package querybuilder

import (
	"errors"
	"strconv"
	"strings"
)

// argWriter accumulates SQL text and positional arguments.
type argWriter struct {
	sql  strings.Builder
	args []any
}

func (w *argWriter) bind(value any) {
	w.args = append(w.args, value)
	w.sql.WriteByte('$')
	w.sql.WriteString(strconv.Itoa(len(w.args)))
}

// expr writes raw SQL, binding each '?' to the next value. Surplus '?' stay literal.
func (w *argWriter) expr(raw string, values []any) {
	next := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == '?' && next < len(values) {
			w.bind(values[next])
			next++
			continue
		}
		w.sql.WriteByte(raw[i])
	}
}

func (w *argWriter) where(conditions []Condition) {
	for i, c := range conditions {
		if i == 0 {
			w.sql.WriteString(" WHERE ")
		} else {
			w.sql.WriteString(" AND ")
		}
		c.render(w)
	}
}

type Condition interface {
	render(w *argWriter)
}

type conditionFunc func(w *argWriter)

func (f conditionFunc) render(w *argWriter) { f(w) }

func Eq(column string, value any) Condition {
	return conditionFunc(func(w *argWriter) {
		w.sql.WriteString(column)
		w.sql.WriteString(" = ")
		w.bind(value)
	})
}

// In matches column against values. An empty list matches nothing.
func In[T any](column string, values []T) Condition {
	return conditionFunc(func(w *argWriter) {
		if len(values) == 0 {
			w.sql.WriteString("1=0")
			return
		}
		w.sql.WriteString(column)
		w.sql.WriteString(" IN (")
		for i, v := range values {
			if i > 0 {
				w.sql.WriteString(", ")
			}
			w.bind(v)
		}
		w.sql.WriteByte(')')
	})
}

func IsNull(column string) Condition {
	return conditionFunc(func(w *argWriter) {
		w.sql.WriteString(column)
		w.sql.WriteString(" IS NULL")
	})
}

// Expr is a raw predicate with '?' placeholders.
func Expr(raw string, values ...any) Condition {
	return conditionFunc(func(w *argWriter) { w.expr(raw, values) })
}

type SelectBuilder struct {
	columns   []string
	table     string
	where     []Condition
	orderBy   []string
	limit     int
	forUpdate bool
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

// ForUpdate locks the selected rows until the surrounding transaction ends.
func (b *SelectBuilder) ForUpdate() *SelectBuilder {
	b.forUpdate = true
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, errors.New("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, errors.New("select table is required")
	}

	var w argWriter
	w.sql.WriteString("SELECT ")
	w.sql.WriteString(strings.Join(b.columns, ", "))
	w.sql.WriteString(" FROM ")
	w.sql.WriteString(b.table)
	w.where(b.where)
	if len(b.orderBy) > 0 {
		w.sql.WriteString(" ORDER BY ")
		w.sql.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		w.sql.WriteString(" LIMIT ")
		w.sql.WriteString(strconv.Itoa(b.limit))
	}
	if b.forUpdate {
		w.sql.WriteString(" FOR UPDATE")
	}
	return w.sql.String(), w.args, nil
}

type assignment struct {
	column string
	raw    string
	values []any
}

type UpdateBuilder struct {
	table  string
	sets   []assignment
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	return b.SetExpr(column, "?", value)
}

// SetExpr assigns a raw SQL expression with '?' placeholders, e.g. NOW().
func (b *UpdateBuilder) SetExpr(column, raw string, values ...any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, raw: raw, values: values})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, errors.New("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, errors.New("update sets are required")
	}

	var w argWriter
	w.sql.WriteString("UPDATE ")
	w.sql.WriteString(b.table)
	w.sql.WriteString(" SET ")
	for i, set := range b.sets {
		if i > 0 {
			w.sql.WriteString(", ")
		}
		w.sql.WriteString(set.column)
		w.sql.WriteString(" = ")
		w.expr(set.raw, set.values)
	}
	w.where(b.where)
	if b.suffix != "" {
		w.sql.WriteByte(' ')
		w.sql.WriteString(b.suffix)
	}
	return w.sql.String(), w.args, nil
}
