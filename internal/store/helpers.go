package store

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a WHERE clause with numbered placeholders.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder; the first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n". Empty values are skipped.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.AddCondition(quoteIdentifier(column)+" = $%d", value)
}

// AddCondition appends a condition whose single placeholder is written as $%d.
func (wb *WhereBuilder) AddCondition(format string, value any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf(format, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddContains appends a case-insensitive substring match on column.
// LIKE wildcards in value match literally.
func (wb *WhereBuilder) AddContains(column, value string) {
	if value == "" {
		return
	}
	wb.AddCondition(quoteIdentifier(column)+" ILIKE $%d", "%"+escapeLike(value)+"%")
}

// AddTimestampRange appends "column >= $n AND column < $n+1". Either bound
// may be nil.
func (wb *WhereBuilder) AddTimestampRange(column string, from, to any) {
	if from != nil {
		wb.AddCondition(quoteIdentifier(column)+" >= $%d", from)
	}
	if to != nil {
		wb.AddCondition(quoteIdentifier(column)+" < $%d", to)
	}
}

// NextArgIndex is the placeholder number the next argument will get.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the clause (with a leading space) and its arguments, or
// "" and nil when there are no conditions.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// quoteIdentifier quotes a SQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
