// Package sqlgen turns an interpreted intent into a SQL statement.
//
// Design decisions:
//   - Every statement is parameterized. Values never reach the SQL text;
//     GenerateScript inlines them only for display.
//   - Table and column names must exist in the introspected schema and
//     are quoted per dialect before interpolation.
//   - Conditions go through a small parser (condition.go) instead of
//     being pasted verbatim.
package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/db"
)

// DefaultLimit caps SELECTs that carry no explicit limit.
const DefaultLimit = 100

var (
	ErrEmptyData         = errors.New("datos insuficientes")
	ErrConditionRequired = errors.New("condición requerida")
	ErrUnsupportedAction = errors.New("acción no soportada")
)

// Script is a compiled, parameterized statement. SQL uses '?' placeholders;
// db.Querier rebinds them for the connection's dialect.
type Script struct {
	Action ai.Action
	Table  string
	SQL    string
	Args   []any
}

// Returns reports whether executing the script yields rows.
func (s *Script) Returns() bool {
	return s.Action == ai.ActionSelect || s.Action == ai.ActionInsert
}

// Compiler validates intents against a schema snapshot.
type Compiler struct {
	Schema   db.SchemaMap
	Dialect  db.Dialect
	Defaults db.Defaults
}

// NewCompiler uses the wall-clock defaults.
func NewCompiler(schema db.SchemaMap, dialect db.Dialect) *Compiler {
	return &Compiler{Schema: schema, Dialect: dialect, Defaults: db.NewDefaults()}
}

// Compile is a shorthand for NewCompiler(schema, dialect).Compile(intent).
func Compile(intent ai.Intent, schema db.SchemaMap, dialect db.Dialect) (*Script, error) {
	return NewCompiler(schema, dialect).Compile(intent)
}

// GenerateScript compiles intent and renders it with the values inlined.
func GenerateScript(intent ai.Intent, schema db.SchemaMap, dialect db.Dialect) (string, error) {
	s, err := Compile(intent, schema, dialect)
	if err != nil {
		return "", err
	}
	return Inline(s.SQL, s.Args), nil
}

// Compile builds the statement for a DB action.
func (c *Compiler) Compile(intent ai.Intent) (*Script, error) {
	if !intent.Action.IsDBAction() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAction, intent.Action)
	}

	// Completeness is checked before the table so the error names what is
	// missing even when the intent is otherwise wrong.
	switch intent.Action {
	case ai.ActionInsert:
		if len(intent.Data) == 0 {
			return nil, fmt.Errorf("%w para INSERT", ErrEmptyData)
		}
	case ai.ActionUpdate:
		if len(intent.Data) == 0 {
			return nil, fmt.Errorf("%w: datos y condición requeridos para UPDATE", ErrEmptyData)
		}
		if strings.TrimSpace(intent.Condition) == "" {
			return nil, fmt.Errorf("%w: datos y condición requeridos para UPDATE", ErrConditionRequired)
		}
	case ai.ActionDelete:
		if strings.TrimSpace(intent.Condition) == "" {
			return nil, fmt.Errorf("%w para DELETE", ErrConditionRequired)
		}
	}

	table, err := c.Schema.ResolveTable(intent.Table)
	if err != nil {
		return nil, err
	}

	switch intent.Action {
	case ai.ActionSelect:
		return c.compileSelect(table, intent)
	case ai.ActionInsert:
		return c.compileInsert(table, intent)
	case ai.ActionUpdate:
		return c.compileUpdate(table, intent)
	default:
		return c.compileDelete(table, intent)
	}
}

func (c *Compiler) compileSelect(table string, intent ai.Intent) (*Script, error) {
	fields := "*"
	if len(intent.Fields) > 0 {
		names := make([]string, 0, len(intent.Fields))
		for _, f := range intent.Fields {
			if strings.TrimSpace(f) == "*" {
				names = nil
				break
			}
			col, err := c.Schema.ResolveColumn(table, f)
			if err != nil {
				return nil, err
			}
			names = append(names, col.Name)
		}
		if len(names) > 0 {
			fields = c.Dialect.QuoteAll(names)
		}
	}

	limit := intent.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var sb strings.Builder
	sb.WriteString(c.Dialect.SelectHead(limit))
	sb.WriteString(fields)
	sb.WriteString(" FROM ")
	sb.WriteString(c.Dialect.Quote(table))

	var args []any
	if strings.TrimSpace(intent.Condition) != "" {
		where, err := ParseCondition(intent.Condition, table, c.Schema, c.Dialect)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where.SQL)
		args = where.Args
	}
	sb.WriteString(" ORDER BY 1 DESC")
	sb.WriteString(c.Dialect.LimitTail(limit))

	return &Script{Action: ai.ActionSelect, Table: table, SQL: sb.String(), Args: args}, nil
}

func (c *Compiler) compileInsert(table string, intent ai.Intent) (*Script, error) {
	cols, vals, err := c.assignments(table, intent.Data)
	if err != nil {
		return nil, err
	}
	// Required columns the caller left out would fail the NOT NULL check.
	filled := c.Defaults.Complete(c.Schema[table], nil, intent.Table, true)
	for _, col := range c.Schema[table] {
		v, ok := filled[col.Name]
		if !ok || contains(cols, col.Name) {
			continue
		}
		cols = append(cols, col.Name)
		vals = append(vals, v)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w para INSERT", ErrEmptyData)
	}
	cols, vals = c.schemaOrder(table, cols, vals)

	return &Script{
		Action: ai.ActionInsert,
		Table:  table,
		SQL:    c.Dialect.InsertReturning(table, cols),
		Args:   vals,
	}, nil
}

func (c *Compiler) compileUpdate(table string, intent ai.Intent) (*Script, error) {
	cols, vals, err := c.assignments(table, intent.Data)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: datos y condición requeridos para UPDATE", ErrEmptyData)
	}
	where, err := ParseCondition(intent.Condition, table, c.Schema, c.Dialect)
	if err != nil {
		return nil, err
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = c.Dialect.Quote(col) + " = ?"
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", c.Dialect.Quote(table), strings.Join(sets, ", "), where.SQL)
	return &Script{
		Action: ai.ActionUpdate,
		Table:  table,
		SQL:    sql,
		Args:   append(vals, where.Args...),
	}, nil
}

func (c *Compiler) compileDelete(table string, intent ai.Intent) (*Script, error) {
	where, err := ParseCondition(intent.Condition, table, c.Schema, c.Dialect)
	if err != nil {
		return nil, err
	}
	return &Script{
		Action: ai.ActionDelete,
		Table:  table,
		SQL:    fmt.Sprintf("DELETE FROM %s WHERE %s", c.Dialect.Quote(table), where.SQL),
		Args:   where.Args,
	}, nil
}

// assignments validates data keys and coerces their values. Identity
// columns are dropped since the server assigns them.
func (c *Compiler) assignments(table string, data map[string]any) ([]string, []any, error) {
	cols := make([]string, 0, len(data))
	vals := make([]any, 0, len(data))
	for key, v := range data {
		col, err := c.Schema.ResolveColumn(table, key)
		if err != nil {
			return nil, nil, err
		}
		if col.IsIdentity {
			continue
		}
		cols = append(cols, col.Name)
		vals = append(vals, c.Defaults.Coerce(col, v))
	}
	cols, vals = c.schemaOrder(table, cols, vals)
	return cols, vals, nil
}

// schemaOrder sorts parallel column/value slices by ordinal position so
// the generated text is deterministic.
func (c *Compiler) schemaOrder(table string, cols []string, vals []any) ([]string, []any) {
	outCols := make([]string, 0, len(cols))
	outVals := make([]any, 0, len(vals))
	for _, info := range c.Schema[table] {
		for i, name := range cols {
			if name == info.Name {
				outCols = append(outCols, name)
				outVals = append(outVals, vals[i])
				break
			}
		}
	}
	return outCols, outVals
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
