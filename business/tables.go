package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/db"
	"github.com/mvrodados/mvrodados/sqlgen"
)

// SearchColumns lists the columns a free-text search looks at per table.
// Tables not listed fall back to DefaultSearchColumns. Columns missing
// from the live schema are skipped.
var SearchColumns = map[string][]string{
	"Clientes":      {"nombre", "apellido", "email", "telefono"},
	"Motos":         {"marca", "modelo", "categoria"},
	"Bicicletas":    {"marca", "modelo", "categoria"},
	"Cascos":        {"marca", "modelo", "color"},
	"Articulos":     {"nombre", "descripcion", "marca", "modelo"},
	"Comprobantes":  {"numero", "estado", "observaciones"},
	"Transacciones": {"descripcion", "categoria", "tipo"},
}

var DefaultSearchColumns = []string{"nombre", "descripcion"}

// minSearchTerm drops short words from searches.
const minSearchTerm = 3

// Tables is CRUD over any table of the live schema.
type Tables struct {
	store Store
}

func NewTables(store Store) *Tables {
	return &Tables{store: store}
}

// Names lists the business tables.
func (s *Tables) Names(ctx context.Context) ([]string, error) {
	schema, err := s.store.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	return schema.Tables(), nil
}

// Schema returns the full schema, or one table's columns when table is set.
func (s *Tables) Schema(ctx context.Context, table string) (any, error) {
	schema, err := s.store.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	if table == "" {
		return schema, nil
	}
	name, err := schema.ResolveTable(table)
	if err != nil {
		return nil, err
	}
	return schema[name], nil
}

// List returns up to limit rows of table. Every search word of three or
// more letters must match at least one search column.
func (s *Tables) List(ctx context.Context, table, search string, limit int) (*db.Rows, error) {
	schema, err := s.store.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	name, err := schema.ResolveTable(table)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = sqlgen.DefaultLimit
	}
	d := s.store.SQLDialect()

	var conds []string
	var args []any
	cols := searchColumns(schema, name)
	if len(cols) > 0 {
		for _, term := range strings.Fields(search) {
			if len([]rune(term)) < minSearchTerm {
				continue
			}
			ors := make([]string, len(cols))
			for i, c := range cols {
				ors[i] = d.Quote(c) + " LIKE ?"
				args = append(args, "%"+term+"%")
			}
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}

	query := d.SelectHead(limit) + "* FROM " + d.Quote(name)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY 1 DESC" + d.LimitTail(limit)
	return s.store.Query(ctx, query, args...)
}

func searchColumns(schema db.SchemaMap, table string) []string {
	wanted, ok := SearchColumns[table]
	if !ok {
		wanted = DefaultSearchColumns
	}
	var out []string
	for _, w := range wanted {
		if c, ok := schema.Column(table, w); ok {
			out = append(out, c.Name)
		}
	}
	return out
}

// Create inserts data into table. Required columns the caller left out
// get default values.
func (s *Tables) Create(ctx context.Context, table string, data map[string]any) (db.Record, error) {
	script, err := s.compile(ctx, ai.Intent{Action: ai.ActionInsert, Table: table, Data: data})
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Query(ctx, script.SQL, script.Args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", script.Table, err)
	}
	return first(rows), nil
}

// Update sets data on the row whose primary key is id.
func (s *Tables) Update(ctx context.Context, table string, id int64, data map[string]any) (int64, error) {
	script, err := s.compileByKey(ctx, ai.ActionUpdate, table, id, data)
	if err != nil {
		return 0, err
	}
	n, err := s.store.Exec(ctx, script.SQL, script.Args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", script.Table, err)
	}
	if n == 0 {
		return 0, notFound("Registro")
	}
	return n, nil
}

// Delete removes the row whose primary key is id.
func (s *Tables) Delete(ctx context.Context, table string, id int64) (int64, error) {
	script, err := s.compileByKey(ctx, ai.ActionDelete, table, id, nil)
	if err != nil {
		return 0, err
	}
	n, err := s.store.Exec(ctx, script.SQL, script.Args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", script.Table, err)
	}
	if n == 0 {
		return 0, notFound("Registro")
	}
	return n, nil
}

// RunScript renders a catalog script against the live schema and runs it.
func (s *Tables) RunScript(ctx context.Context, catalog *sqlgen.Catalog, key, table string, params map[string]any, now time.Time) (*db.Rows, error) {
	schema, err := s.store.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := catalog.Lookup(key); !ok {
		return nil, notFound("Script " + key)
	}
	script, err := catalog.Render(key, table, params, schema, s.store.SQLDialect(), now)
	if err != nil {
		return nil, err
	}
	return s.store.Query(ctx, script.SQL, script.Args...)
}

func (s *Tables) compile(ctx context.Context, intent ai.Intent) (*sqlgen.Script, error) {
	schema, err := s.store.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	return sqlgen.Compile(intent, schema, s.store.SQLDialect())
}

func (s *Tables) compileByKey(ctx context.Context, action ai.Action, table string, id int64, data map[string]any) (*sqlgen.Script, error) {
	schema, err := s.store.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	name, err := schema.ResolveTable(table)
	if err != nil {
		return nil, err
	}
	intent := ai.Intent{
		Action:    action,
		Table:     name,
		Data:      data,
		Condition: fmt.Sprintf("%s = %d", s.store.SQLDialect().Quote(schema.PrimaryKey(name)), id),
	}
	return sqlgen.Compile(intent, schema, s.store.SQLDialect())
}
