// schema.go reads table and column metadata from the database's own
// catalogue and renders it for prompts.
//
// The SchemaMap is rebuilt on every call; nothing is cached. It is
// also the allow-list every generated statement is checked against.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mvrodados/mvrodados/applog"
)

var (
	ErrUnknownTable  = errors.New("tabla desconocida")
	ErrUnknownColumn = errors.New("columna desconocida")
)

// ExcludedTables are never exposed to the assistant or the admin API.
var ExcludedTables = []string{"ChatHistory", "sysdiagrams"}

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	Name       string `json:"name"`
	DataType   string `json:"type"`
	IsNullable bool   `json:"nullable"`
	IsIdentity bool   `json:"isIdentity"`
	IsPK       bool   `json:"isPrimaryKey"`
	MaxLength  *int   `json:"maxLength,omitempty"`
	HasDefault bool   `json:"hasDefault"`
}

// SchemaMap maps table name to its ordered columns.
type SchemaMap map[string][]ColumnInfo

// Tables returns the table names sorted.
func (s SchemaMap) Tables() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table resolves a table name case-insensitively to its canonical spelling.
func (s SchemaMap) Table(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if _, ok := s[name]; ok {
		return name, true
	}
	for t := range s {
		if strings.EqualFold(t, name) {
			return t, true
		}
	}
	return "", false
}

// Column resolves a column of table case-insensitively.
func (s SchemaMap) Column(table, col string) (ColumnInfo, bool) {
	col = strings.TrimSpace(col)
	for _, c := range s[table] {
		if strings.EqualFold(c.Name, col) {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// PrimaryKey returns the first primary key column of table, or "id".
func (s SchemaMap) PrimaryKey(table string) string {
	for _, c := range s[table] {
		if c.IsPK {
			return c.Name
		}
	}
	for _, c := range s[table] {
		if c.IsIdentity {
			return c.Name
		}
	}
	return "id"
}

// ResolveTable is Table returning ErrUnknownTable.
func (s SchemaMap) ResolveTable(name string) (string, error) {
	t, ok := s.Table(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// ResolveColumn is Column returning ErrUnknownColumn.
func (s SchemaMap) ResolveColumn(table, col string) (ColumnInfo, error) {
	c, ok := s.Column(table, col)
	if !ok {
		return ColumnInfo{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
	}
	return c, nil
}

// GetSchema introspects every business table.
func (d *DB) GetSchema(ctx context.Context) (SchemaMap, error) {
	tables, err := d.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	schema := make(SchemaMap, len(tables))
	for _, t := range tables {
		cols, err := d.TableColumns(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", t, err)
		}
		schema[t] = cols
	}
	return schema, nil
}

// SchemaOrEmpty is GetSchema that logs failures and returns an empty map.
func (d *DB) SchemaOrEmpty(ctx context.Context) SchemaMap {
	schema, err := d.GetSchema(ctx)
	if err != nil {
		applog.Error("schema introspection failed", "err", err)
		return SchemaMap{}
	}
	return schema
}

// ListTables returns base table names, minus ExcludedTables, sorted.
func (d *DB) ListTables(ctx context.Context) ([]string, error) {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(ExcludedTables)), ", ")
	var query string
	switch d.Dialect {
	case SQLServer:
		query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
			WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_NAME NOT IN (` + marks + `)
			ORDER BY TABLE_NAME`
	case Postgres:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			AND table_name NOT IN (` + marks + `)
			ORDER BY table_name`
	default:
		query = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name NOT IN (` + marks + `)
			ORDER BY name`
	}
	args := make([]any, len(ExcludedTables))
	for i, t := range ExcludedTables {
		args[i] = t
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	var names []string
	if err := d.X.SelectContext(ctx, &names, d.Dialect.Rebind(query), args...); err != nil {
		return nil, err
	}
	return names, nil
}

const sqlServerColumns = `
	SELECT c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE, c.CHARACTER_MAXIMUM_LENGTH,
	       COALESCE(COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity'), 0),
	       CASE WHEN pk.COLUMN_NAME IS NULL THEN 0 ELSE 1 END,
	       CASE WHEN c.COLUMN_DEFAULT IS NULL THEN 0 ELSE 1 END
	FROM INFORMATION_SCHEMA.COLUMNS c
	LEFT JOIN (
	    SELECT ku.TABLE_NAME, ku.COLUMN_NAME
	    FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
	    JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku ON tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
	    WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
	) pk ON pk.TABLE_NAME = c.TABLE_NAME AND pk.COLUMN_NAME = c.COLUMN_NAME
	WHERE c.TABLE_NAME = ?
	ORDER BY c.ORDINAL_POSITION`

const postgresColumns = `
	SELECT c.column_name, c.data_type, c.is_nullable, c.character_maximum_length,
	       CASE WHEN c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval(%' THEN 1 ELSE 0 END,
	       CASE WHEN pk.column_name IS NULL THEN 0 ELSE 1 END,
	       CASE WHEN c.column_default IS NULL THEN 0 ELSE 1 END
	FROM information_schema.columns c
	LEFT JOIN (
	    SELECT ku.table_name, ku.column_name
	    FROM information_schema.table_constraints tc
	    JOIN information_schema.key_column_usage ku
	      ON tc.constraint_name = ku.constraint_name AND tc.table_schema = ku.table_schema
	    WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = current_schema()
	) pk ON pk.table_name = c.table_name AND pk.column_name = c.column_name
	WHERE c.table_schema = current_schema() AND c.table_name = ?
	ORDER BY c.ordinal_position`

const sqliteColumns = `
	SELECT name, type, "notnull", pk, CASE WHEN dflt_value IS NULL THEN 0 ELSE 1 END
	FROM pragma_table_info(?)
	ORDER BY cid`

var typeLength = regexp.MustCompile(`^\s*([a-zA-Z ]+?)\s*\(\s*(\d+)`)

// TableColumns describes one table's columns in ordinal order.
func (d *DB) TableColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	if d.Dialect == SQLite {
		return d.describeSQLite(ctx, table)
	}

	query := sqlServerColumns
	if d.Dialect == Postgres {
		query = postgresColumns
	}
	rows, err := d.X.QueryContext(ctx, d.Dialect.Rebind(query), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			c                        ColumnInfo
			nullable                 string
			maxLen                   sql.NullInt64
			identity, pk, hasDefault int64
		)
		if err := rows.Scan(&c.Name, &c.DataType, &nullable, &maxLen, &identity, &pk, &hasDefault); err != nil {
			return nil, err
		}
		c.DataType = strings.ToLower(c.DataType)
		c.IsNullable = strings.EqualFold(nullable, "YES")
		c.IsIdentity = identity == 1
		c.IsPK = pk == 1
		c.HasDefault = hasDefault == 1
		if maxLen.Valid && maxLen.Int64 > 0 {
			n := int(maxLen.Int64)
			c.MaxLength = &n
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (d *DB) describeSQLite(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := d.X.QueryContext(ctx, sqliteColumns, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnInfo
	pkCount := 0
	for rows.Next() {
		var (
			c                    ColumnInfo
			declared             string
			notNull, pk, hasDflt int64
		)
		if err := rows.Scan(&c.Name, &declared, &notNull, &pk, &hasDflt); err != nil {
			return nil, err
		}
		c.DataType = strings.ToLower(strings.TrimSpace(declared))
		if m := typeLength.FindStringSubmatch(declared); m != nil {
			c.DataType = strings.ToLower(m[1])
			if n, err := strconv.Atoi(m[2]); err == nil && strings.Contains(c.DataType, "char") {
				c.MaxLength = &n
			}
		}
		c.IsPK = pk > 0
		c.IsNullable = notNull == 0 && !c.IsPK
		c.HasDefault = hasDflt == 1
		if c.IsPK {
			pkCount++
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// INTEGER PRIMARY KEY aliases the rowid.
	if pkCount == 1 {
		for i := range cols {
			if cols[i].IsPK && cols[i].DataType == "integer" {
				cols[i].IsIdentity = true
			}
		}
	}
	return cols, nil
}

// FormatSchemaContext renders one line per table, suitable for the
// assistant's system prompt:
//
//	Clientes: id_cliente (int, required, identity), nombre (varchar(100), required), email (varchar(150), nullable)
func FormatSchemaContext(schema SchemaMap) string {
	var sb strings.Builder
	for _, table := range schema.Tables() {
		sb.WriteString(table)
		sb.WriteString(": ")
		for i, c := range schema[table] {
			if i > 0 {
				sb.WriteString(", ")
			}
			typ := c.DataType
			if c.MaxLength != nil {
				typ = fmt.Sprintf("%s(%d)", typ, *c.MaxLength)
			}
			need := "nullable"
			if !c.IsNullable {
				need = "required"
			}
			sb.WriteString(fmt.Sprintf("%s (%s, %s", c.Name, typ, need))
			if c.IsIdentity {
				sb.WriteString(", identity")
			}
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
