package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect captures the SQL differences between the supported servers.
// Statements inside the app are written with '?' placeholders and
// rebound per dialect before execution.
type Dialect int

const (
	SQLServer Dialect = iota
	Postgres
	SQLite
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("no dialect for driver %q", driverName)
	}
}

func (d Dialect) String() string {
	switch d {
	case SQLServer:
		return "sqlserver"
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// BindType returns the sqlx placeholder style.
func (d Dialect) BindType() int {
	switch d {
	case SQLServer:
		return sqlx.AT
	case Postgres:
		return sqlx.DOLLAR
	default:
		return sqlx.QUESTION
	}
}

// Rebind rewrites '?' placeholders into the dialect's style.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.BindType(), query)
}

// Quote quotes an identifier. Callers must only pass names that were
// validated against the introspected schema.
func (d Dialect) Quote(ident string) string {
	if d == SQLServer {
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteAll quotes each identifier and joins them with ", ".
func (d Dialect) QuoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = d.Quote(id)
	}
	return strings.Join(quoted, ", ")
}

// SelectHead returns "SELECT " or "SELECT TOP (n) ".
func (d Dialect) SelectHead(limit int) string {
	if d == SQLServer && limit > 0 {
		return fmt.Sprintf("SELECT TOP (%d) ", limit)
	}
	return "SELECT "
}

// LimitTail returns " LIMIT n" for dialects that put the limit last.
func (d Dialect) LimitTail(limit int) string {
	if d != SQLServer && limit > 0 {
		return fmt.Sprintf(" LIMIT %d", limit)
	}
	return ""
}

// Paginate returns the ORDER BY + paging clause.
func (d Dialect) Paginate(orderBy string, limit, offset int) string {
	if d == SQLServer {
		return fmt.Sprintf(" ORDER BY %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", orderBy, offset, limit)
	}
	return fmt.Sprintf(" ORDER BY %s LIMIT %d OFFSET %d", orderBy, limit, offset)
}

// InsertReturning builds an INSERT that yields the stored row.
func (d Dialect) InsertReturning(table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	if d == SQLServer {
		return fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.* VALUES (%s)", d.Quote(table), d.QuoteAll(cols), marks)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *", d.Quote(table), d.QuoteAll(cols), marks)
}

// UpdateReturning builds "UPDATE t SET a = ?, ... <returning> WHERE <where>".
func (d Dialect) UpdateReturning(table string, cols []string, where string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = d.Quote(c) + " = ?"
	}
	if d == SQLServer {
		return fmt.Sprintf("UPDATE %s SET %s OUTPUT INSERTED.* WHERE %s", d.Quote(table), strings.Join(sets, ", "), where)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *", d.Quote(table), strings.Join(sets, ", "), where)
}

// Concat joins SQL string expressions.
func (d Dialect) Concat(exprs ...string) string {
	if d == SQLServer {
		return strings.Join(exprs, " + ")
	}
	return strings.Join(exprs, " || ")
}
