// query.go runs parameterized statements and collects their rows.
//
// All functions accept a context and return structured results that the
// chat formatter and the HTTP layer can render. Errors are returned,
// never logged or printed.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Record is one row keyed by column name.
type Record map[string]any

// Rows holds the output of a query with its column order.
type Rows struct {
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// Values returns the record's values in column order.
func (r *Rows) Values(i int) []any {
	out := make([]any, len(r.Columns))
	for j, c := range r.Columns {
		out[j] = r.Records[i][c]
	}
	return out
}

// Querier is implemented by *DB and *Tx.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	SQLDialect() Dialect
}

var (
	_ Querier = (*DB)(nil)
	_ Querier = (*Tx)(nil)
)

// SQLDialect returns the connection's dialect.
func (d *DB) SQLDialect() Dialect { return d.Dialect }

// Query runs a '?'-placeholder statement and collects every row.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	rows, err := d.X.QueryxContext(ctx, d.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// Exec runs a '?'-placeholder statement and returns the affected row count.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	res, err := d.X.ExecContext(ctx, d.Dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Tx is a transaction with the same helpers as DB.
type Tx struct {
	tx      *sqlx.Tx
	dialect Dialect
}

// SQLDialect returns the transaction's dialect.
func (t *Tx) SQLDialect() Dialect { return t.dialect }

// Query runs a statement inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	rows, err := t.tx.QueryxContext(ctx, t.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// Exec runs a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// WithTx runs fn in a transaction; any error or panic rolls it back.
func (d *DB) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	sqlTx, err := d.X.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	tx := &Tx{tx: sqlTx, dialect: d.Dialect}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			return
		}
		err = sqlTx.Commit()
	}()

	return fn(tx)
}

func collect(rows *sqlx.Rows) (*Rows, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Rows{Columns: cols, Records: []Record{}}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = normalize(values[i])
		}
		out.Records = append(out.Records, rec)
	}
	return out, rows.Err()
}

// normalize turns driver-specific values into JSON-friendly ones.
// go-mssqldb returns DECIMAL as []byte, for instance.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case sql.RawBytes:
		return string(t)
	default:
		return v
	}
}

// AsString renders a column value for display.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.4f", t), "0"), ".")
	default:
		return fmt.Sprint(t)
	}
}

// AsFloat converts numeric column values (including DECIMAL strings) to float64.
func AsFloat(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case int:
		return float64(t)
	case float64:
		return t
	case float32:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		var f float64
		if _, err := fmt.Sscan(strings.TrimSpace(t), &f); err == nil {
			return f
		}
		return 0
	default:
		var f float64
		if _, err := fmt.Sscan(fmt.Sprint(t), &f); err == nil {
			return f
		}
		return 0
	}
}

// AsInt converts a column value to int64.
func AsInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	default:
		return int64(AsFloat(v))
	}
}

// AsTime converts DATE/DATETIME values, including text dates from SQLite.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{"2006-01-02", time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999999-07:00"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
