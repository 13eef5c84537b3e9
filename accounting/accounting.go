// Package accounting keeps the Transacciones ledger and the per-day
// Balances derived from it.
//
// A day's balance row is recomputed from its transactions after every
// transaction write, so Balances never drifts from the ledger unless
// someone edits it by hand through the balance endpoints.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/db"
)

var (
	ErrValidation = errors.New("datos inválidos")
	ErrNotFound   = errors.New("no encontrado")
)

const dateLayout = "2006-01-02"

// Transaction kinds counted on each side of the balance.
var (
	IncomeKinds  = []string{"ingreso", "venta"}
	ExpenseKinds = []string{"egreso", "compra", "gasto"}
)

// Filters narrow transaction and balance listings. Empty fields are ignored.
type Filters struct {
	Tipo  string `query:"tipo"`
	Desde string `query:"fechaDesde"`
	Hasta string `query:"fechaHasta"`
}

// Transaccion is the writable shape of a ledger entry.
type Transaccion struct {
	Tipo            string  `json:"tipo"`
	Monto           float64 `json:"monto"`
	Descripcion     string  `json:"descripcion"`
	Categoria       string  `json:"categoria"`
	Fecha           string  `json:"fecha"`
	ReferenciaID    *int64  `json:"referencia_id"`
	ReferenciaTabla string  `json:"referencia_tabla"`
}

// Balance is the writable shape of a day's balance.
type Balance struct {
	Fecha    string  `json:"fecha"`
	Ingresos float64 `json:"ingresos"`
	Egresos  float64 `json:"egresos"`
}

// Service runs the ledger queries. Now is injectable for tests.
type Service struct {
	q   db.Querier
	Now func() time.Time
}

// NewService binds the service to a connection.
func NewService(q db.Querier) *Service {
	return &Service{q: q, Now: time.Now}
}

func (s *Service) table(name string) string {
	return s.q.SQLDialect().Quote(name)
}

func (s *Service) today() string {
	return s.Now().Format(dateLayout)
}

// normalizeDate accepts anything db.AsTime understands and returns
// YYYY-MM-DD, or "" when the input is not a date.
func normalizeDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	t, ok := db.AsTime(v)
	if !ok {
		return ""
	}
	return t.Format(dateLayout)
}

func dateOf(v any) string {
	if t, ok := db.AsTime(v); ok {
		return t.Format(dateLayout)
	}
	return normalizeDate(db.AsString(v))
}

// Transacciones lists ledger entries, newest first.
func (s *Service) Transacciones(ctx context.Context, f Filters) (*db.Rows, error) {
	where, args := []string{"1=1"}, []any{}
	if f.Tipo != "" {
		where = append(where, "tipo = ?")
		args = append(args, f.Tipo)
	}
	if d := normalizeDate(f.Desde); d != "" {
		where = append(where, "fecha >= ?")
		args = append(args, d)
	}
	if d := normalizeDate(f.Hasta); d != "" {
		where = append(where, "fecha <= ?")
		args = append(args, d)
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY fecha DESC, id DESC",
		s.table("Transacciones"), strings.Join(where, " AND "))
	return s.q.Query(ctx, query, args...)
}

// Balances lists day balances, newest first.
func (s *Service) Balances(ctx context.Context, f Filters) (*db.Rows, error) {
	where, args := []string{"1=1"}, []any{}
	if d := normalizeDate(f.Desde); d != "" {
		where = append(where, "fecha >= ?")
		args = append(args, d)
	}
	if d := normalizeDate(f.Hasta); d != "" {
		where = append(where, "fecha <= ?")
		args = append(args, d)
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY fecha DESC",
		s.table("Balances"), strings.Join(where, " AND "))
	return s.q.Query(ctx, query, args...)
}

func (t *Transaccion) validate() error {
	if strings.TrimSpace(t.Tipo) == "" || t.Monto == 0 ||
		strings.TrimSpace(t.Descripcion) == "" || strings.TrimSpace(t.Categoria) == "" {
		return fmt.Errorf("%w: Faltan campos obligatorios: tipo, monto, descripcion, categoria", ErrValidation)
	}
	return nil
}

func (t *Transaccion) args(fecha string) []any {
	var ref, refTable any
	if t.ReferenciaID != nil {
		ref = *t.ReferenciaID
	}
	if t.ReferenciaTabla != "" {
		refTable = t.ReferenciaTabla
	}
	return []any{strings.ToLower(strings.TrimSpace(t.Tipo)), t.Monto, t.Descripcion, t.Categoria, fecha, ref, refTable}
}

var transaccionCols = []string{"tipo", "monto", "descripcion", "categoria", "fecha", "referencia_id", "referencia_tabla"}

// InsertTransaccion stores an entry and refreshes its day's balance.
// The date defaults to today.
func (s *Service) InsertTransaccion(ctx context.Context, t Transaccion) (db.Record, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	fecha := normalizeDate(t.Fecha)
	if fecha == "" {
		fecha = s.today()
	}

	d := s.q.SQLDialect()
	rows, err := s.q.Query(ctx, d.InsertReturning("Transacciones", transaccionCols), t.args(fecha)...)
	if err != nil {
		return nil, fmt.Errorf("insert transaccion: %w", err)
	}
	if err := s.RecomputeBalance(ctx, fecha); err != nil {
		return nil, err
	}
	applog.Event("accounting", "transaction stored", "tipo", t.Tipo, "monto", t.Monto, "fecha", fecha)
	if rows.Len() == 0 {
		return db.Record{}, nil
	}
	return rows.Records[0], nil
}

// UpdateTransaccion rewrites an entry. Both the old and the new day are
// recomputed when the date moves.
func (s *Service) UpdateTransaccion(ctx context.Context, id int64, t Transaccion) (db.Record, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	old, err := s.transaccion(ctx, id)
	if err != nil {
		return nil, err
	}
	oldDate := dateOf(old["fecha"])
	fecha := normalizeDate(t.Fecha)
	if fecha == "" {
		fecha = oldDate
	}

	d := s.q.SQLDialect()
	query := d.UpdateReturning("Transacciones", transaccionCols, "id = ?")
	rows, err := s.q.Query(ctx, query, append(t.args(fecha), id)...)
	if err != nil {
		return nil, fmt.Errorf("update transaccion: %w", err)
	}
	if err := s.RecomputeBalance(ctx, oldDate); err != nil {
		return nil, err
	}
	if fecha != oldDate {
		if err := s.RecomputeBalance(ctx, fecha); err != nil {
			return nil, err
		}
	}
	if rows.Len() == 0 {
		return db.Record{}, nil
	}
	return rows.Records[0], nil
}

// DeleteTransaccion removes an entry and refreshes its day.
func (s *Service) DeleteTransaccion(ctx context.Context, id int64) error {
	old, err := s.transaccion(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.table("Transacciones")), id); err != nil {
		return fmt.Errorf("delete transaccion: %w", err)
	}
	return s.RecomputeBalance(ctx, dateOf(old["fecha"]))
}

func (s *Service) transaccion(ctx context.Context, id int64) (db.Record, error) {
	rows, err := s.q.Query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", s.table("Transacciones")), id)
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, fmt.Errorf("%w: Transacción no encontrada", ErrNotFound)
	}
	return rows.Records[0], nil
}

// InsertBalance upserts the balance of a day. The boolean reports
// whether an existing row was updated.
func (s *Service) InsertBalance(ctx context.Context, b Balance) (db.Record, bool, error) {
	fecha := normalizeDate(b.Fecha)
	if fecha == "" {
		return nil, false, fmt.Errorf("%w: fecha requerida", ErrValidation)
	}
	return s.upsertBalance(ctx, fecha, b.Ingresos, b.Egresos)
}

func (s *Service) upsertBalance(ctx context.Context, fecha string, ingresos, egresos float64) (db.Record, bool, error) {
	d := s.q.SQLDialect()
	existing, err := s.q.Query(ctx, fmt.Sprintf("SELECT id FROM %s WHERE fecha = ?", s.table("Balances")), fecha)
	if err != nil {
		return nil, false, err
	}
	cols := []string{"fecha", "ingresos", "egresos", "balance"}
	args := []any{fecha, ingresos, egresos, ingresos - egresos}

	var rows *db.Rows
	updated := existing.Len() > 0
	if updated {
		rows, err = s.q.Query(ctx, d.UpdateReturning("Balances", cols, "id = ?"), append(args, existing.Records[0]["id"])...)
	} else {
		rows, err = s.q.Query(ctx, d.InsertReturning("Balances", cols), args...)
	}
	if err != nil {
		return nil, false, fmt.Errorf("upsert balance %s: %w", fecha, err)
	}
	if rows.Len() == 0 {
		return db.Record{}, updated, nil
	}
	return rows.Records[0], updated, nil
}

// UpdateBalance overwrites a balance row by id.
func (s *Service) UpdateBalance(ctx context.Context, id int64, b Balance) (db.Record, error) {
	fecha := normalizeDate(b.Fecha)
	if fecha == "" {
		return nil, fmt.Errorf("%w: fecha requerida", ErrValidation)
	}
	d := s.q.SQLDialect()
	rows, err := s.q.Query(ctx, d.UpdateReturning("Balances", []string{"fecha", "ingresos", "egresos", "balance"}, "id = ?"),
		fecha, b.Ingresos, b.Egresos, b.Ingresos-b.Egresos, id)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	if rows.Len() == 0 {
		return nil, fmt.Errorf("%w: Balance no encontrado", ErrNotFound)
	}
	return rows.Records[0], nil
}

// DeleteBalance removes a balance row by id.
func (s *Service) DeleteBalance(ctx context.Context, id int64) error {
	n, err := s.q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.table("Balances")), id)
	if err != nil {
		return fmt.Errorf("delete balance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: Balance no encontrado", ErrNotFound)
	}
	return nil
}

func kindList(kinds []string) string {
	quoted := make([]string, len(kinds))
	for i, k := range kinds {
		quoted[i] = "'" + k + "'"
	}
	return strings.Join(quoted, ", ")
}

// RecomputeBalance sums a day's transactions into its Balances row.
func (s *Service) RecomputeBalance(ctx context.Context, fecha string) error {
	if fecha == "" {
		return nil
	}
	query := fmt.Sprintf(`SELECT
		COALESCE(SUM(CASE WHEN tipo IN (%s) THEN monto ELSE 0 END), 0) AS ingresos,
		COALESCE(SUM(CASE WHEN tipo IN (%s) THEN monto ELSE 0 END), 0) AS egresos
		FROM %s WHERE fecha = ?`, kindList(IncomeKinds), kindList(ExpenseKinds), s.table("Transacciones"))
	rows, err := s.q.Query(ctx, query, fecha)
	if err != nil {
		return fmt.Errorf("sum transacciones %s: %w", fecha, err)
	}
	var ingresos, egresos float64
	if rows.Len() > 0 {
		ingresos = db.AsFloat(rows.Records[0]["ingresos"])
		egresos = db.AsFloat(rows.Records[0]["egresos"])
	}
	_, _, err = s.upsertBalance(ctx, fecha, ingresos, egresos)
	return err
}

func isIncome(tipo string) bool  { return contains(IncomeKinds, tipo) }
func isExpense(tipo string) bool { return contains(ExpenseKinds, tipo) }

func contains(list []string, v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
