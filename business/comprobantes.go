package business

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/db"
)

const (
	DefaultPageSize = 50
	defaultEstado   = "Pendiente"
)

// Item is a voucher line. Subtotal is cantidad * precio_unitario.
type Item struct {
	IDArticulo     Number `json:"id_articulo"`
	Descripcion    string `json:"descripcion"`
	Cantidad       Number `json:"cantidad"`
	PrecioUnitario Number `json:"precio_unitario"`
}

// Comprobante is the writable shape of a voucher.
type Comprobante struct {
	IDTipoComprobante Number `json:"id_tipo_comprobante"`
	IDCliente         Number `json:"id_cliente"`
	Numero            string `json:"numero"`
	Fecha             string `json:"fecha"`
	Total             Number `json:"total"`
	Estado            string `json:"estado"`
	Observaciones     string `json:"observaciones"`
	Items             []Item `json:"items,omitempty"`
}

func (c *Comprobante) validate() error {
	if c.IDTipoComprobante.Int() == 0 || strings.TrimSpace(c.Numero) == "" ||
		strings.TrimSpace(c.Fecha) == "" || !c.Total.Set {
		return invalid("Faltan campos obligatorios: tipo de comprobante, número, fecha y total")
	}
	for i, it := range c.Items {
		if strings.TrimSpace(it.Descripcion) == "" || it.Cantidad.Value <= 0 {
			return invalid(fmt.Sprintf("ítem %d: descripción y cantidad requeridas", i+1))
		}
	}
	return nil
}

var comprobanteCols = []string{
	"id_tipo_comprobante", "id_cliente", "numero", "fecha", "total", "estado", "observaciones",
}

func (c *Comprobante) args() []any {
	estado := strings.TrimSpace(c.Estado)
	if estado == "" {
		estado = defaultEstado
	}
	fecha := strings.TrimSpace(c.Fecha)
	if t, ok := db.AsTime(fecha); ok {
		fecha = t.Format("2006-01-02")
	}
	return []any{c.IDTipoComprobante.Int(), c.IDCliente.intArg(), strings.TrimSpace(c.Numero),
		fecha, c.Total.Value, estado, c.Observaciones}
}

// ComprobanteFilters narrow List. Zero values are ignored.
type ComprobanteFilters struct {
	Search string `query:"search"`
	Tipo   int64  `query:"tipo"`
	Estado string `query:"estado"`
}

// Page is one page of a listing plus the unpaged total.
type Page struct {
	Data  []db.Record `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Comprobantes manages vouchers and their line items.
type Comprobantes struct {
	store Store
	Now   func() time.Time
}

func NewComprobantes(store Store) *Comprobantes {
	return &Comprobantes{store: store, Now: time.Now}
}

func (s *Comprobantes) q(name string) string {
	return s.store.SQLDialect().Quote(name)
}

// Tipos lists the active voucher kinds by name.
func (s *Comprobantes) Tipos(ctx context.Context) (*db.Rows, error) {
	return s.store.Query(ctx, fmt.Sprintf(
		"SELECT id, nombre, codigo, descripcion FROM %s WHERE activo = 1 ORDER BY nombre", s.q("TipoComprobante")))
}

// AllTipos lists every voucher kind, active or not.
func (s *Comprobantes) AllTipos(ctx context.Context) (*db.Rows, error) {
	return s.store.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY nombre", s.q("TipoComprobante")))
}

// List returns a page of vouchers joined with client and kind. The page
// and the total are fetched concurrently.
func (s *Comprobantes) List(ctx context.Context, f ComprobanteFilters, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	d := s.store.SQLDialect()

	var conds []string
	var args []any
	if f.Search != "" {
		conds = append(conds, "(C.numero LIKE ? OR CL.nombre LIKE ? OR T.nombre LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}
	if f.Tipo > 0 {
		conds = append(conds, "T.id = ?")
		args = append(args, f.Tipo)
	}
	if f.Estado != "" {
		conds = append(conds, "C.estado = ?")
		args = append(args, f.Estado)
	}

	from := fmt.Sprintf(` FROM %s C
		LEFT JOIN %s CL ON C.id_cliente = CL.id
		LEFT JOIN %s T ON C.id_tipo_comprobante = T.id
		WHERE %s`, s.q("Comprobantes"), s.q("Clientes"), s.q("TipoComprobante"), where(conds))

	clientName := fmt.Sprintf("COALESCE(%s, 'Sin cliente')", d.Concat("CL.nombre", "' '", "COALESCE(CL.apellido, '')"))
	listSQL := `SELECT C.id, C.numero, C.fecha, C.total, C.estado, C.observaciones,
		CL.id AS cliente_id, ` + clientName + ` AS cliente_nombre,
		T.id AS tipo_id, T.nombre AS tipo_nombre, T.codigo AS tipo_codigo` +
		from + d.Paginate("C.fecha DESC, C.id DESC", limit, (page-1)*limit)
	countSQL := "SELECT COUNT(*) AS total" + from

	var (
		list  *db.Rows
		count *db.Rows
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.store.Query(gctx, listSQL, args...)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = s.store.Query(gctx, countSQL, args...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list comprobantes: %w", err)
	}
	return &Page{Data: list.Records, Total: db.AsInt(first(count)["total"]), Page: page, Limit: limit}, nil
}

// Create stores a voucher and its items in one transaction. A duplicate
// numero is a validation error.
func (s *Comprobantes) Create(ctx context.Context, c Comprobante) (db.Record, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	var created db.Record
	err := s.store.WithTx(ctx, func(tx *db.Tx) error {
		dup, err := tx.Query(ctx, fmt.Sprintf("SELECT id FROM %s WHERE numero = ?", s.q("Comprobantes")), strings.TrimSpace(c.Numero))
		if err != nil {
			return err
		}
		if dup.Len() > 0 {
			return invalid("Ya existe un comprobante con ese número")
		}

		rows, err := tx.Query(ctx, tx.SQLDialect().InsertReturning("Comprobantes", comprobanteCols), c.args()...)
		if err != nil {
			return fmt.Errorf("insert comprobante: %w", err)
		}
		created = first(rows)
		return s.insertItems(ctx, tx, db.AsInt(created["id"]), c.Items)
	})
	if err != nil {
		return nil, err
	}
	applog.Event("business", "comprobante created", "numero", c.Numero, "items", len(c.Items))
	return created, nil
}

func (s *Comprobantes) insertItems(ctx context.Context, tx *db.Tx, id int64, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	cols := []string{"id_comprobante", "id_articulo", "descripcion", "cantidad", "precio_unitario", "subtotal"}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?)",
		s.q("DetalleComprobante"), tx.SQLDialect().QuoteAll(cols))
	for i, it := range items {
		subtotal := it.Cantidad.Value * it.PrecioUnitario.Value
		if _, err := tx.Exec(ctx, stmt, id, it.IDArticulo.intArg(), it.Descripcion,
			it.Cantidad.Value, it.PrecioUnitario.Value, subtotal); err != nil {
			return fmt.Errorf("insert item %d: %w", i+1, err)
		}
	}
	return nil
}

// Items returns the line items of a voucher.
func (s *Comprobantes) Items(ctx context.Context, id int64) (*db.Rows, error) {
	return s.store.Query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id_comprobante = ? ORDER BY id", s.q("DetalleComprobante")), id)
}

// Update overwrites a voucher's header fields.
func (s *Comprobantes) Update(ctx context.Context, id int64, c Comprobante) (db.Record, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	exists, err := s.store.Query(ctx, fmt.Sprintf("SELECT id FROM %s WHERE id = ?", s.q("Comprobantes")), id)
	if err != nil {
		return nil, err
	}
	if exists.Len() == 0 {
		return nil, notFound("Comprobante")
	}
	rows, err := s.store.Query(ctx, s.store.SQLDialect().UpdateReturning("Comprobantes", comprobanteCols, "id = ?"),
		append(c.args(), id)...)
	if err != nil {
		return nil, fmt.Errorf("update comprobante: %w", err)
	}
	return first(rows), nil
}

// Delete removes a voucher and its items.
func (s *Comprobantes) Delete(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id_comprobante = ?", s.q("DetalleComprobante")), id); err != nil {
			return err
		}
		n, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.q("Comprobantes")), id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("Comprobante")
		}
		return nil
	})
}

// Estadisticas summarizes the vouchers of the last month.
func (s *Comprobantes) Estadisticas(ctx context.Context) (db.Record, error) {
	since := s.Now().AddDate(0, -1, 0).Format("2006-01-02")
	rows, err := s.store.Query(ctx, fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COALESCE(SUM(total), 0) AS total_monto,
		COALESCE(AVG(total), 0) AS promedio_monto,
		COUNT(CASE WHEN estado = 'Completado' THEN 1 END) AS completados,
		COUNT(CASE WHEN estado = 'Pendiente' THEN 1 END) AS pendientes,
		COUNT(CASE WHEN estado = 'Cancelado' THEN 1 END) AS cancelados
		FROM %s WHERE fecha >= ?`, s.q("Comprobantes")), since)
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// ProximoNumero proposes the next numero for a voucher kind, formatted
// as <codigo>-NNN.
func (s *Comprobantes) ProximoNumero(ctx context.Context, tipoID int64) (string, error) {
	tipo, err := s.store.Query(ctx, fmt.Sprintf("SELECT codigo FROM %s WHERE id = ?", s.q("TipoComprobante")), tipoID)
	if err != nil {
		return "", err
	}
	if tipo.Len() == 0 {
		return "", notFound("Tipo de comprobante")
	}
	codigo := db.AsString(tipo.Records[0]["codigo"])

	last, err := s.store.Query(ctx, fmt.Sprintf("SELECT MAX(numero) AS ultimo FROM %s WHERE numero LIKE ?", s.q("Comprobantes")), codigo+"-%")
	if err != nil {
		return "", err
	}
	next := 1
	if ultimo := db.AsString(first(last)["ultimo"]); ultimo != "" {
		if parts := strings.SplitN(ultimo, "-", 2); len(parts) == 2 {
			if n, err := strconv.Atoi(parts[1]); err == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%03d", codigo, next), nil
}
