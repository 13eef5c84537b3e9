package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mvrodados/mvrodados/db"
)

// ArticuloFilters narrow Articulos.List. Zero values are ignored.
type ArticuloFilters struct {
	Search    string `query:"search"`
	Tipo      int64  `query:"tipo"`
	Categoria string `query:"categoria"`
}

// TipoArticulo is the writable shape of an article kind.
type TipoArticulo struct {
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}

// Articulos serves the article catalogue.
type Articulos struct {
	store Store
	Now   func() time.Time
}

func NewArticulos(store Store) *Articulos {
	return &Articulos{store: store, Now: time.Now}
}

func (s *Articulos) q(name string) string {
	return s.store.SQLDialect().Quote(name)
}

// Tipos lists the active article kinds.
func (s *Articulos) Tipos(ctx context.Context) (*db.Rows, error) {
	return s.store.Query(ctx, fmt.Sprintf(
		"SELECT id, nombre, descripcion, activo, fecha_creacion FROM %s WHERE activo = 1 ORDER BY nombre", s.q("TipoArticulo")))
}

// CreateTipo adds an article kind.
func (s *Articulos) CreateTipo(ctx context.Context, t TipoArticulo) (db.Record, error) {
	if strings.TrimSpace(t.Nombre) == "" {
		return nil, invalid("El nombre del tipo es obligatorio")
	}
	rows, err := s.store.Query(ctx,
		s.store.SQLDialect().InsertReturning("TipoArticulo", []string{"nombre", "descripcion", "activo", "fecha_creacion"}),
		strings.TrimSpace(t.Nombre), t.Descripcion, 1, s.Now().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("insert tipo articulo: %w", err)
	}
	return first(rows), nil
}

// List returns active articles with their kind, by name.
func (s *Articulos) List(ctx context.Context, f ArticuloFilters) (*db.Rows, error) {
	conds := []string{"A.activo = 1"}
	var args []any
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, "(A.nombre LIKE ? OR A.marca LIKE ? OR A.descripcion LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Tipo > 0 {
		conds = append(conds, "A.id_tipo_articulo = ?")
		args = append(args, f.Tipo)
	}
	if f.Categoria != "" {
		conds = append(conds, "A.categoria LIKE ?")
		args = append(args, "%"+f.Categoria+"%")
	}
	query := fmt.Sprintf(`SELECT A.*, TA.nombre AS tipo_nombre, TA.descripcion AS tipo_descripcion
		FROM %s A
		INNER JOIN %s TA ON A.id_tipo_articulo = TA.id
		WHERE %s
		ORDER BY A.nombre`, s.q("Articulos"), s.q("TipoArticulo"), where(conds))
	return s.store.Query(ctx, query, args...)
}

// Estadisticas counts articles, stock and stock value per kind.
func (s *Articulos) Estadisticas(ctx context.Context) (*db.Rows, error) {
	return s.store.Query(ctx, fmt.Sprintf(`SELECT
		TA.nombre AS tipo,
		COUNT(A.id) AS cantidad,
		COALESCE(SUM(A.stock), 0) AS total_stock,
		COALESCE(SUM(A.precio_venta * A.stock), 0) AS valor_total
		FROM %s A
		INNER JOIN %s TA ON A.id_tipo_articulo = TA.id
		WHERE A.activo = 1
		GROUP BY TA.nombre, TA.id
		ORDER BY TA.nombre`, s.q("Articulos"), s.q("TipoArticulo")))
}
