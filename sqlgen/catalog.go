package sqlgen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/db"
)

// CatalogScript is a canned query. Generic scripts have no Table and
// take the table name at render time.
//
// Templates use {table}, {column}, {pk}, {head} and {tail} for
// identifiers and limits, and :name for bound parameters.
type CatalogScript struct {
	Name        string   `json:"name"`
	Table       string   `json:"table,omitempty"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`

	template string
	like     []string
	limit    int
}

// Catalog indexes canned scripts by "name" or "Table.name".
type Catalog struct {
	scripts map[string]CatalogScript
}

// DefaultCatalog holds the general scripts and the per-table shortcuts
// used by the admin panel.
func DefaultCatalog() *Catalog {
	c := &Catalog{scripts: map[string]CatalogScript{}}
	for _, s := range []CatalogScript{
		{Name: "select_all", Description: "Todos los registros", template: "{head}* FROM {table} ORDER BY 1 DESC{tail}", limit: DefaultLimit},
		{Name: "select_count", Description: "Cantidad de registros", template: "SELECT COUNT(*) AS total FROM {table}"},
		{Name: "select_recent", Description: "Últimos registros", Params: []string{"limit"}, template: "{head}* FROM {table} ORDER BY {pk} DESC{tail}", limit: 10},
		{Name: "search_like", Description: "Búsqueda por columna", Params: []string{"column", "valor"}, template: "SELECT * FROM {table} WHERE {column} LIKE :valor", like: []string{"valor"}},

		{Table: "Clientes", Name: "buscar_por_nombre", Description: "Clientes por nombre o apellido", Params: []string{"nombre"},
			template: "SELECT * FROM {table} WHERE nombre LIKE :nombre OR apellido LIKE :nombre", like: []string{"nombre"}},
		{Table: "Clientes", Name: "clientes_recientes", Description: "Últimos clientes registrados",
			template: "{head}* FROM {table} ORDER BY fecha_registro DESC{tail}", limit: 10},
		{Table: "Clientes", Name: "total_clientes", Description: "Cantidad de clientes",
			template: "SELECT COUNT(*) AS total_clientes FROM {table}"},

		{Table: "Motos", Name: "buscar_por_marca", Description: "Motos por marca", Params: []string{"marca"},
			template: "SELECT * FROM {table} WHERE marca LIKE :marca", like: []string{"marca"}},
		{Table: "Motos", Name: "motos_disponibles", Description: "Motos disponibles con stock",
			template: "SELECT * FROM {table} WHERE disponible = 1 AND stock > 0"},
		{Table: "Motos", Name: "precio_promedio", Description: "Precio promedio de motos",
			template: "SELECT AVG(precio) AS precio_promedio FROM {table} WHERE precio > 0"},

		{Table: "Articulos", Name: "buscar_por_categoria", Description: "Artículos por categoría", Params: []string{"categoria"},
			template: "SELECT * FROM {table} WHERE categoria LIKE :categoria", like: []string{"categoria"}},
		{Table: "Articulos", Name: "stock_bajo", Description: "Artículos con stock menor a 10",
			template: "SELECT * FROM {table} WHERE stock < 10 AND activo = 1"},

		{Table: "Comprobantes", Name: "ventas_mes_actual", Description: "Comprobantes del mes en curso",
			template: "SELECT * FROM {table} WHERE fecha >= :desde AND fecha < :hasta ORDER BY fecha DESC"},
		{Table: "Comprobantes", Name: "total_ventas", Description: "Total facturado",
			template: "SELECT COALESCE(SUM(total), 0) AS total_ventas FROM {table}"},
		{Table: "Comprobantes", Name: "mejores_clientes", Description: "Clientes con más compras",
			template: "SELECT id_cliente, COUNT(*) AS compras, SUM(total) AS total_gastado FROM {table} WHERE id_cliente IS NOT NULL GROUP BY id_cliente ORDER BY total_gastado DESC"},
	} {
		c.scripts[s.key()] = s
	}
	return c
}

func (s CatalogScript) key() string {
	if s.Table == "" {
		return s.Name
	}
	return s.Table + "." + s.Name
}

// Available lists script names the way GET /api/scripts returns them:
// general names plus per-table names.
func (c *Catalog) Available() map[string]any {
	var generales []string
	tablas := map[string][]string{}
	for _, s := range c.scripts {
		if s.Table == "" {
			generales = append(generales, s.Name)
			continue
		}
		tablas[s.Table] = append(tablas[s.Table], s.Name)
	}
	sort.Strings(generales)
	for t := range tablas {
		sort.Strings(tablas[t])
	}
	return map[string]any{"generales": generales, "tablas": tablas}
}

// Lookup returns the script registered under key.
func (c *Catalog) Lookup(key string) (CatalogScript, bool) {
	s, ok := c.scripts[key]
	return s, ok
}

// Render resolves a script for the given schema and dialect. table is
// required for generic scripts and ignored otherwise. The month bounds
// "desde"/"hasta" are filled from now when absent.
func (c *Catalog) Render(key, table string, params map[string]any, schema db.SchemaMap, dialect db.Dialect, now time.Time) (*Script, error) {
	s, ok := c.scripts[key]
	if !ok {
		return nil, fmt.Errorf("script no encontrado: %s", key)
	}
	if s.Table != "" {
		table = s.Table
	}
	resolved, err := schema.ResolveTable(table)
	if err != nil {
		return nil, err
	}

	limit := s.limit
	if v, ok := params["limit"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(db.AsString(v))); err == nil && n > 0 {
			limit = n
		}
	}

	column := ""
	if strings.Contains(s.template, "{column}") {
		col, err := schema.ResolveColumn(resolved, db.AsString(params["column"]))
		if err != nil {
			return nil, err
		}
		column = dialect.Quote(col.Name)
	}

	head := "SELECT "
	tail := ""
	if limit > 0 {
		head = dialect.SelectHead(limit)
		tail = dialect.LimitTail(limit)
	}
	query := strings.NewReplacer(
		"{table}", dialect.Quote(resolved),
		"{column}", column,
		"{pk}", dialect.Quote(schema.PrimaryKey(resolved)),
		"{head}", head,
		"{tail}", tail,
	).Replace(s.template)

	bound := map[string]any{}
	for k, v := range params {
		bound[k] = v
	}
	for _, name := range s.like {
		bound[name] = "%" + db.AsString(params[name]) + "%"
	}
	if _, ok := bound["desde"]; !ok {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		bound["desde"] = first.Format("2006-01-02")
		bound["hasta"] = first.AddDate(0, 1, 0).Format("2006-01-02")
	}

	sql, args, err := sqlx.Named(query, bound)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", key, err)
	}
	return &Script{Action: ai.ActionSelect, Table: resolved, SQL: sql, Args: args}, nil
}
