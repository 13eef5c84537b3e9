package sqlgen

import (
	"testing"
	"time"

	"github.com/mvrodados/mvrodados/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRender(t *testing.T) {
	c := DefaultCatalog()
	now := time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC)

	s, err := c.Render("Clientes.buscar_por_nombre", "", map[string]any{"nombre": "Ana"}, testSchema(), db.SQLite, now)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "Clientes" WHERE nombre LIKE ? OR apellido LIKE ?`, s.SQL)
	assert.Equal(t, []any{"%Ana%", "%Ana%"}, s.Args)

	s, err = c.Render("select_recent", "clientes", map[string]any{"limit": "3"}, testSchema(), db.SQLServer, now)
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP (3) * FROM [Clientes] ORDER BY [id] DESC", s.SQL)

	s, err = c.Render("search_like", "Clientes", map[string]any{"column": "email", "valor": "gmail"}, testSchema(), db.Postgres, now)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "Clientes" WHERE "email" LIKE ?`, s.SQL)
	assert.Equal(t, []any{"%gmail%"}, s.Args)

	s, err = c.Render("Comprobantes.ventas_mes_actual", "", nil, testSchema(), db.SQLite, now)
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-12-01", "2025-01-01"}, s.Args)
}

func TestCatalogRenderErrors(t *testing.T) {
	c := DefaultCatalog()
	now := time.Now()

	_, err := c.Render("no_existe", "Clientes", nil, testSchema(), db.SQLite, now)
	assert.Error(t, err)

	_, err = c.Render("Motos.precio_promedio", "", nil, testSchema(), db.SQLite, now)
	assert.ErrorIs(t, err, db.ErrUnknownTable)

	_, err = c.Render("search_like", "Clientes", map[string]any{"column": "password", "valor": "x"}, testSchema(), db.SQLite, now)
	assert.ErrorIs(t, err, db.ErrUnknownColumn)
}

func TestCatalogAvailable(t *testing.T) {
	got := DefaultCatalog().Available()
	assert.Equal(t, []string{"search_like", "select_all", "select_count", "select_recent"}, got["generales"])
	tablas := got["tablas"].(map[string][]string)
	assert.Equal(t, []string{"buscar_por_nombre", "clientes_recientes", "total_clientes"}, tablas["Clientes"])
	assert.Contains(t, tablas, "Comprobantes")
}
