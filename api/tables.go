package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ListTables lists the business tables.
// GET /api/tables
func (h *Handler) ListTables(c echo.Context) error {
	names, err := h.tables.Names(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"tables":  names,
	})
}

// TableData returns rows of one table, optionally filtered by ?search.
// GET /api/tables/:tableName
func (h *Handler) TableData(c echo.Context) error {
	limit := queryInt(c, "limit", 100)
	rows, err := h.tables.List(c.Request().Context(), c.Param("tableName"), c.QueryParam("search"), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records(rows),
		"total":   rows.Len(),
		"page":    queryInt(c, "page", 1),
		"limit":   limit,
	})
}

// CreateRecord inserts the JSON body into a table.
// POST /api/tables/:tableName
func (h *Handler) CreateRecord(c echo.Context) error {
	var data map[string]interface{}
	if err := bindBody(c, &data); err != nil {
		return badRequest(c, "invalid request body")
	}
	rec, err := h.tables.Create(c.Request().Context(), c.Param("tableName"), data)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
		"message": "Registro insertado correctamente",
	})
}

// UpdateRecord sets the JSON body on the row with the given primary key.
// PUT /api/tables/:tableName/:id
func (h *Handler) UpdateRecord(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "id inválido")
	}
	var data map[string]interface{}
	if err := bindBody(c, &data); err != nil {
		return badRequest(c, "invalid request body")
	}
	n, err := h.tables.Update(c.Request().Context(), c.Param("tableName"), id, data)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"affectedRows": n,
		"message":      "Registro actualizado correctamente",
	})
}

// DeleteRecord removes the row with the given primary key.
// DELETE /api/tables/:tableName/:id
func (h *Handler) DeleteRecord(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "id inválido")
	}
	n, err := h.tables.Delete(c.Request().Context(), c.Param("tableName"), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"affectedRows": n,
		"message":      "Registro eliminado correctamente",
	})
}

// Schema returns the whole schema or one table's columns.
// GET /api/schema, GET /api/schema/:tableName
func (h *Handler) Schema(c echo.Context) error {
	schema, err := h.tables.Schema(c.Request().Context(), c.Param("tableName"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"schema":  schema,
	})
}

// Scripts lists the canned scripts.
// GET /api/scripts
func (h *Handler) Scripts(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"scripts": h.catalog.Available(),
	})
}

// ScriptRequest is the body of POST /api/scripts/:name.
type ScriptRequest struct {
	Table  string                 `json:"table"`
	Params map[string]interface{} `json:"params"`
}

// RunScript runs a canned script by name ("select_all" or "Clientes.total_clientes").
// POST /api/scripts/:name
func (h *Handler) RunScript(c echo.Context) error {
	var req ScriptRequest
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rows, err := h.tables.RunScript(c.Request().Context(), h.catalog, c.Param("name"), req.Table, req.Params, time.Now())
	return list(c, rows, err)
}
