package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mvrodados/mvrodados/accounting"
)

// ListTransacciones lists ledger entries.
// GET /api/accounting/transacciones?tipo=&fechaDesde=&fechaHasta=
func (h *Handler) ListTransacciones(c echo.Context) error {
	var f accounting.Filters
	if err := bindQuery(c, &f); err != nil {
		return badRequest(c, "filtros inválidos")
	}
	rows, err := h.accounting.Transacciones(c.Request().Context(), f)
	return list(c, rows, err)
}

// CreateTransaccion records a ledger entry and refreshes its day's balance.
// POST /api/accounting/transacciones
func (h *Handler) CreateTransaccion(c echo.Context) error {
	var req accounting.Transaccion
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rec, err := h.accounting.InsertTransaccion(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
		"message": "Transacción registrada correctamente",
	})
}

// UpdateTransaccion rewrites a ledger entry.
// PUT /api/accounting/transacciones/:id
func (h *Handler) UpdateTransaccion(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "id inválido")
	}
	var req accounting.Transaccion
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rec, err := h.accounting.UpdateTransaccion(c.Request().Context(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
		"message": "Transacción actualizada correctamente",
	})
}

// DeleteTransaccion removes a ledger entry.
// DELETE /api/accounting/transacciones/:id
func (h *Handler) DeleteTransaccion(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "id inválido")
	}
	if err := h.accounting.DeleteTransaccion(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Transacción eliminada correctamente",
	})
}

// ListBalances lists day balances.
// GET /api/accounting/balances?fechaDesde=&fechaHasta=
func (h *Handler) ListBalances(c echo.Context) error {
	var f accounting.Filters
	if err := bindQuery(c, &f); err != nil {
		return badRequest(c, "filtros inválidos")
	}
	rows, err := h.accounting.Balances(c.Request().Context(), f)
	return list(c, rows, err)
}

// CreateBalance creates or replaces a day's balance.
// POST /api/accounting/balances
func (h *Handler) CreateBalance(c echo.Context) error {
	var req accounting.Balance
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rec, updated, err := h.accounting.InsertBalance(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	msg := "Balance creado correctamente"
	if updated {
		msg = "Balance actualizado correctamente"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
		"message": msg,
	})
}

// UpdateBalance overwrites a balance row.
// PUT /api/accounting/balances/:id
func (h *Handler) UpdateBalance(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "id inválido")
	}
	var req accounting.Balance
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rec, err := h.accounting.UpdateBalance(c.Request().Context(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
		"message": "Balance actualizado correctamente",
	})
}

// DeleteBalance removes a balance row.
// DELETE /api/accounting/balances/:id
func (h *Handler) DeleteBalance(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "id inválido")
	}
	if err := h.accounting.DeleteBalance(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Balance eliminado correctamente",
	})
}

// AccountingStats groups income and expenses by day or month.
// GET /api/accounting/estadisticas?periodo=mes|año
func (h *Handler) AccountingStats(c echo.Context) error {
	stats, err := h.accounting.Estadisticas(c.Request().Context(), c.QueryParam("periodo"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    stats,
		"periodo": stats.Periodo,
	})
}
