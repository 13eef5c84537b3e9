package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mvrodados/mvrodados/business"
)

// TiposComprobante lists the active voucher kinds.
// GET /api/comprobantes/tipos
func (h *Handler) TiposComprobante(c echo.Context) error {
	rows, err := h.comprobantes.Tipos(c.Request().Context())
	return list(c, rows, err)
}

// AllTiposComprobante lists every voucher kind.
// GET /api/tipos
func (h *Handler) AllTiposComprobante(c echo.Context) error {
	rows, err := h.comprobantes.AllTipos(c.Request().Context())
	return list(c, rows, err)
}

// ListComprobantes returns one page of vouchers.
// GET /api/comprobantes?page=&limit=&search=&tipo=&estado=
func (h *Handler) ListComprobantes(c echo.Context) error {
	var f business.ComprobanteFilters
	if err := bindQuery(c, &f); err != nil {
		return badRequest(c, "filtros inválidos")
	}
	page, err := h.comprobantes.List(c.Request().Context(), f,
		queryInt(c, "page", 1), queryInt(c, "limit", business.DefaultPageSize))
	if err != nil {
		return fail(c, err)
	}
	if page.Data == nil {
		page.Data = records(nil)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    page.Data,
		"total":   page.Total,
		"page":    page.Page,
		"limit":   page.Limit,
	})
}

// CreateComprobante stores a voucher and its items.
// POST /api/comprobantes
func (h *Handler) CreateComprobante(c echo.Context) error {
	var req business.Comprobante
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rec, err := h.comprobantes.Create(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
		"message": "Comprobante creado correctamente",
	})
}

// UpdateComprobante replaces a voucher's header fields.
// PUT /api/comprobantes/:id
func (h *Handler) UpdateComprobante(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "id inválido")
	}
	var req business.Comprobante
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rec, err := h.comprobantes.Update(c.Request().Context(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
		"message": "Comprobante actualizado correctamente",
	})
}

// DeleteComprobante removes a voucher and its items.
// DELETE /api/comprobantes/:id
func (h *Handler) DeleteComprobante(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "id inválido")
	}
	if err := h.comprobantes.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Comprobante eliminado correctamente",
	})
}

// ComprobanteStats summarizes last month's vouchers.
// GET /api/comprobantes/estadisticas
func (h *Handler) ComprobanteStats(c echo.Context) error {
	stats, err := h.comprobantes.Estadisticas(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": stats})
}

// ProximoNumero proposes the next numero for a voucher kind.
// GET /api/comprobantes/proximo-numero/:tipoId
func (h *Handler) ProximoNumero(c echo.Context) error {
	tipoID, ok := idParam(c, "tipoId")
	if !ok {
		return badRequest(c, "tipo inválido")
	}
	numero, err := h.comprobantes.ProximoNumero(c.Request().Context(), tipoID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]string{"numero": numero},
	})
}

// TiposArticulo lists article kinds.
// GET /api/articulos/tipos
func (h *Handler) TiposArticulo(c echo.Context) error {
	rows, err := h.articulos.Tipos(c.Request().Context())
	return list(c, rows, err)
}

// CreateTipoArticulo adds an article kind.
// POST /api/articulos/tipos
func (h *Handler) CreateTipoArticulo(c echo.Context) error {
	var req business.TipoArticulo
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	rec, err := h.articulos.CreateTipo(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rec,
		"message": "Tipo de artículo creado correctamente",
	})
}

// ListArticulos lists active articles.
// GET /api/articulos?search=&tipo=&categoria=
func (h *Handler) ListArticulos(c echo.Context) error {
	var f business.ArticuloFilters
	if err := bindQuery(c, &f); err != nil {
		return badRequest(c, "filtros inválidos")
	}
	rows, err := h.articulos.List(c.Request().Context(), f)
	return list(c, rows, err)
}

// ArticuloStats summarizes stock per article kind.
// GET /api/articulos/estadisticas
func (h *Handler) ArticuloStats(c echo.Context) error {
	rows, err := h.articulos.Estadisticas(c.Request().Context())
	return list(c, rows, err)
}
