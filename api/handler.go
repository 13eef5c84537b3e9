// Package api exposes the assistant and the admin panel over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mvrodados/mvrodados/accounting"
	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/business"
	"github.com/mvrodados/mvrodados/chat"
	"github.com/mvrodados/mvrodados/db"
	"github.com/mvrodados/mvrodados/retrieval"
	"github.com/mvrodados/mvrodados/sqlgen"
)

// Version is reported by /health.
const Version = "1.0.0"

// Deps are the services behind the routes. Any of them may be nil in
// tests that do not hit the matching routes.
type Deps struct {
	Chat         *chat.Service
	Tables       *business.Tables
	Comprobantes *business.Comprobantes
	Articulos    *business.Articulos
	Accounting   *accounting.Service
	Retrieval    *retrieval.Service
	Catalog      *sqlgen.Catalog
}

// Handler handles HTTP requests.
type Handler struct {
	chat         *chat.Service
	tables       *business.Tables
	comprobantes *business.Comprobantes
	articulos    *business.Articulos
	accounting   *accounting.Service
	retrieval    *retrieval.Service
	catalog      *sqlgen.Catalog

	started time.Time
}

// NewHandler creates a new handler.
func NewHandler(d Deps) *Handler {
	if d.Catalog == nil {
		d.Catalog = sqlgen.DefaultCatalog()
	}
	return &Handler{
		chat:         d.Chat,
		tables:       d.Tables,
		comprobantes: d.Comprobantes,
		articulos:    d.Articulos,
		accounting:   d.Accounting,
		retrieval:    d.Retrieval,
		catalog:      d.Catalog,
		started:      time.Now(),
	}
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	// Chat
	g.POST("/chat", h.Chat)
	g.GET("/history", h.AllHistory)
	g.GET("/history/:conversationId", h.ConversationHistory)
	g.DELETE("/history/:conversationId", h.ClearHistory)
	g.GET("/conversations", h.Conversations)

	// Generic table CRUD
	g.GET("/tables", h.ListTables)
	g.GET("/tables/:tableName", h.TableData)
	g.POST("/tables/:tableName", h.CreateRecord)
	g.PUT("/tables/:tableName/:id", h.UpdateRecord)
	g.DELETE("/tables/:tableName/:id", h.DeleteRecord)
	g.GET("/schema", h.Schema)
	g.GET("/schema/:tableName", h.Schema)
	g.GET("/scripts", h.Scripts)
	g.POST("/scripts/:name", h.RunScript)

	// Comprobantes
	g.GET("/comprobantes/tipos", h.TiposComprobante)
	g.GET("/comprobantes/estadisticas", h.ComprobanteStats)
	g.GET("/comprobantes/proximo-numero/:tipoId", h.ProximoNumero)
	g.GET("/comprobantes", h.ListComprobantes)
	g.POST("/comprobantes", h.CreateComprobante)
	g.PUT("/comprobantes/:id", h.UpdateComprobante)
	g.DELETE("/comprobantes/:id", h.DeleteComprobante)
	g.GET("/tipos", h.AllTiposComprobante)

	// Articulos
	g.GET("/articulos/tipos", h.TiposArticulo)
	g.POST("/articulos/tipos", h.CreateTipoArticulo)
	g.GET("/articulos/estadisticas", h.ArticuloStats)
	g.GET("/articulos", h.ListArticulos)

	// Accounting
	acc := g.Group("/accounting")
	acc.GET("/transacciones", h.ListTransacciones)
	acc.POST("/transacciones", h.CreateTransaccion)
	acc.PUT("/transacciones/:id", h.UpdateTransaccion)
	acc.DELETE("/transacciones/:id", h.DeleteTransaccion)
	acc.GET("/balances", h.ListBalances)
	acc.POST("/balances", h.CreateBalance)
	acc.PUT("/balances/:id", h.UpdateBalance)
	acc.DELETE("/balances/:id", h.DeleteBalance)
	acc.GET("/estadisticas", h.AccountingStats)

	// Documents
	g.GET("/documents", h.ListDocuments)
	g.POST("/documents", h.UploadDocument)
	g.POST("/documents/ask", h.AskDocuments)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// fail writes err as {success:false, error}. Validation problems are
// 400, missing rows and unknown tables 404, anything else 500.
func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, business.ErrValidation),
		errors.Is(err, accounting.ErrValidation),
		errors.Is(err, db.ErrUnknownColumn),
		errors.Is(err, sqlgen.ErrEmptyData),
		errors.Is(err, sqlgen.ErrConditionRequired),
		errors.Is(err, sqlgen.ErrInvalidCondition),
		errors.Is(err, sqlgen.ErrUnsupportedAction):
		status = http.StatusBadRequest
	case errors.Is(err, business.ErrNotFound),
		errors.Is(err, accounting.ErrNotFound),
		errors.Is(err, db.ErrUnknownTable):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		applog.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
	}
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   business.Message(err),
	})
}

// bindBody decodes only the request body. c.Bind would also copy path
// params into map destinations.
func bindBody(c echo.Context, v interface{}) error {
	return (&echo.DefaultBinder{}).BindBody(c, v)
}

func bindQuery(c echo.Context, v interface{}) error {
	return (&echo.DefaultBinder{}).BindQueryParams(c, v)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": msg})
}

// idParam parses a positive integer path parameter.
func idParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryInt reads an integer query parameter, falling back to def.
func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// records never returns nil so listings encode as [].
func records(rows *db.Rows) []db.Record {
	if rows.Len() == 0 {
		return []db.Record{}
	}
	return rows.Records
}

func list(c echo.Context, rows *db.Rows, err error) error {
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records(rows),
		"total":   rows.Len(),
	})
}
