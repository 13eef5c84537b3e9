package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mvrodados/mvrodados/retrieval"
)

// maxUpload bounds an uploaded document.
const maxUpload = 10 << 20

// ListDocuments lists the indexed documents.
// GET /api/documents
func (h *Handler) ListDocuments(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"documents": h.retrieval.Documents().List(),
	})
}

// UploadDocument indexes a multipart "file" field.
// POST /api/documents
func (h *Handler) UploadDocument(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "Se requiere un archivo en el campo 'file'")
	}
	if fh.Size > maxUpload {
		return badRequest(c, "El archivo supera el tamaño máximo de 10 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUpload))
	if err != nil {
		return fail(c, err)
	}

	doc, err := h.retrieval.Documents().Add(fh.Filename, data)
	if errors.Is(err, retrieval.ErrUnsupportedDocument) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"document": doc,
		"message":  "Documento indexado correctamente",
	})
}

// AskRequest is the body of POST /api/documents/ask.
type AskRequest struct {
	Query    string `json:"query"`
	FileName string `json:"fileName"`
}

// AskDocuments answers a question from the documents, or from one
// document when fileName is set.
// POST /api/documents/ask
func (h *Handler) AskDocuments(c echo.Context) error {
	var req AskRequest
	if err := bindBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return badRequest(c, "La consulta es requerida")
	}

	docs := h.retrieval.Documents()
	var sources []string
	if req.FileName != "" {
		if !docs.Has(req.FileName) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{"success": false, "error": "Documento no encontrado"})
		}
		sources = []string{req.FileName}
	} else {
		for _, d := range docs.List() {
			sources = append(sources, d.Name)
		}
		if len(sources) == 0 {
			return c.JSON(http.StatusNotFound, map[string]interface{}{"success": false, "error": "No hay documentos indexados"})
		}
	}

	ans := h.retrieval.AnswerQuery(c.Request().Context(), req.Query, sources...)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"answer":  ans.Text,
		"sources": ans.Sources,
	})
}
