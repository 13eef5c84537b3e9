package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// Chat answers one message.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := bindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "El mensaje es requerido"})
	}

	res := h.chat.ProcessMessage(c.Request().Context(), req.Message, req.ConversationID)
	return c.JSON(http.StatusOK, res)
}

// AllHistory returns every persisted turn.
// GET /api/history
func (h *Handler) AllHistory(c echo.Context) error {
	entries, err := h.chat.AllHistory(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"history": entries,
	})
}

// ConversationHistory returns the turns of one conversation.
// GET /api/history/:conversationId
func (h *Handler) ConversationHistory(c echo.Context) error {
	msgs, err := h.chat.History(c.Request().Context(), c.Param("conversationId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"history": msgs,
	})
}

// ClearHistory forgets a conversation.
// DELETE /api/history/:conversationId
func (h *Handler) ClearHistory(c echo.Context) error {
	if err := h.chat.Clear(c.Request().Context(), c.Param("conversationId")); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Historial limpiado",
	})
}

// Conversations lists conversations by recent activity.
// GET /api/conversations
func (h *Handler) Conversations(c echo.Context) error {
	convs, err := h.chat.Conversations(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"conversations": convs,
	})
}
