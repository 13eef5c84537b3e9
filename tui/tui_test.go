package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvrodados/mvrodados/chat"
)

// fakeServer answers the client endpoints with canned data and records
// the last chat request.
func fakeServer(t *testing.T, last *map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if last != nil {
			*last = body
		}
		if body["message"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"El mensaje es requerido"}`))
			return
		}
		_, _ = w.Write([]byte(`{"conversationId":"c0ffee00-1234","response":{"text":"Tenemos la Yamaha FZ25.","sources":[{"name":"Motos"}],"timestamp":"2024-03-15T10:00:00Z"}}`))
	})
	mux.HandleFunc("/api/history/c0ffee00-1234", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			_, _ = w.Write([]byte(`{"success":true,"message":"Historial limpiado"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"history":[{"role":"user","content":"hola"},{"role":"assistant","content":"¡Hola!"}]}`))
	})
	mux.HandleFunc("/api/conversations", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"conversations":[{"id":"c0ffee00-1234","lastMessage":"¡Hola!","lastActivity":"2024-03-15T10:00:00Z"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientChat(t *testing.T) {
	var last map[string]string
	srv := fakeServer(t, &last)
	c := NewClient(srv.URL + "/")

	resp, err := c.Chat(t.Context(), "que yamaha tienen", "")
	require.NoError(t, err)
	assert.Equal(t, "c0ffee00-1234", resp.ConversationID)
	assert.Equal(t, "Tenemos la Yamaha FZ25.", resp.Response.Text)
	assert.Equal(t, map[string]string{"message": "que yamaha tienen"}, last)

	_, err = c.Chat(t.Context(), "", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "El mensaje es requerido")
	assert.Contains(t, err.Error(), "400")
}

func TestClientHistoryAndConversations(t *testing.T) {
	c := NewClient(fakeServer(t, nil).URL)

	msgs, err := c.History(t.Context(), "c0ffee00-1234")
	require.NoError(t, err)
	assert.Equal(t, []chat.Message{{Role: "user", Content: "hola"}, {Role: "assistant", Content: "¡Hola!"}}, msgs)

	convs, err := c.Conversations(t.Context())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "¡Hola!", convs[0].LastMessage)

	require.NoError(t, c.Clear(t.Context(), "c0ffee00-1234"))
	_, err = c.History(t.Context(), "missing")
	assert.Error(t, err)
}

func typeText(v View, s string) View {
	for _, r := range s {
		v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return v
}

func TestChatViewSendsAndRendersReply(t *testing.T) {
	var last map[string]string
	cv := NewChatView(NewClient(fakeServer(t, &last).URL), "")
	cv.SetSize(100, 40)
	require.Nil(t, cv.Init())

	var v View = cv
	v = typeText(v, "que yamaha")
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, cv.loading)
	assert.Empty(t, cv.input)

	msg := cmd()
	reply, ok := msg.(ChatReplyMsg)
	require.True(t, ok)
	require.NoError(t, reply.Err)

	v.Update(reply)
	assert.False(t, cv.loading)
	assert.Equal(t, "c0ffee00-1234", cv.ConversationID())
	rendered := strings.Join(cv.renderChat(), "\n")
	assert.Contains(t, rendered, "que yamaha")
	assert.Contains(t, rendered, "Tenemos la Yamaha FZ25.")
	assert.Contains(t, rendered, "Fuentes: Motos")

	// the follow-up carries the conversation id
	v = typeText(v, "y precio")
	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	assert.Equal(t, "c0ffee00-1234", last["conversationId"])
}

func TestChatViewNewConversationResets(t *testing.T) {
	cv := NewChatView(NewClient(fakeServer(t, nil).URL), "c0ffee00-1234")
	cv.SetSize(100, 40)
	cmd := cv.Init()
	require.NotNil(t, cmd)
	cv.Update(cmd())
	require.Len(t, cv.turns, 2)

	cv.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Empty(t, cv.ConversationID())
	assert.Empty(t, cv.turns)
}

func TestAppOpensConversationFromList(t *testing.T) {
	app := NewApp(NewClient(fakeServer(t, nil).URL), "")
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, TabConversations, app.activeTab)
	app.Update(cmd())

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	open := cmd()
	assert.Equal(t, OpenConversationMsg{ID: "c0ffee00-1234"}, open)

	_, cmd = app.Update(open)
	assert.Equal(t, TabChat, app.activeTab)
	app.Update(cmd())
	cv := app.views[TabChat].(*ChatView)
	assert.Equal(t, "c0ffee00-1234", cv.ConversationID())
	assert.Len(t, cv.turns, 2)
	assert.Contains(t, app.View(), "MvRodados")
}

func TestViewportWrapsByRune(t *testing.T) {
	vp := NewViewport(4, 3)
	vp.SetWrap(true)
	vp.SetContentLines([]string{"¡Hola, ñandú!"})
	assert.Equal(t, []string{"¡Hol", "a, ñ", "andú", "!"}, vp.lines())
	assert.Equal(t, 1, vp.maxScrollY())

	vp.End()
	out := vp.Render()
	assert.Contains(t, out, "andú")
	assert.NotContains(t, out, "¡Hol")
}
