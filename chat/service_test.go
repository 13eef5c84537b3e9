package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mvrodados/mvrodados/accounting"
	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/ai/aitest"
	"github.com/mvrodados/mvrodados/chat"
	"github.com/mvrodados/mvrodados/db"
	"github.com/mvrodados/mvrodados/retrieval"
	"github.com/mvrodados/mvrodados/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db   *db.DB
	fake *aitest.Fake
	svc  *chat.Service
}

func newFixture(t *testing.T, fake *aitest.Fake, showSQL bool) *fixture {
	t.Helper()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, d.CreateDemoSchema(context.Background()))

	defaults := db.Defaults{Now: func() time.Time { return fixedNow }}
	acc := accounting.NewService(d)
	acc.Now = func() time.Time { return fixedNow }

	svc := chat.NewService(chat.Deps{
		Store:       d,
		Sessions:    chat.NewMemorySessionStore(time.Hour),
		History:     chat.NewHistoryRepo(d),
		Interpreter: ai.NewInterpreter(fake, defaults),
		Retrieval:   retrieval.NewService(d, nil, fake, nil),
		Accounting:  acc,
		Web:         websearch.New(websearch.ModeSimulate, "", fake),
		ShowSQL:     showSQL,
	})
	svc.Now = func() time.Time { return fixedNow }
	return &fixture{db: d, fake: fake, svc: svc}
}

func TestSelectCreatesConversation(t *testing.T) {
	f := newFixture(t, aitest.Reply(`{"action":"select","table":"Clientes"}`), false)
	ctx := context.Background()

	res := f.svc.ProcessMessage(ctx, "mostrar clientes", "")
	_, err := uuid.Parse(res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "📊 **Clientes** - No se encontraron registros.", res.Response.Text)
	assert.Equal(t, []retrieval.Source{}, res.Response.Sources)
	assert.Equal(t, fixedNow, res.Response.Timestamp)

	_, err = f.db.Exec(ctx, "INSERT INTO Clientes (nombre, apellido) VALUES (?, ?)", "Juan", "Perez")
	require.NoError(t, err)

	again := f.svc.ProcessMessage(ctx, "mostrar clientes", res.ConversationID)
	assert.Equal(t, res.ConversationID, again.ConversationID)
	assert.True(t, strings.HasPrefix(again.Response.Text, "📊 **Clientes** - 1 registros encontrados:"))
	assert.Contains(t, again.Response.Text, "• nombre: Juan")
	assert.NotContains(t, again.Response.Text, "• email:")
}

func TestInsertThroughKeywordFallback(t *testing.T) {
	f := newFixture(t, aitest.Failing(errors.New("groq down")), true)
	ctx := context.Background()

	res := f.svc.ProcessMessage(ctx, "agregar cliente Juan Perez", "")
	assert.True(t, strings.HasPrefix(res.Response.Text, "✅ Registro insertado en Clientes"))
	assert.Contains(t, res.Response.Text, "```sql\nINSERT INTO \"Clientes\"")

	rows, err := f.db.Query(ctx, "SELECT nombre, apellido, email, fecha_registro FROM Clientes")
	require.NoError(t, err)
	require.Equal(t, 1, rows.Len())
	assert.Equal(t, "Juan", rows.Records[0]["nombre"])
	assert.Equal(t, "Perez", rows.Records[0]["apellido"])
	assert.Nil(t, rows.Records[0]["email"])
	assert.Nil(t, rows.Records[0]["fecha_registro"])
}

func TestInsertLeavesOptionalColumnsNull(t *testing.T) {
	f := newFixture(t, aitest.Reply(`{"action":"insert","table":"Clientes","data":{"nombre":"Juan","apellido":"Perez"}}`), true)
	ctx := context.Background()

	res := f.svc.ProcessMessage(ctx, "agregar cliente Juan Perez", "")
	require.True(t, strings.HasPrefix(res.Response.Text, "✅ Registro insertado en Clientes"), res.Response.Text)
	assert.NotContains(t, res.Response.Text, "Por definir")

	rows, err := f.db.Query(ctx, "SELECT email, telefono, direccion, fecha_registro FROM Clientes")
	require.NoError(t, err)
	require.Equal(t, 1, rows.Len())
	for _, col := range []string{"email", "telefono", "direccion", "fecha_registro"} {
		assert.Nil(t, rows.Records[0][col], col)
	}
}

func TestInsertComprobanteWithoutClienteKeepsForeignKeys(t *testing.T) {
	f := newFixture(t, aitest.Reply(`{"action":"insert","table":"Comprobantes","data":{"id_tipo_comprobante":1,"numero":"F-0001","total":100}}`), false)
	ctx := context.Background()
	_, err := f.db.Exec(ctx, "PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	res := f.svc.ProcessMessage(ctx, "agregar comprobante F-0001 por 100", "")
	require.True(t, strings.HasPrefix(res.Response.Text, "✅ Registro insertado en Comprobantes"), res.Response.Text)

	rows, err := f.db.Query(ctx, "SELECT id_cliente, estado, fecha FROM Comprobantes WHERE numero = ?", "F-0001")
	require.NoError(t, err)
	require.Equal(t, 1, rows.Len())
	assert.Nil(t, rows.Records[0]["id_cliente"])
	assert.Equal(t, "Pendiente", rows.Records[0]["estado"])
	assert.Equal(t, "2024-03-15", db.AsString(rows.Records[0]["fecha"]))
}

func TestAccountingShortcutSkipsModel(t *testing.T) {
	fake := aitest.Reply(`{"action":"none"}`)
	f := newFixture(t, fake, false)
	ctx := context.Background()

	_, err := f.db.Exec(ctx, "INSERT INTO Transacciones (tipo, monto, descripcion, categoria, fecha) VALUES (?, ?, ?, ?, ?), (?, ?, ?, ?, ?)",
		"venta", 5000, "Moto", "ventas", "2024-03-02",
		"gasto", 1200, "Luz", "servicios", "2024-03-03")
	require.NoError(t, err)

	res := f.svc.ProcessMessage(ctx, "¿Cómo viene el balance?", "")
	assert.Contains(t, res.Response.Text, "Resumen contable")
	assert.Contains(t, res.Response.Text, "Ingresos: $5.000,00")
	assert.Contains(t, res.Response.Text, "Egresos: $1.200,00")
	assert.Contains(t, res.Response.Text, "Balance: $3.800,00")
	assert.Zero(t, fake.CallCount())
}

func TestCompileErrorBecomesReply(t *testing.T) {
	f := newFixture(t, aitest.Reply(`{"action":"delete","table":"Comprobantes"}`), false)

	res := f.svc.ProcessMessage(context.Background(), "borrar comprobantes", "abc")
	assert.Equal(t, "abc", res.ConversationID)
	assert.True(t, strings.HasPrefix(res.Response.Text, "⚠️ Lo siento, ocurrió un error:"))
	assert.Contains(t, res.Response.Text, "condición requerida")
	assert.True(t, strings.HasSuffix(res.Response.Text, "Por favor, intenta de nuevo."))
}

func TestWebSearchRoute(t *testing.T) {
	fake := &aitest.Fake{Replies: []string{`{"action":"none"}`, "Entre $2.000.000 y $2.500.000."}}
	f := newFixture(t, fake, false)

	res := f.svc.ProcessMessage(context.Background(), "buscar precio honda wave", "")
	assert.Contains(t, res.Response.Text, "Entre $2.000.000 y $2.500.000.")
	assert.Contains(t, res.Response.Text, "honda wave")
	assert.Equal(t, 2, fake.CallCount())
}

func TestRetrievalRoute(t *testing.T) {
	fake := &aitest.Fake{Replies: []string{`{"action":"none"}`, "Tenemos la Yamaha FZ25."}}
	f := newFixture(t, fake, false)
	ctx := context.Background()
	_, err := f.db.Exec(ctx, "INSERT INTO Motos (marca, modelo, precio) VALUES (?, ?, ?)", "Yamaha", "FZ25", 4200000)
	require.NoError(t, err)

	res := f.svc.ProcessMessage(ctx, "que yamaha tienen", "")
	assert.Equal(t, "Tenemos la Yamaha FZ25.", res.Response.Text)
	assert.Equal(t, []retrieval.Source{{Name: "Motos"}}, res.Response.Sources)
}

func TestHistoryRoundTrip(t *testing.T) {
	f := newFixture(t, aitest.Reply(`{"action":"select","table":"Motos"}`), false)
	ctx := context.Background()

	first := f.svc.ProcessMessage(ctx, "ver motos", "")
	f.svc.ProcessMessage(ctx, "listar motos", first.ConversationID)
	other := f.svc.ProcessMessage(ctx, "ver motos", "")

	msgs, err := f.svc.History(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, chat.Message{Role: chat.RoleUser, Content: "ver motos"}, msgs[0])
	assert.Equal(t, chat.RoleAssistant, msgs[3].Role)

	all, err := f.svc.AllHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	convs, err := f.svc.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.ElementsMatch(t, []string{first.ConversationID, other.ConversationID}, []string{convs[0].ID, convs[1].ID})
	assert.Equal(t, "📊 **Motos** - No se encontraron registros.", convs[0].LastMessage)

	require.NoError(t, f.svc.Clear(ctx, first.ConversationID))
	msgs, err = f.svc.History(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHistoryFallsBackToPersistedRows(t *testing.T) {
	f := newFixture(t, aitest.Reply(`{"action":"select","table":"Motos"}`), false)
	ctx := context.Background()
	res := f.svc.ProcessMessage(ctx, "ver motos", "")

	// A fresh service has an empty session store but the same database.
	fresh := chat.NewService(chat.Deps{Store: f.db, History: chat.NewHistoryRepo(f.db)})
	msgs, err := fresh.History(ctx, res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "ver motos", msgs[0].Content)
}

func TestIsWebSearchQuery(t *testing.T) {
	assert.True(t, chat.IsWebSearchQuery("buscar precio de una Honda Wave"))
	assert.True(t, chat.IsWebSearchQuery("cuanto sale en internet"))
	assert.False(t, chat.IsWebSearchQuery("buscar clientes de Rosario"))
	assert.False(t, chat.IsWebSearchQuery("precio de las motos"))
	assert.False(t, chat.IsWebSearchQuery("hola"))
}

func TestFormatSelectCapsListing(t *testing.T) {
	rows := &db.Rows{Columns: []string{"id", "nombre", "email"}}
	for i := 1; i <= 7; i++ {
		rows.Records = append(rows.Records, db.Record{"id": int64(i), "nombre": "n", "email": nil})
	}
	text := chat.FormatSelect("Clientes", rows)
	assert.True(t, strings.HasPrefix(text, "📊 **Clientes** - 7 registros encontrados:\n\n**Registro 1:**\n• id: 1\n• nombre: n\n"))
	assert.NotContains(t, text, "Registro 6")
	assert.True(t, strings.HasSuffix(text, "\n... y 2 registros más."))
}
