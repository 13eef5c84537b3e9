package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvrodados/mvrodados/accounting"
	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/ai/aitest"
	"github.com/mvrodados/mvrodados/business"
	"github.com/mvrodados/mvrodados/chat"
	"github.com/mvrodados/mvrodados/db"
	"github.com/mvrodados/mvrodados/retrieval"
	"github.com/mvrodados/mvrodados/websearch"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, fake *aitest.Fake) (*Handler, *db.DB) {
	t.Helper()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, d.CreateDemoSchema(context.Background()))

	acc := accounting.NewService(d)
	acc.Now = func() time.Time { return fixedNow }
	rs := retrieval.NewService(d, retrieval.NewDocumentIndex(), fake, nil)
	chatSvc := chat.NewService(chat.Deps{
		Store:       d,
		History:     chat.NewHistoryRepo(d),
		Interpreter: ai.NewInterpreter(fake, db.Defaults{Now: func() time.Time { return fixedNow }}),
		Retrieval:   rs,
		Accounting:  acc,
		Web:         websearch.New(websearch.ModeSimulate, "", fake),
	})

	h := NewHandler(Deps{
		Chat:         chatSvc,
		Tables:       business.NewTables(d),
		Comprobantes: business.NewComprobantes(d),
		Articulos:    business.NewArticulos(d),
		Accounting:   acc,
		Retrieval:    rs,
	})
	return h, d
}

func newTestServer(t *testing.T, fake *aitest.Fake) (*echo.Echo, *db.DB) {
	h, d := newTestHandler(t, fake)
	return NewServer(h), d
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, aitest.Reply(`{"action":"none"}`))
	code, body := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestChatRequiresMessage(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, aitest.Reply(`{"action":"none"}`))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"conversationId":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"El mensaje es requerido"}`, rec.Body.String())
}

func TestChatConversationLifecycle(t *testing.T) {
	e, _ := newTestServer(t, aitest.Reply(`{"action":"select","table":"Motos"}`))

	code, body := do(t, e, http.MethodPost, "/api/chat", `{"message":"ver motos"}`)
	require.Equal(t, http.StatusOK, code)
	id, _ := body["conversationId"].(string)
	require.NotEmpty(t, id)
	resp := body["response"].(map[string]interface{})
	assert.Equal(t, "📊 **Motos** - No se encontraron registros.", resp["text"])
	assert.Equal(t, []interface{}{}, resp["sources"])

	code, body = do(t, e, http.MethodPost, "/api/chat", fmt.Sprintf(`{"message":"listar motos","conversationId":%q}`, id))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, body["conversationId"])

	code, body = do(t, e, http.MethodGet, "/api/history/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["history"], 4)

	code, body = do(t, e, http.MethodGet, "/api/conversations", "")
	require.Equal(t, http.StatusOK, code)
	convs := body["conversations"].([]interface{})
	require.Len(t, convs, 1)
	assert.Equal(t, id, convs[0].(map[string]interface{})["id"])

	code, body = do(t, e, http.MethodDelete, "/api/history/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Historial limpiado", body["message"])

	code, body = do(t, e, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, body["history"])
}

func TestTableCRUD(t *testing.T) {
	e, _ := newTestServer(t, aitest.Reply(`{"action":"none"}`))

	code, body := do(t, e, http.MethodGet, "/api/tables", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body["tables"], "Clientes")

	code, body = do(t, e, http.MethodPost, "/api/tables/Clientes", `{"nombre":"Ana","apellido":"Gomez"}`)
	require.Equal(t, http.StatusOK, code, body)
	id := int(body["data"].(map[string]interface{})["id"].(float64))
	require.NotZero(t, id)

	code, _ = do(t, e, http.MethodPut, fmt.Sprintf("/api/tables/Clientes/%d", id), `{"telefono":"555-1234"}`)
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, e, http.MethodGet, "/api/tables/Clientes?search=gomez", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, "555-1234", body["data"].([]interface{})[0].(map[string]interface{})["telefono"])

	code, _ = do(t, e, http.MethodDelete, fmt.Sprintf("/api/tables/Clientes/%d", id), "")
	assert.Equal(t, http.StatusOK, code)
	code, body = do(t, e, http.MethodDelete, fmt.Sprintf("/api/tables/Clientes/%d", id), "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
}

func TestTableErrors(t *testing.T) {
	e, _ := newTestServer(t, aitest.Reply(`{"action":"none"}`))

	code, body := do(t, e, http.MethodGet, "/api/tables/Nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])

	code, _ = do(t, e, http.MethodPost, "/api/tables/Clientes", `{"nombre":"x","apellido":"y","hack":1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, e, http.MethodPut, "/api/tables/Clientes/abc", `{"nombre":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSchemaAndScripts(t *testing.T) {
	e, d := newTestServer(t, aitest.Reply(`{"action":"none"}`))

	code, body := do(t, e, http.MethodGet, "/api/schema/clientes", "")
	require.Equal(t, http.StatusOK, code)
	cols := body["schema"].([]interface{})
	assert.Equal(t, "id", cols[0].(map[string]interface{})["name"])

	code, body = do(t, e, http.MethodGet, "/api/schema", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body["schema"], "Motos")

	code, body = do(t, e, http.MethodGet, "/api/scripts", "")
	require.Equal(t, http.StatusOK, code)
	scripts := body["scripts"].(map[string]interface{})
	assert.Contains(t, scripts["generales"], "select_all")

	_, err := d.Exec(context.Background(), "INSERT INTO Clientes (nombre, apellido) VALUES (?, ?)", "Ana", "Gomez")
	require.NoError(t, err)
	code, body = do(t, e, http.MethodPost, "/api/scripts/Clientes.total_clientes", `{}`)
	require.Equal(t, http.StatusOK, code)
	row := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(1), row["total_clientes"])
}

func TestComprobantesEndpoints(t *testing.T) {
	e, _ := newTestServer(t, aitest.Reply(`{"action":"none"}`))

	code, body := do(t, e, http.MethodPost, "/api/comprobantes", `{"numero":"FA-001"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Faltan campos obligatorios: tipo de comprobante, número, fecha y total", body["error"])

	factura := `{"id_tipo_comprobante":"1","numero":"FA-001","fecha":"2024-03-10","total":"1500"}`
	code, body = do(t, e, http.MethodPost, "/api/comprobantes", factura)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Comprobante creado correctamente", body["message"])

	code, body = do(t, e, http.MethodPost, "/api/comprobantes", factura)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Ya existe un comprobante con ese número", body["error"])

	code, body = do(t, e, http.MethodGet, "/api/comprobantes?estado=Pendiente", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(1), body["page"])

	code, body = do(t, e, http.MethodGet, "/api/comprobantes/proximo-numero/1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "FA-002", body["data"].(map[string]interface{})["numero"])

	code, body = do(t, e, http.MethodDelete, "/api/comprobantes/999", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Comprobante no encontrado", body["error"])

	code, body = do(t, e, http.MethodGet, "/api/comprobantes/tipos", "")
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["data"])
}

func TestArticulosEndpoints(t *testing.T) {
	e, _ := newTestServer(t, aitest.Reply(`{"action":"none"}`))

	code, body := do(t, e, http.MethodGet, "/api/articulos/tipos", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 3)

	code, body = do(t, e, http.MethodPost, "/api/articulos/tipos", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "El nombre del tipo es obligatorio", body["error"])

	code, body = do(t, e, http.MethodGet, "/api/articulos?search=nada", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, body["data"])
}

func TestAccountingEndpoints(t *testing.T) {
	e, _ := newTestServer(t, aitest.Reply(`{"action":"none"}`))

	code, body := do(t, e, http.MethodPost, "/api/accounting/transacciones", `{"tipo":"venta","monto":5000}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Faltan campos obligatorios: tipo, monto, descripcion, categoria", body["error"])

	code, body = do(t, e, http.MethodPost, "/api/accounting/transacciones",
		`{"tipo":"venta","monto":5000,"descripcion":"Moto","categoria":"ventas","fecha":"2024-03-02"}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = do(t, e, http.MethodGet, "/api/accounting/balances?fechaDesde=2024-03-01&fechaHasta=2024-03-31", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(5000), body["data"].([]interface{})[0].(map[string]interface{})["balance"])

	code, body = do(t, e, http.MethodGet, "/api/accounting/transacciones?tipo=venta", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	code, _ = do(t, e, http.MethodDelete, "/api/accounting/transacciones/999", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, e, http.MethodGet, "/api/accounting/estadisticas", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "mes", body["periodo"])

	code, _ = do(t, e, http.MethodGet, "/api/accounting/estadisticas?periodo=semana", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func upload(t *testing.T, e *echo.Echo, name string, data []byte) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestDocumentsEndpoints(t *testing.T) {
	e, _ := newTestServer(t, aitest.Reply("La garantía es de 12 meses."))

	code, body := do(t, e, http.MethodPost, "/api/documents/ask", `{"query":"garantía"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No hay documentos indexados", body["error"])

	code, body = upload(t, e, "garantia.txt", []byte("La garantía de las motos nuevas es de 12 meses."))
	require.Equal(t, http.StatusOK, code, body)

	code, _ = upload(t, e, "foto.png", []byte{0x89, 0x50})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, e, http.MethodGet, "/api/documents", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["documents"], 1)

	code, body = do(t, e, http.MethodPost, "/api/documents/ask", `{"query":"garantía meses","fileName":"garantia.txt"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "La garantía es de 12 meses.", body["answer"])
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "garantia.txt"}}, body["sources"])

	code, _ = do(t, e, http.MethodPost, "/api/documents/ask", `{"query":"x","fileName":"otro.pdf"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	h, _ := newTestHandler(t, aitest.Reply(`{"action":"none"}`))
	e := NewServer(h)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, e, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("server did not stop")
	}
}
