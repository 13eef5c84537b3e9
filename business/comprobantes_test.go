package business

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mvrodados/mvrodados/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, d.CreateDemoSchema(context.Background()))
	return d
}

func factura(numero string, total float64) Comprobante {
	return Comprobante{
		IDTipoComprobante: Num(1),
		Numero:            numero,
		Fecha:             "2024-03-10",
		Total:             Num(total),
	}
}

func TestComprobanteDecodesStringNumbers(t *testing.T) {
	var c Comprobante
	require.NoError(t, json.Unmarshal([]byte(`{"id_tipo_comprobante":"2","id_cliente":"","numero":"FB-001","fecha":"2024-03-10","total":"1500.5"}`), &c))
	assert.Equal(t, int64(2), c.IDTipoComprobante.Int())
	assert.False(t, c.IDCliente.Set)
	assert.Equal(t, 1500.5, c.Total.Value)
}

func TestComprobanteCreateValidates(t *testing.T) {
	s := NewComprobantes(newTestDB(t))
	_, err := s.Create(context.Background(), Comprobante{Numero: "FA-001"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Faltan campos obligatorios: tipo de comprobante, número, fecha y total", Message(err))
}

func TestComprobanteCreateWithItems(t *testing.T) {
	d := newTestDB(t)
	s := NewComprobantes(d)
	ctx := context.Background()

	c := factura("FA-001", 3000)
	c.Items = []Item{
		{Descripcion: "Casco", Cantidad: Num(2), PrecioUnitario: Num(1000)},
		{Descripcion: "Guantes", Cantidad: Num(1), PrecioUnitario: Num(1000)},
	}
	rec, err := s.Create(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "Pendiente", rec["estado"])

	items, err := s.Items(ctx, db.AsInt(rec["id"]))
	require.NoError(t, err)
	require.Equal(t, 2, items.Len())
	assert.InDelta(t, 2000, db.AsFloat(items.Records[0]["subtotal"]), 0.001)

	_, err = s.Create(ctx, factura("FA-001", 10))
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Ya existe un comprobante con ese número", Message(err))
}

func TestComprobanteCreateRollsBackOnItemFailure(t *testing.T) {
	d := newTestDB(t)
	s := NewComprobantes(d)
	ctx := context.Background()
	_, err := d.Exec(ctx, "DROP TABLE DetalleComprobante")
	require.NoError(t, err)

	c := factura("FA-002", 10)
	c.Items = []Item{{Descripcion: "Cubierta", Cantidad: Num(1), PrecioUnitario: Num(10)}}
	_, err = s.Create(ctx, c)
	require.Error(t, err)

	rows, err := d.Query(ctx, "SELECT COUNT(*) AS n FROM Comprobantes")
	require.NoError(t, err)
	assert.Equal(t, int64(0), db.AsInt(rows.Records[0]["n"]))
}

func TestComprobanteList(t *testing.T) {
	d := newTestDB(t)
	s := NewComprobantes(d)
	ctx := context.Background()
	_, err := d.Exec(ctx, "INSERT INTO Clientes (nombre, apellido) VALUES (?, ?)", "Juan", "Perez")
	require.NoError(t, err)

	withClient := factura("FA-001", 100)
	withClient.IDCliente = Num(1)
	_, err = s.Create(ctx, withClient)
	require.NoError(t, err)
	later := factura("FA-002", 200)
	later.Fecha = "2024-03-11"
	_, err = s.Create(ctx, later)
	require.NoError(t, err)

	page, err := s.List(ctx, ComprobanteFilters{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "FA-002", page.Data[0]["numero"])
	assert.Equal(t, "Sin cliente", page.Data[0]["cliente_nombre"])
	assert.Equal(t, "Factura A", page.Data[0]["tipo_nombre"])

	page, err = s.List(ctx, ComprobanteFilters{Search: "Juan"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Juan Perez", page.Data[0]["cliente_nombre"])

	page, err = s.List(ctx, ComprobanteFilters{Tipo: 2}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
}

func TestComprobanteUpdateAndDelete(t *testing.T) {
	d := newTestDB(t)
	s := NewComprobantes(d)
	ctx := context.Background()

	_, err := s.Update(ctx, 42, factura("FA-009", 1))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Comprobante no encontrado", Message(err))

	rec, err := s.Create(ctx, factura("FA-003", 50))
	require.NoError(t, err)
	id := db.AsInt(rec["id"])

	upd := factura("FA-003", 75)
	upd.Estado = "Completado"
	rec, err = s.Update(ctx, id, upd)
	require.NoError(t, err)
	assert.Equal(t, "Completado", rec["estado"])

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
}

func TestComprobanteEstadisticas(t *testing.T) {
	d := newTestDB(t)
	s := NewComprobantes(d)
	s.Now = func() time.Time { return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	old := factura("FA-001", 999)
	old.Fecha = "2024-01-05"
	for _, c := range []Comprobante{old, factura("FA-002", 100), factura("FA-003", 300)} {
		_, err := s.Create(ctx, c)
		require.NoError(t, err)
	}

	stats, err := s.Estadisticas(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), db.AsInt(stats["total"]))
	assert.InDelta(t, 400, db.AsFloat(stats["total_monto"]), 0.001)
	assert.InDelta(t, 200, db.AsFloat(stats["promedio_monto"]), 0.001)
	assert.Equal(t, int64(2), db.AsInt(stats["pendientes"]))
}

func TestProximoNumero(t *testing.T) {
	d := newTestDB(t)
	s := NewComprobantes(d)
	ctx := context.Background()

	n, err := s.ProximoNumero(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "FA-001", n)

	_, err = s.Create(ctx, factura("FA-007", 1))
	require.NoError(t, err)
	n, err = s.ProximoNumero(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "FA-008", n)

	_, err = s.ProximoNumero(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
