package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedDefaults() Defaults {
	return Defaults{Now: func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }}
}

func TestDefaultsNeverNil(t *testing.T) {
	d := fixedDefaults()
	for _, typ := range []string{"int", "decimal", "bit", "date", "datetime2", "nvarchar", "text", "uniqueidentifier", ""} {
		for _, name := range []string{"x", "precio", "fecha_alta", "activo", "estado", "marca", "categoria"} {
			v := d.For(ColumnInfo{Name: name, DataType: typ}, "")
			assert.NotNil(t, v, "%s %s", name, typ)
		}
	}
}

func TestDefaultsByName(t *testing.T) {
	d := fixedDefaults()

	assert.Equal(t, int64(0), d.For(ColumnInfo{Name: "precio_venta", DataType: "decimal"}, ""))
	assert.Equal(t, "2024-03-15", d.For(ColumnInfo{Name: "fecha_registro", DataType: "date"}, ""))
	assert.Equal(t, int64(1), d.For(ColumnInfo{Name: "disponible", DataType: "bit"}, ""))
	assert.Equal(t, "Activo", d.For(ColumnInfo{Name: "estado", DataType: "varchar"}, "nuevo cliente"))
	assert.Equal(t, "Pendiente", d.For(ColumnInfo{Name: "estado", DataType: "varchar"}, "crear factura B"))
	assert.Equal(t, "Yamaha", d.For(ColumnInfo{Name: "marca", DataType: "varchar"}, "agregar moto Yamaha R3"))
	assert.Equal(t, "Generica", d.For(ColumnInfo{Name: "marca", DataType: "varchar"}, "agregar moto"))
	assert.Equal(t, "Enduro", d.For(ColumnInfo{Name: "categoria", DataType: "varchar"}, "moto enduro 250"))
	assert.Equal(t, "General", d.For(ColumnInfo{Name: "categoria", DataType: "varchar"}, ""))
}

func TestDefaultsFallsBackToType(t *testing.T) {
	d := fixedDefaults()

	// "tipo" would give "General" but the column is numeric.
	assert.Equal(t, int64(0), d.For(ColumnInfo{Name: "id_tipo_comprobante", DataType: "int"}, ""))
	assert.Equal(t, "Por definir", d.For(ColumnInfo{Name: "direccion", DataType: "nvarchar"}, ""))
	assert.Equal(t, "2024-03-15", d.For(ColumnInfo{Name: "vigencia", DataType: "date"}, ""))
	assert.Equal(t, "", d.For(ColumnInfo{Name: "guid", DataType: "uniqueidentifier"}, ""))
}

func TestCoerce(t *testing.T) {
	d := fixedDefaults()

	assert.Equal(t, int64(1), d.Coerce(ColumnInfo{DataType: "bit"}, true))
	assert.Equal(t, int64(0), d.Coerce(ColumnInfo{DataType: "varchar"}, "false"))
	assert.Equal(t, int64(1500), d.Coerce(ColumnInfo{DataType: "decimal"}, "1500"))
	assert.Equal(t, 12.5, d.Coerce(ColumnInfo{DataType: "decimal"}, "12.5"))
	assert.Equal(t, int64(0), d.Coerce(ColumnInfo{DataType: "int"}, "abc"))
	assert.Equal(t, "2023-01-02", d.Coerce(ColumnInfo{DataType: "date"}, "2023-01-02"))
	assert.Equal(t, "2024-03-15", d.Coerce(ColumnInfo{DataType: "date"}, "ayer"))
	assert.Equal(t, "42", d.Coerce(ColumnInfo{DataType: "varchar"}, 42))
	assert.Nil(t, d.Coerce(ColumnInfo{DataType: "varchar"}, nil))
}

func TestComplete(t *testing.T) {
	d := fixedDefaults()
	cols := []ColumnInfo{
		{Name: "id", DataType: "integer", IsIdentity: true, IsPK: true},
		{Name: "marca", DataType: "varchar"},
		{Name: "modelo", DataType: "varchar"},
		{Name: "precio", DataType: "decimal"},
		{Name: "stock", DataType: "integer", HasDefault: true},
		{Name: "categoria", DataType: "varchar", IsNullable: true},
	}

	all := d.Complete(cols, map[string]any{"MODELO": "R3", "id": 9, "color": "azul"}, "moto yamaha", false)
	assert.Equal(t, map[string]any{
		"marca":     "Yamaha",
		"modelo":    "R3",
		"precio":    int64(0),
		"stock":     int64(0),
		"categoria": "General",
		"color":     "azul",
	}, all)

	required := d.Complete(cols, map[string]any{"modelo": "R3"}, "", true)
	assert.Equal(t, map[string]any{
		"marca":  "Generica",
		"modelo": "R3",
		"precio": int64(0),
	}, required)
}
