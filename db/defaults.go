// defaults.go synthesizes values for columns the user did not supply
// and coerces supplied values to the column's type.
//
// The cascade is: column-name dictionary first, then the column type.
// A name rule whose value does not fit the column type is skipped, so
// "id_tipo_comprobante" (an int) gets 0 rather than "General".
package db

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type typeKind int

const (
	kindOther typeKind = iota
	kindNumeric
	kindBool
	kindTemporal
	kindText
)

func kindOf(dataType string) typeKind {
	t := strings.ToLower(dataType)
	switch {
	case strings.Contains(t, "bit"), strings.Contains(t, "bool"):
		return kindBool
	case strings.Contains(t, "int"), strings.Contains(t, "decimal"), strings.Contains(t, "float"),
		strings.Contains(t, "numeric"), strings.Contains(t, "money"), strings.Contains(t, "real"),
		strings.Contains(t, "double"):
		return kindNumeric
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return kindTemporal
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "clob"):
		return kindText
	default:
		return kindOther
	}
}

// IsNumericType reports whether a SQL type holds numbers.
func IsNumericType(dataType string) bool { return kindOf(dataType) == kindNumeric }

// IsTextType reports whether a SQL type holds character data.
func IsTextType(dataType string) bool { return kindOf(dataType) == kindText }

const placeholderText = "Por definir"

var brands = []struct{ keyword, label string }{
	{"yamaha", "Yamaha"}, {"honda", "Honda"}, {"suzuki", "Suzuki"}, {"kawasaki", "Kawasaki"},
	{"bmw", "BMW"}, {"ducati", "Ducati"}, {"ktm", "KTM"}, {"harley", "Harley-Davidson"},
	{"royal enfield", "Royal Enfield"}, {"benelli", "Benelli"}, {"bajaj", "Bajaj"},
	{"zanella", "Zanella"}, {"motomel", "Motomel"}, {"corven", "Corven"}, {"gilera", "Gilera"},
	{"trek", "Trek"}, {"specialized", "Specialized"}, {"giant", "Giant"}, {"venzo", "Venzo"},
	{"raleigh", "Raleigh"}, {"shimano", "Shimano"}, {"ls2", "LS2"}, {"agv", "AGV"},
	{"shoei", "Shoei"}, {"alpinestars", "Alpinestars"},
}

var categories = []struct{ keyword, label string }{
	{"deportiv", "Deportiva"}, {"urban", "Urbana"}, {"enduro", "Enduro"}, {"cross", "Cross"},
	{"touring", "Touring"}, {"scooter", "Scooter"}, {"cuatri", "Cuatriciclo"},
	{"montaña", "Montaña"}, {"mtb", "Montaña"}, {"ruta", "Ruta"}, {"casco", "Cascos"},
	{"guante", "Guantes"}, {"campera", "Camperas"}, {"repuesto", "Repuestos"},
	{"accesorio", "Accesorios"}, {"indumentaria", "Indumentaria"},
}

var pendingContext = []string{"factura", "comprobante", "presupuesto", "remito", "pedido", "nota de"}

// Defaults produces placeholder values. Now is injectable for tests.
type Defaults struct {
	Now func() time.Time
}

// NewDefaults uses the wall clock.
func NewDefaults() Defaults {
	return Defaults{Now: time.Now}
}

// Today returns the current date as YYYY-MM-DD.
func (d Defaults) Today() string {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return now().Format("2006-01-02")
}

// For returns a value for col. It never returns nil.
func (d Defaults) For(col ColumnInfo, contextText string) any {
	kind := kindOf(col.DataType)
	name := strings.ToLower(col.Name)
	ctx := strings.ToLower(contextText)

	if v, ok := d.byName(name, ctx); ok && fits(v, kind) {
		return v
	}

	switch kind {
	case kindNumeric, kindBool:
		return int64(0)
	case kindTemporal:
		return d.Today()
	case kindText:
		return placeholderText
	default:
		return ""
	}
}

func (d Defaults) byName(name, ctx string) (any, bool) {
	switch {
	case containsAny(name, "precio", "costo", "cantidad", "stock", "existencia", "total", "monto", "importe"):
		return int64(0), true
	case strings.Contains(name, "fecha"):
		return d.Today(), true
	case containsAny(name, "activo", "disponible", "habilitado", "visible"):
		return int64(1), true
	case containsAny(name, "estado", "status"):
		if containsAny(ctx, pendingContext...) {
			return "Pendiente", true
		}
		return "Activo", true
	case strings.Contains(name, "marca"):
		for _, b := range brands {
			if strings.Contains(ctx, b.keyword) {
				return b.label, true
			}
		}
		return "Generica", true
	case containsAny(name, "categoria", "tipo"):
		for _, c := range categories {
			if strings.Contains(ctx, c.keyword) {
				return c.label, true
			}
		}
		return "General", true
	}
	return nil, false
}

// fits reports whether a dictionary value can be stored in a column of kind.
func fits(v any, kind typeKind) bool {
	_, isString := v.(string)
	switch kind {
	case kindNumeric, kindBool:
		return !isString
	case kindTemporal:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	default:
		return true
	}
}

// Coerce converts a user-supplied value to the column's type.
func (d Defaults) Coerce(col ColumnInfo, v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return int64(1)
		case "false":
			return int64(0)
		}
	}

	switch kindOf(col.DataType) {
	case kindNumeric:
		return toNumber(v)
	case kindBool:
		switch t := v.(type) {
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "", "0", "no", "n":
				return int64(0)
			}
			return int64(1)
		default:
			if toNumber(v) == int64(0) {
				return int64(0)
			}
			return int64(1)
		}
	case kindTemporal:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02")
		}
		if ts, ok := AsTime(strings.TrimSpace(AsString(v))); ok {
			return ts.Format("2006-01-02")
		}
		return d.Today()
	default:
		return AsString(v)
	}
}

func toNumber(v any) any {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		return int64(t)
	case int64:
		return t
	case int32:
		return int64(t)
	default:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(AsString(v)), 64)
		if err != nil {
			return int64(0)
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return int64(0)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return int64(f)
	}
	return f
}

// Complete returns data with canonical column names, coerced values and
// defaults for missing columns. Identity columns are never filled.
// With requiredOnly, only NOT NULL columns without a database default are
// filled; otherwise every missing column is. Keys that match no column
// are carried through unchanged so the caller can reject them.
func (d Defaults) Complete(cols []ColumnInfo, data map[string]any, contextText string, requiredOnly bool) map[string]any {
	out := make(map[string]any, len(cols))
	used := make(map[string]bool, len(data))

	for _, col := range cols {
		var (
			val   any
			found bool
		)
		for k, v := range data {
			if strings.EqualFold(k, col.Name) {
				val, found = v, true
				used[k] = true
				break
			}
		}
		if col.IsIdentity {
			continue
		}
		if found && val != nil && AsString(val) != "" {
			out[col.Name] = d.Coerce(col, val)
			continue
		}
		if requiredOnly && (col.IsNullable || col.HasDefault) {
			continue
		}
		out[col.Name] = d.For(col, contextText)
	}

	for k, v := range data {
		if !used[k] {
			out[k] = v
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
