package ai

import (
	"strings"
	"unicode"

	"github.com/mvrodados/mvrodados/db"
)

// Keyword tables for the deterministic fallback. Order matters: the
// first matching entry wins.
var (
	verbActions = []struct {
		action Action
		words  []string
	}{
		{ActionSelect, []string{"ver", "mostrar", "mostrame", "muestra", "mostra", "listar", "lista", "listame", "consultar", "consulta"}},
		{ActionInsert, []string{"agregar", "agrega", "insertar", "inserta", "nuevo", "nueva", "crear", "crea", "registrar", "registra", "cargar"}},
		{ActionUpdate, []string{"actualizar", "actualiza", "modificar", "modifica", "editar", "edita", "cambiar", "cambia"}},
		{ActionDelete, []string{"eliminar", "elimina", "borrar", "borra", "quitar"}},
	}

	tableKeywords = []struct{ keyword, table string }{
		{"cliente", "Clientes"},
		{"moto", "Motos"},
		{"accesorio", "Accesorios"},
		{"casco", "Cascos"},
		{"bicicleta", "Bicicletas"},
		{"indumentaria", "Indumentarias"},
		{"comprobante", "Comprobantes"},
		{"factura", "Comprobantes"},
		{"presupuesto", "Comprobantes"},
		{"remito", "Comprobantes"},
		{"nota de", "Comprobantes"},
		{"recibo", "Comprobantes"},
		{"pedido", "Comprobantes"},
		{"articulo", "Articulos"},
		{"artículo", "Articulos"},
		{"transaccion", "Transacciones"},
		{"transacción", "Transacciones"},
		{"lista", "ListaPrecios"},
		{"precio", "ListaPrecios"},
	}

	voucherKinds = []struct {
		phrase string
		id     int64
	}{
		{"factura a", 1}, {"factura b", 2}, {"factura c", 3},
		{"presupuesto", 4}, {"remito", 5},
		{"nota de crédito", 6}, {"nota de credito", 6},
		{"nota de débito", 7}, {"nota de debito", 7},
		{"recibo", 8}, {"pedido", 9},
	}
)

// DetectTable returns the table a message talks about, or "".
func DetectTable(query string) string {
	q := strings.ToLower(query)
	for _, k := range tableKeywords {
		if strings.Contains(q, k.keyword) {
			return k.table
		}
	}
	return ""
}

// FallbackIntent derives an intent from keywords alone. It is used when
// the model is unreachable or its reply cannot be parsed.
func FallbackIntent(query string, schema db.SchemaMap) Intent {
	q := strings.ToLower(query)
	if strings.Contains(q, "buscar") && (strings.Contains(q, "precio") || strings.Contains(q, "mercadolibre")) {
		return Intent{Action: ActionWebSearch}
	}

	words := strings.FieldsFunc(q, func(r rune) bool { return !unicode.IsLetter(r) })
	action := ActionNone
	for _, va := range verbActions {
		if containsWord(words, va.words) {
			action = va.action
			break
		}
	}
	if action == ActionNone {
		return None()
	}

	table := DetectTable(q)
	if table == "" {
		return None()
	}
	if len(schema) > 0 {
		resolved, ok := schema.Table(table)
		if !ok {
			return None()
		}
		table = resolved
	}

	in := Intent{Action: action, Table: table}
	if action == ActionInsert {
		in.Data = fallbackData(query, table, schema)
	}
	return in
}

// fallbackData pulls what little structure a plain sentence carries:
// capitalised names for people and the voucher kind for comprobantes.
func fallbackData(query, table string, schema db.SchemaMap) map[string]any {
	data := map[string]any{}
	if table == "Comprobantes" {
		q := strings.ToLower(query)
		data["id_tipo_comprobante"] = int64(1)
		for _, k := range voucherKinds {
			if strings.Contains(q, k.phrase) {
				data["id_tipo_comprobante"] = k.id
				break
			}
		}
		return data
	}

	_, hasNombre := schema.Column(table, "nombre")
	_, hasApellido := schema.Column(table, "apellido")
	if !hasNombre {
		return data
	}
	names := capitalisedAfterKeyword(query)
	if len(names) > 0 {
		data["nombre"] = names[0]
	}
	if hasApellido && len(names) > 1 {
		data["apellido"] = strings.Join(names[1:], " ")
	}
	return data
}

// capitalisedAfterKeyword returns the capitalised words that follow the
// table keyword, e.g. "agregar cliente Juan Perez" yields [Juan Perez].
func capitalisedAfterKeyword(query string) []string {
	fields := strings.Fields(query)
	start := 0
	for i, f := range fields {
		if DetectTable(f) != "" {
			start = i + 1
			break
		}
	}
	var out []string
	for _, f := range fields[start:] {
		f = strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) })
		if f == "" {
			continue
		}
		first := []rune(f)[0]
		if !unicode.IsUpper(first) {
			if len(out) > 0 {
				break
			}
			continue
		}
		out = append(out, f)
	}
	return out
}

func containsWord(words, targets []string) bool {
	for _, w := range words {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}
