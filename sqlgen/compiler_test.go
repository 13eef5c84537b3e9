package sqlgen

import (
	"context"
	"testing"
	"time"

	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() db.SchemaMap {
	return db.SchemaMap{
		"Clientes": {
			{Name: "id", DataType: "int", IsIdentity: true, IsPK: true},
			{Name: "nombre", DataType: "varchar"},
			{Name: "apellido", DataType: "varchar"},
			{Name: "email", DataType: "varchar", IsNullable: true},
		},
		"Comprobantes": {
			{Name: "id", DataType: "int", IsIdentity: true, IsPK: true},
			{Name: "numero", DataType: "varchar"},
			{Name: "total", DataType: "decimal"},
			{Name: "fecha", DataType: "date"},
			{Name: "estado", DataType: "varchar"},
		},
	}
}

func testCompiler(d db.Dialect) *Compiler {
	c := NewCompiler(testSchema(), d)
	c.Defaults.Now = func() time.Time { return time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestCompileCompletenessErrors(t *testing.T) {
	c := testCompiler(db.SQLServer)

	_, err := c.Compile(ai.Intent{Action: ai.ActionDelete, Table: "Comprobantes"})
	require.ErrorIs(t, err, ErrConditionRequired)
	assert.Contains(t, err.Error(), "condición requerida")

	_, err = c.Compile(ai.Intent{Action: ai.ActionInsert, Table: "Clientes"})
	assert.ErrorIs(t, err, ErrEmptyData)

	_, err = c.Compile(ai.Intent{Action: ai.ActionUpdate, Table: "Clientes", Data: map[string]any{"nombre": "x"}})
	assert.ErrorIs(t, err, ErrConditionRequired)

	_, err = c.Compile(ai.Intent{Action: ai.ActionUpdate, Table: "Clientes", Condition: "id = 1"})
	assert.ErrorIs(t, err, ErrEmptyData)

	_, err = c.Compile(ai.Intent{Action: ai.ActionNone})
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestCompileRejectsUnknownNames(t *testing.T) {
	c := testCompiler(db.SQLServer)

	_, err := c.Compile(ai.Intent{Action: ai.ActionSelect, Table: "Usuarios"})
	assert.ErrorIs(t, err, db.ErrUnknownTable)

	_, err = c.Compile(ai.Intent{Action: ai.ActionSelect, Table: "Clientes", Fields: []string{"password"}})
	assert.ErrorIs(t, err, db.ErrUnknownColumn)

	_, err = c.Compile(ai.Intent{Action: ai.ActionInsert, Table: "Clientes", Data: map[string]any{"nombre": "A", "rol": "admin"}})
	assert.ErrorIs(t, err, db.ErrUnknownColumn)
}

func TestCompileSelect(t *testing.T) {
	s, err := testCompiler(db.SQLServer).Compile(ai.Intent{Action: ai.ActionSelect, Table: "clientes"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP (100) * FROM [Clientes] ORDER BY 1 DESC", s.SQL)
	assert.Empty(t, s.Args)
	assert.Equal(t, "Clientes", s.Table)

	s, err = testCompiler(db.SQLite).Compile(ai.Intent{
		Action:    ai.ActionSelect,
		Table:     "Clientes",
		Fields:    []string{"nombre", "APELLIDO"},
		Condition: "nombre LIKE '%Ju%'",
		Limit:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "nombre", "apellido" FROM "Clientes" WHERE "nombre" LIKE ? ORDER BY 1 DESC LIMIT 5`, s.SQL)
	assert.Equal(t, []any{"%Ju%"}, s.Args)
}

func TestCompileInsertAndGenerateScript(t *testing.T) {
	intent := ai.Intent{Action: ai.ActionInsert, Table: "Clientes", Data: map[string]any{"apellido": "O'Brien", "nombre": "Juan", "id": 7}}

	s, err := testCompiler(db.SQLServer).Compile(intent)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO [Clientes] ([nombre], [apellido]) OUTPUT INSERTED.* VALUES (?, ?)", s.SQL)
	assert.Equal(t, []any{"Juan", "O'Brien"}, s.Args)

	script, err := GenerateScript(intent, testSchema(), db.SQLServer)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO [Clientes] ([nombre], [apellido]) OUTPUT INSERTED.* VALUES ('Juan', 'O''Brien')", script)
}

func TestCompileInsertFillsRequiredColumns(t *testing.T) {
	s, err := testCompiler(db.SQLite).Compile(ai.Intent{Action: ai.ActionInsert, Table: "Comprobantes", Data: map[string]any{"total": "1500.50"}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "Comprobantes" ("numero", "total", "fecha", "estado") VALUES (?, ?, ?, ?) RETURNING *`, s.SQL)
	assert.Equal(t, []any{"Por definir", 1500.5, "2024-02-10", "Pendiente"}, s.Args)
}

func TestCompileUpdateAndDelete(t *testing.T) {
	c := testCompiler(db.Postgres)

	s, err := c.Compile(ai.Intent{Action: ai.ActionUpdate, Table: "Clientes", Data: map[string]any{"email": "a@b.com"}, Condition: "id = 3"})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "Clientes" SET "email" = ? WHERE "id" = ?`, s.SQL)
	assert.Equal(t, []any{"a@b.com", int64(3)}, s.Args)

	s, err = c.Compile(ai.Intent{Action: ai.ActionDelete, Table: "Clientes", Condition: "apellido = 'Perez' AND id > 2"})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "Clientes" WHERE "apellido" = ? AND "id" > ?`, s.SQL)
	assert.Equal(t, []any{"Perez", int64(2)}, s.Args)
	assert.Equal(t, `DELETE FROM "Clientes" WHERE "apellido" = 'Perez' AND "id" > 2`, Inline(s.SQL, s.Args))
}

func TestScriptsRunOnSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateDemoSchema(ctx))
	schema, err := conn.GetSchema(ctx)
	require.NoError(t, err)

	c := NewCompiler(schema, conn.Dialect)

	ins, err := c.Compile(ai.Intent{Action: ai.ActionInsert, Table: "Clientes", Data: map[string]any{"nombre": "Juan", "apellido": "Perez"}})
	require.NoError(t, err)
	rows, err := conn.Query(ctx, ins.SQL, ins.Args...)
	require.NoError(t, err)
	require.Equal(t, 1, rows.Len())
	assert.Equal(t, "Juan", rows.Records[0]["nombre"])

	sel, err := c.Compile(ai.Intent{Action: ai.ActionSelect, Table: "Clientes", Condition: "apellido = 'Perez'"})
	require.NoError(t, err)
	rows, err = conn.Query(ctx, sel.SQL, sel.Args...)
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Len())

	del, err := c.Compile(ai.Intent{Action: ai.ActionDelete, Table: "Clientes", Condition: "nombre = 'Juan'"})
	require.NoError(t, err)
	n, err := conn.Exec(ctx, del.SQL, del.Args...)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
