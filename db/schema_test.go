package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSchemaExcludesInternalTables(t *testing.T) {
	d := newTestDB(t)

	schema, err := d.GetSchema(context.Background())
	require.NoError(t, err)

	_, hasHistory := schema["ChatHistory"]
	assert.False(t, hasHistory)
	assert.Contains(t, schema.Tables(), "Clientes")
	assert.Contains(t, schema.Tables(), "Comprobantes")

	cols := schema["Clientes"]
	require.NotEmpty(t, cols)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].IsIdentity)
	assert.True(t, cols[0].IsPK)
	assert.False(t, cols[1].IsNullable)
	require.NotNil(t, cols[1].MaxLength)
	assert.Equal(t, 100, *cols[1].MaxLength)

	email, ok := schema.Column("Clientes", "EMAIL")
	require.True(t, ok)
	assert.True(t, email.IsNullable)
}

func TestGetSchemaIsIdempotent(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	first, err := d.GetSchema(ctx)
	require.NoError(t, err)
	second, err := d.GetSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSchemaOrEmptyOnFailure(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	d.Close()

	schema := d.SchemaOrEmpty(context.Background())
	assert.NotNil(t, schema)
	assert.Empty(t, schema)
}

func TestResolveHelpers(t *testing.T) {
	schema := SchemaMap{"Motos": {{Name: "id", IsPK: true}, {Name: "marca"}}}

	name, err := schema.ResolveTable("motos")
	require.NoError(t, err)
	assert.Equal(t, "Motos", name)

	_, err = schema.ResolveTable("Usuarios")
	assert.True(t, errors.Is(err, ErrUnknownTable))

	_, err = schema.ResolveColumn("Motos", "precio")
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	assert.Equal(t, "id", schema.PrimaryKey("Motos"))
}

func TestFormatSchemaContext(t *testing.T) {
	n := 100
	schema := SchemaMap{
		"Clientes": {
			{Name: "id", DataType: "int", IsIdentity: true, IsPK: true},
			{Name: "nombre", DataType: "varchar", MaxLength: &n},
			{Name: "email", DataType: "varchar", IsNullable: true},
		},
	}
	out := FormatSchemaContext(schema)
	assert.Equal(t, "Clientes: id (int, required, identity), nombre (varchar(100), required), email (varchar, nullable)\n", out)
	assert.True(t, strings.HasSuffix(out, "\n"))
}
