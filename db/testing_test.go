package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, d.CreateDemoSchema(context.Background()))
	return d
}
