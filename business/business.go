// Package business holds the admin-side services: vouchers
// (Comprobantes) with their line items, the article catalogue, and a
// schema-driven CRUD over any business table.
//
// Every statement binds its values. Table and column names come either
// from constants in this package or from the introspected schema.
package business

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mvrodados/mvrodados/db"
)

var (
	ErrNotFound   = errors.New("no encontrado")
	ErrValidation = errors.New("datos inválidos")
)

// Store is what the services need from *db.DB.
type Store interface {
	db.Querier
	WithTx(ctx context.Context, fn func(*db.Tx) error) error
	GetSchema(ctx context.Context) (db.SchemaMap, error)
}

var _ Store = (*db.DB)(nil)

func notFound(what string) error {
	return fmt.Errorf("%w: %s no encontrado", ErrNotFound, what)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Message strips the sentinel prefix so handlers can show the
// user-facing part of a validation or not-found error.
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrNotFound, ErrValidation} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}

func first(rows *db.Rows) db.Record {
	if rows.Len() == 0 {
		return db.Record{}
	}
	return rows.Records[0]
}

// where joins conditions with AND; an empty list matches everything.
func where(conds []string) string {
	if len(conds) == 0 {
		return "1=1"
	}
	return strings.Join(conds, " AND ")
}
