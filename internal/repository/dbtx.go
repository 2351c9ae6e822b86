// Package repository provides typed CRUD access over the relational store,
// a uniform filter DSL shared by every entity, and the locking primitives
// the wallet and game-session engines depend on.
//
// The DBTX interface, dynamic SET-clause updates, and pgtype.Numeric
// scanning generalize from a two-entity (player/transaction) store to the
// full entity set.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both —
// the same code path serves transactional writes and read-only queries.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
