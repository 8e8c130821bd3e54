package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const DBTxKey contextKey = "db_tx"

var errNoConn = errors.New("no database connection in context")

// TxFromContext returns the transaction opened by WithTx, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// ContextWithTx stores tx so repositories called with the returned context
// write through it.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, DBTxKey, tx)
}

// WithTx begins a transaction on the request's tenant connection. The caller
// commits or rolls back the returned transaction.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, errNoConn
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return ContextWithTx(ctx, tx), tx, nil
}
