package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository methods
// that must run inside a caller-owned transaction. NoTX means "use the pool".
type Tx interface{}

var NoTX interface{}

// TransactionManager owns transaction lifecycle. The callback receives a Tx
// that tx-aware repository methods accept; returning an error rolls back.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
	// AdvisoryXactLock serializes transactions on the same key until the
	// surrounding transaction ends.
	AdvisoryXactLock(ctx context.Context, tx Tx, key string) error
}
