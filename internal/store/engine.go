// Package store is the embedded storage engine for the four marketplace
// collections: users, items, chats and messages.
package store

import (
	"context"
	"time"

	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/db"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/angelmondragon/plexo-core/pkg/logger"
	"github.com/angelmondragon/plexo-core/pkg/metrics"
	"github.com/angelmondragon/plexo-core/pkg/migrate"
	"gorm.io/gorm"
)

// Engine is a ready storage engine. All writes go through a transaction.
type Engine struct {
	base
	client  *db.Client
	logg    *logger.Logger
	metrics *metrics.StoreMetrics
}

// Init opens the configured database, applies migrations when enabled and
// returns a ready engine. Any failure is reported as STORAGE_UNAVAILABLE so
// callers can continue without persistence.
func Init(ctx context.Context, cfg config.DBConfig, logg *logger.Logger, m *metrics.StoreMetrics) (*Engine, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	client, err := db.New(ctx, cfg, logg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, "open storage engine")
	}
	if err := migrate.MaybeAutoRun(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, "migrate storage engine")
	}
	return New(client, logg, m), nil
}

// New wraps an open client. The schema must already exist.
func New(client *db.Client, logg *logger.Logger, m *metrics.StoreMetrics) *Engine {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Engine{
		base: base{
			db:  client.DB(),
			now: func() time.Time { return time.Now().UTC() },
		},
		client:  client,
		logg:    logg,
		metrics: m,
	}
}

// SetClock overrides the time source used to stamp records.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

func (e *Engine) Get(ctx context.Context, c enums.Collection, key string, dest any) error {
	return e.get(ctx, c, key, dest)
}

// GetByIndex fills dest (a slice pointer) with every record matching a non-unique index.
func (e *Engine) GetByIndex(ctx context.Context, c enums.Collection, index string, value any, dest any) error {
	return e.getByIndex(ctx, c, index, value, dest)
}

// GetByUniqueIndex fills dest with the single record matching a unique index.
func (e *Engine) GetByUniqueIndex(ctx context.Context, c enums.Collection, index string, value any, dest any) error {
	return e.getByUniqueIndex(ctx, c, index, value, dest)
}

func (e *Engine) GetAll(ctx context.Context, c enums.Collection, dest any) error {
	return e.getAll(ctx, c, dest)
}

// Put upserts rec by primary key and mutates it in place with the stored stamps.
func (e *Engine) Put(ctx context.Context, rec models.Record) error {
	if rec == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "record is required")
	}
	return e.run(ctx, "put_"+string(rec.Collection()), func(tx *Tx) error {
		return tx.Put(ctx, rec)
	})
}

// Delete removes the record if present. Deleting a missing key is not an error.
func (e *Engine) Delete(ctx context.Context, c enums.Collection, key string) error {
	return e.run(ctx, "delete_"+string(c), func(tx *Tx) error {
		return tx.Delete(ctx, c, key)
	})
}

// Transaction applies every write atomically. Any failure other than an
// unreachable store is reported as TRANSACTION_FAILURE with the cause chained.
func (e *Engine) Transaction(ctx context.Context, writes ...Write) error {
	if len(writes) == 0 {
		return nil
	}
	err := e.run(ctx, "transaction", func(tx *Tx) error {
		return tx.Apply(ctx, writes...)
	})
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeTransactionFailure, pkgerrors.CodeStorageUnavailable:
		return err
	default:
		if err == nil {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeTransactionFailure, err, "transaction aborted")
	}
}

// Update runs fn inside one transaction. Returning an error rolls back every
// write fn made.
func (e *Engine) Update(ctx context.Context, op string, fn func(tx *Tx) error) error {
	return e.run(ctx, op, fn)
}

// ClearAll empties every collection in one transaction.
func (e *Engine) ClearAll(ctx context.Context) error {
	return e.run(ctx, "clear_all", func(tx *Tx) error {
		return tx.clearAll(ctx)
	})
}

func (e *Engine) Ping(ctx context.Context) error {
	if err := e.client.Ping(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, "ping storage engine")
	}
	return nil
}

func (e *Engine) Close() error {
	return e.client.Close()
}

func (e *Engine) run(ctx context.Context, op string, fn func(tx *Tx) error) error {
	start := time.Now()
	err := e.client.WithTx(ctx, func(gtx *gorm.DB) error {
		return fn(&Tx{base: base{db: gtx, now: e.now}})
	})
	e.metrics.ObserveDuration(op, time.Since(start))
	if err == nil {
		return nil
	}
	err = abort(err, op)
	e.metrics.IncFailure(op, string(pkgerrors.CodeOf(err)))
	if pkgerrors.IsCode(err, pkgerrors.CodeTransactionFailure) || pkgerrors.IsCode(err, pkgerrors.CodeStorageUnavailable) {
		e.logg.Error(e.logg.WithField(ctx, "op", op), "store transaction failed", err)
	}
	return err
}
