package store

import (
	"context"
	"fmt"

	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
)

// Tx is the read/write surface inside one transaction. Reads observe the
// transaction's own uncommitted writes.
type Tx struct {
	base
}

func (t *Tx) Get(ctx context.Context, c enums.Collection, key string, dest any) error {
	return t.get(ctx, c, key, dest)
}

func (t *Tx) GetByIndex(ctx context.Context, c enums.Collection, index string, value any, dest any) error {
	return t.getByIndex(ctx, c, index, value, dest)
}

func (t *Tx) GetByUniqueIndex(ctx context.Context, c enums.Collection, index string, value any, dest any) error {
	return t.getByUniqueIndex(ctx, c, index, value, dest)
}

func (t *Tx) GetAll(ctx context.Context, c enums.Collection, dest any) error {
	return t.getAll(ctx, c, dest)
}

func (t *Tx) Put(ctx context.Context, rec models.Record) error {
	return t.put(ctx, rec)
}

func (t *Tx) Delete(ctx context.Context, c enums.Collection, key string) error {
	return t.delete(ctx, c, key)
}

// Apply runs writes in order, stopping at the first failure.
func (t *Tx) Apply(ctx context.Context, writes ...Write) error {
	for i, w := range writes {
		var err error
		switch w.kind {
		case writePut:
			err = t.Put(ctx, w.record)
		case writeDelete:
			err = t.Delete(ctx, w.collection, w.key)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("write %d has no operation", i))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type writeKind int

const (
	writeNone writeKind = iota
	writePut
	writeDelete
)

// Write is one step of a multi-collection transaction.
type Write struct {
	kind       writeKind
	record     models.Record
	collection enums.Collection
	key        string
}

// PutWrite upserts rec.
func PutWrite(rec models.Record) Write {
	return Write{kind: writePut, record: rec}
}

// DeleteWrite removes the record with key from c.
func DeleteWrite(c enums.Collection, key string) Write {
	return Write{kind: writeDelete, collection: c, key: key}
}
