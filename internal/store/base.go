package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/plexo-core/pkg/db"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// base carries the read/write surface shared by Engine and Tx.
type base struct {
	db  *gorm.DB
	now func() time.Time
}

func (b base) conn(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

func (b base) get(ctx context.Context, c enums.Collection, key string, dest any) error {
	if err := checkDest(c, dest, false); err != nil {
		return err
	}
	err := b.conn(ctx).Where("id = ?", key).Take(dest).Error
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %q not found", strings.TrimSuffix(string(c), "s"), key))
	}
	return translate(err, "get "+string(c))
}

func (b base) getByIndex(ctx context.Context, c enums.Collection, index string, value any, dest any) error {
	if err := checkDest(c, dest, true); err != nil {
		return err
	}
	spec, err := lookupIndex(c, index, false)
	if err != nil {
		return err
	}
	values, err := spec.values(value)
	if err != nil {
		return err
	}
	q := b.conn(ctx)
	for i, column := range spec.columns {
		q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: values[i]})
	}
	return translate(q.Order("id").Find(dest).Error, "index "+index)
}

func (b base) getByUniqueIndex(ctx context.Context, c enums.Collection, index string, value any, dest any) error {
	if err := checkDest(c, dest, false); err != nil {
		return err
	}
	spec, err := lookupIndex(c, index, true)
	if err != nil {
		return err
	}
	values, err := spec.values(value)
	if err != nil {
		return err
	}
	q := b.conn(ctx)
	for i, column := range spec.columns {
		q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: values[i]})
	}
	err = q.Take(dest).Error
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no %s with %s = %v", strings.TrimSuffix(string(c), "s"), index, value))
	}
	return translate(err, "unique index "+index)
}

func (b base) getAll(ctx context.Context, c enums.Collection, dest any) error {
	if err := checkDest(c, dest, true); err != nil {
		return err
	}
	return translate(b.conn(ctx).Order("id").Find(dest).Error, "get all "+string(c))
}

// put must run inside a transaction when rec is sequenced so the max lookup
// and the insert are atomic.
func (b base) put(ctx context.Context, rec models.Record) error {
	if rec == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "record is required")
	}
	if strings.TrimSpace(rec.PrimaryKey()) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s record requires an id", rec.Collection()))
	}
	rec.Stamp(b.now())

	if seq, ok := rec.(models.Sequenced); ok && seq.Sequence() == 0 {
		if stmt, args := sequenceLock(b.db.Dialector.Name(), rec.Collection()); stmt != "" {
			if err := b.conn(ctx).Exec(stmt, args...).Error; err != nil {
				return translate(err, "sequence lock "+string(rec.Collection()))
			}
		}
		var current int64
		err := b.conn(ctx).Model(models.ForCollection(rec.Collection())).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&current).Error
		if err != nil {
			return translate(err, "sequence "+string(rec.Collection()))
		}
		seq.AssignSequence(current + 1)
	}

	columns, err := upsertColumns(b.db, rec)
	if err != nil {
		return translate(err, "schema "+string(rec.Collection()))
	}
	err = b.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(rec).Error
	return translate(err, "put "+string(rec.Collection()))
}

// sequenceLock returns the statement that serializes sequence assignment for
// c until the transaction ends. SQLite runs on a single connection and needs none.
func sequenceLock(dialect string, c enums.Collection) (string, []any) {
	if dialect != "postgres" {
		return "", nil
	}
	return "SELECT pg_advisory_xact_lock(hashtext(?))", []any{"plexo.seq." + string(c)}
}

// upsertColumns lists every column an upsert overwrites. The primary key and
// created_at keep their stored values.
func upsertColumns(conn *gorm.DB, rec models.Record) ([]string, error) {
	stmt := &gorm.Statement{DB: conn}
	if err := stmt.Parse(rec); err != nil {
		return nil, err
	}
	columns := make([]string, 0, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		if name == "id" || name == "created_at" {
			continue
		}
		columns = append(columns, name)
	}
	return columns, nil
}

func (b base) delete(ctx context.Context, c enums.Collection, key string) error {
	target := models.ForCollection(c)
	if target == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown collection %q", c))
	}
	return translate(b.conn(ctx).Where("id = ?", key).Delete(target).Error, "delete "+string(c))
}

func (b base) clearAll(ctx context.Context) error {
	collections := enums.AllCollections()
	// children first
	for i := len(collections) - 1; i >= 0; i-- {
		target := models.ForCollection(collections[i])
		if err := b.conn(ctx).Where("1 = 1").Delete(target).Error; err != nil {
			return translate(err, "clear "+string(collections[i]))
		}
	}
	return nil
}
