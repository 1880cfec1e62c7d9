package store

import (
	"fmt"
	"reflect"

	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
)

// Index names accepted by GetByIndex and GetByUniqueIndex.
const (
	IndexEmail         = "email"
	IndexOwnerUserID   = "ownerUserId"
	IndexCategory      = "category"
	IndexListedAt      = "listedAt"
	IndexUserID        = "userId"
	IndexContactID     = "contactId"
	IndexUpdatedAt     = "updatedAt"
	IndexUserContactID = "userId_contactId"
	IndexChatID        = "chatId"
	IndexTimestamp     = "timestamp"
)

// Composite is the lookup value for a multi-column index, in column order.
type Composite []any

type indexSpec struct {
	columns []string
	unique  bool
}

var schema = map[enums.Collection]map[string]indexSpec{
	enums.CollectionUsers: {
		IndexEmail: {columns: []string{"email"}, unique: true},
	},
	enums.CollectionItems: {
		IndexOwnerUserID: {columns: []string{"owner_user_id"}},
		IndexCategory:    {columns: []string{"category"}},
		IndexListedAt:    {columns: []string{"listed_at"}},
	},
	enums.CollectionChats: {
		IndexUserID:        {columns: []string{"user_id"}},
		IndexContactID:     {columns: []string{"contact_id"}},
		IndexUpdatedAt:     {columns: []string{"updated_at"}},
		IndexUserContactID: {columns: []string{"user_id", "contact_id"}, unique: true},
	},
	enums.CollectionMessages: {
		IndexChatID:    {columns: []string{"chat_id"}},
		IndexTimestamp: {columns: []string{"timestamp"}},
	},
}

func lookupIndex(c enums.Collection, index string, unique bool) (indexSpec, error) {
	indexes, ok := schema[c]
	if !ok {
		return indexSpec{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown collection %q", c))
	}
	spec, ok := indexes[index]
	if !ok {
		return indexSpec{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown index %q on %s", index, c))
	}
	if spec.unique != unique {
		kind := "non-unique"
		if spec.unique {
			kind = "unique"
		}
		return indexSpec{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("index %q on %s is %s", index, c, kind))
	}
	return spec, nil
}

func (s indexSpec) values(value any) ([]any, error) {
	if composite, ok := value.(Composite); ok {
		if len(composite) != len(s.columns) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("index expects %d values, got %d", len(s.columns), len(composite)))
		}
		return composite, nil
	}
	if len(s.columns) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "composite index requires a Composite value")
	}
	return []any{value}, nil
}

// checkDest verifies that dest points at the record type, or slice of record
// types, stored in collection c.
func checkDest(c enums.Collection, dest any, wantSlice bool) error {
	if models.ForCollection(c) == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown collection %q", c))
	}
	t := reflect.TypeOf(dest)
	if t == nil || t.Kind() != reflect.Pointer {
		return pkgerrors.New(pkgerrors.CodeValidation, "destination must be a pointer")
	}
	elem := t.Elem()
	if wantSlice {
		if elem.Kind() != reflect.Slice {
			return pkgerrors.New(pkgerrors.CodeValidation, "destination must be a pointer to a slice")
		}
		elem = elem.Elem()
	}
	rec, ok := reflect.New(elem).Interface().(models.Record)
	if !ok || rec.Collection() != c {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("destination %s does not hold %s records", t, c))
	}
	return nil
}
