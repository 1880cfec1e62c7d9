package models

import (
	"time"

	"github.com/angelmondragon/plexo-core/pkg/enums"
)

// Record is implemented by every persisted entity.
type Record interface {
	Collection() enums.Collection
	PrimaryKey() string
	// Stamp sets UpdatedAt to now and CreatedAt when it is still zero.
	Stamp(now time.Time)
}

// Sequenced records receive a per-collection insertion sequence on first write.
type Sequenced interface {
	Record
	Sequence() int64
	AssignSequence(seq int64)
}

func stamp(created, updated *time.Time, now time.Time) {
	now = now.UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// ForCollection returns an empty record for the collection, or nil when unknown.
func ForCollection(c enums.Collection) Record {
	switch c {
	case enums.CollectionUsers:
		return &User{}
	case enums.CollectionItems:
		return &Item{}
	case enums.CollectionChats:
		return &Chat{}
	case enums.CollectionMessages:
		return &Message{}
	default:
		return nil
	}
}
