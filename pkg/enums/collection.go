package enums

import "fmt"

// Collection names one of the persisted record collections.
type Collection string

const (
	CollectionUsers    Collection = "users"
	CollectionItems    Collection = "items"
	CollectionChats    Collection = "chats"
	CollectionMessages Collection = "messages"
)

var validCollections = []Collection{
	CollectionUsers,
	CollectionItems,
	CollectionChats,
	CollectionMessages,
}

// AllCollections returns every collection in dependency order (parents first).
func AllCollections() []Collection {
	out := make([]Collection, len(validCollections))
	copy(out, validCollections)
	return out
}

// String implements fmt.Stringer.
func (c Collection) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Collection.
func (c Collection) IsValid() bool {
	for _, candidate := range validCollections {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCollection converts raw input into a Collection.
func ParseCollection(value string) (Collection, error) {
	for _, candidate := range validCollections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collection %q", value)
}
