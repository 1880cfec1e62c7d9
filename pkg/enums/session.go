package enums

import "fmt"

// SessionMode reports whether the session mirror is backed by the store.
type SessionMode string

const (
	SessionModePersistent SessionMode = "persistent"
	SessionModeEphemeral  SessionMode = "ephemeral"
)

// String implements fmt.Stringer.
func (m SessionMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known SessionMode.
func (m SessionMode) IsValid() bool {
	return m == SessionModePersistent || m == SessionModeEphemeral
}

// ListingOutcome records which tier of the listing chain completed.
type ListingOutcome string

const (
	ListingOutcomePersisted ListingOutcome = "persisted"
	ListingOutcomeEphemeral ListingOutcome = "ephemeral"
	ListingOutcomeAborted   ListingOutcome = "aborted"
)

var validListingOutcomes = []ListingOutcome{
	ListingOutcomePersisted,
	ListingOutcomeEphemeral,
	ListingOutcomeAborted,
}

// String implements fmt.Stringer.
func (o ListingOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known ListingOutcome.
func (o ListingOutcome) IsValid() bool {
	for _, candidate := range validListingOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseListingOutcome converts raw input into a ListingOutcome.
func ParseListingOutcome(value string) (ListingOutcome, error) {
	for _, candidate := range validListingOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing outcome %q", value)
}
