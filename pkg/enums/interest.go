package enums

import (
	"fmt"
	"strings"
)

// Interest is the profile tag picked during registration.
type Interest string

const (
	InterestArt   Interest = "ART"
	InterestPhoto Interest = "PHOTO"
	InterestMusic Interest = "MUSIC"
)

// DefaultInterest is preselected on the registration form.
const DefaultInterest = InterestPhoto

var validInterests = []Interest{
	InterestArt,
	InterestPhoto,
	InterestMusic,
}

// String implements fmt.Stringer.
func (i Interest) String() string {
	return string(i)
}

// IsValid reports whether the value is a known Interest.
func (i Interest) IsValid() bool {
	for _, candidate := range validInterests {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInterest converts raw input into an Interest, ignoring case.
func ParseInterest(value string) (Interest, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validInterests {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid interest %q", value)
}
