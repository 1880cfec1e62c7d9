package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
)

// IntRange bounds an optional integer query parameter.
type IntRange struct {
	Default int
	Min     int
	Max     int
}

// QueryInt reads key from the query string. A missing value yields
// rng.Default; anything non-numeric or outside [Min, Max] is a
// VALIDATION_ERROR naming the field.
func QueryInt(r *http.Request, key string, rng IntRange) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return rng.Default, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be a whole number").
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if value < rng.Min || value > rng.Max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" is out of range").
			WithDetails(map[string]any{"field": key, "min": rng.Min, "max": rng.Max})
	}
	return value, nil
}
