package middleware

import (
	"encoding/json"

	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

// mergeOverride decodes override onto dst, leaving dst's existing
// defaults untouched for any field override doesn't set. dst must be a
// pointer to the middleware's config struct already populated with
// defaults.
func mergeOverride(override json.RawMessage, dst interface{}) error {
	if len(override) == 0 {
		return nil
	}
	if err := json.Unmarshal(override, dst); err != nil {
		return model.NewError(model.KindValidationError, "decode middleware config override", err)
	}
	return nil
}
