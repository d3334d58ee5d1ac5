package model

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// Float64OrDefault dereferences a nullable reading, falling back to def when it is unset.
func Float64OrDefault(value *float64, def float64) float64 {
	if value == nil {
		return def
	}
	return *value
}
