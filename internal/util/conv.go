package util

import (
	"strconv"
	"strings"
)

// ParseID parses a positive numeric identifier, reporting the field on failure.
func ParseID(field, s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || id == 0 {
		return 0, NewValidationError(field, "must be a positive integer")
	}
	return uint(id), nil
}

// ParseIDs parses every element with ParseID.
func ParseIDs(field string, values []string) ([]uint, error) {
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		id, err := ParseID(field, v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
