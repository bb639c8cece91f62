package storage

import (
	"fmt"
	"regexp"
)

// collectionPattern restricts collection names to portable SQL identifiers.
var collectionPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateCollectionName reports whether name can be used as a collection.
func ValidateCollectionName(name string) error {
	if !collectionPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}
