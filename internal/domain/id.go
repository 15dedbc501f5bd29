package domain

import "github.com/google/uuid"

// ValidID reports whether s is a well-formed entity id.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
