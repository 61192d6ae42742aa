package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct validates a struct against its validate tags.
func ValidateStruct(obj interface{}) error {
	return validate.Struct(obj)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsValidIdentifier reports whether s is a plain SQL identifier. Permission
// grants accept either an identifier or the wildcard token.
func IsValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// IsValidGrant reports whether a permission grant entry is acceptable:
// the wildcard, an identifier, or a qualified table.column identifier.
func IsValidGrant(s string) bool {
	if s == "*" {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return IsValidIdentifier(s[:i]) && IsValidIdentifier(s[i+1:])
		}
	}
	return IsValidIdentifier(s)
}
