package taxonomy

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNameLength is the longest name the term store accepts.
const MaxNameLength = 255

const fullWidthAmpersand = "\uFF06"

// invalidNameChars may not appear in group, term set or term names.
const invalidNameChars = ";\"<>|\t"

// InvalidArgumentError reports a request rejected before any round trip.
type InvalidArgumentError struct {
	Field   string
	Value   string
	Message string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
}

// IsInvalidArgument returns true if err wraps an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ie *InvalidArgumentError
	return errors.As(err, &ie)
}

// NormalizeName validates a taxonomy object name and returns it in the
// form the term store stores it: the ampersand becomes the full-width
// ampersand (U+FF06).
func NormalizeName(field, name string) (string, error) {
	if name == "" {
		return "", &InvalidArgumentError{Field: field, Message: "is required"}
	}
	if i := strings.IndexAny(name, invalidNameChars); i >= 0 {
		return "", &InvalidArgumentError{
			Field:   field,
			Value:   name,
			Message: fmt.Sprintf("contains the invalid character %q", name[i]),
		}
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return "", &InvalidArgumentError{
			Field:   field,
			Value:   string([]rune(name)[:32]) + "...",
			Message: fmt.Sprintf("is %d characters long, the limit is %d", n, MaxNameLength),
		}
	}
	return strings.ReplaceAll(name, "&", fullWidthAmpersand), nil
}

// NormalizeGuid strips the "/Guid(...)/" wrapper the server puts around
// Guid values in payloads. Other values are returned unchanged.
func NormalizeGuid(s string) string {
	if strings.HasPrefix(s, "/Guid(") && strings.HasSuffix(s, ")/") {
		return s[len("/Guid(") : len(s)-len(")/")]
	}
	return s
}

// ParseGuid parses a caller-supplied Guid, with or without braces.
func ParseGuid(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.Trim(NormalizeGuid(s), "{}"))
	if err != nil {
		return uuid.Nil, &InvalidArgumentError{Field: field, Value: s, Message: "is not a valid Guid"}
	}
	return id, nil
}
