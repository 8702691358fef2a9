package ledgerstate

import (
	"fmt"
	"strings"
)

// Separator joins key components. Components may not contain it, which keeps
// distinct component sequences from ever producing the same key.
const Separator = ":"

// MakeKey joins components into a composite key. Order is significant.
func MakeKey(components ...string) (string, error) {
	if len(components) == 0 {
		return "", &ValidationError{Field: "key", Msg: "at least one key component is required"}
	}
	for i, c := range components {
		if err := validateComponent(i, c); err != nil {
			return "", err
		}
	}
	return strings.Join(components, Separator), nil
}

// PartialKey returns the prefix shared by every key whose leading components
// equal the given ones. It is meant for range scans by a partial identity.
func PartialKey(components ...string) (string, error) {
	key, err := MakeKey(components...)
	if err != nil {
		return "", err
	}
	return key + Separator, nil
}

// SplitKey is the inverse of MakeKey.
func SplitKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, Separator)
}

func validateComponent(i int, c string) error {
	if c == "" {
		return &ValidationError{Field: "key", Msg: fmt.Sprintf("key component %d must not be empty", i)}
	}
	if strings.Contains(c, Separator) {
		return &ValidationError{Field: "key", Msg: fmt.Sprintf("key component %d %q contains the reserved separator %q", i, c, Separator)}
	}
	return nil
}
