package extension

import (
	"errors"
	"fmt"
	"strings"
)

// KeyDelimiter separates member paths in an encoded composite key
const KeyDelimiter = ", "

// ErrKeyDelimiter is returned when a member path contains the key delimiter
var ErrKeyDelimiter = errors.New("member path contains key delimiter")

// EncodeKeys joins member paths into the association key format.
// ParseKeys(EncodeKeys(keys)) returns keys unchanged.
func EncodeKeys(keys []string) (string, error) {
	for _, k := range keys {
		if strings.Contains(k, ",") {
			return "", fmt.Errorf("%w: %q", ErrKeyDelimiter, k)
		}
	}
	return strings.Join(keys, KeyDelimiter), nil
}

// ParseKeys splits an encoded key list into trimmed member paths
func ParseKeys(encoded string) []string {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	parts := strings.Split(encoded, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		keys = append(keys, strings.TrimSpace(p))
	}
	return keys
}
