// Package cursor encodes store-native pagination keys as opaque strings that
// survive a round trip through a URL query parameter.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophtodo/internal/common"
)

// Key is a store-native position: the last evaluated key of a scan, the
// (createdAt, id) pair of a keyset page, or an object-store key.
type Key map[string]any

// Encode returns the opaque form of k, or "" for an empty key.
func Encode(k Key) (string, error) {
	if len(k) == 0 {
		return "", nil
	}
	b, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode reverses Encode. "" decodes to a nil key. Malformed input yields an
// error wrapping common.ErrorDecode.
func Decode(s string) (Key, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		// Cursors minted by older clients used the standard alphabet.
		if b, err = base64.StdEncoding.DecodeString(s); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorDecode, err)
		}
	}
	var k Key
	if err := json.Unmarshal(b, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorDecode, err)
	}
	if len(k) == 0 {
		return nil, fmt.Errorf("%w: empty key", common.ErrorDecode)
	}
	return k, nil
}

// String returns k[name] if it is a non-empty string.
func (k Key) String(name string) (string, bool) {
	v, ok := k[name].(string)
	return v, ok && v != ""
}
