package internal

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Attributes is a map of directive attribute key-value pairs.
// Values are kept as the raw strings found in the source; callers coerce.
type Attributes map[string]string

// Get retrieves an attribute value, returning ok=false if not found
func (a Attributes) Get(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	val, ok := a[key]
	return val, ok
}

// GetDefault retrieves an attribute value with a default fallback
func (a Attributes) GetDefault(key, defaultVal string) string {
	if a == nil {
		return defaultVal
	}
	if val, ok := a[key]; ok {
		return val
	}
	return defaultVal
}

// Has checks if an attribute exists
func (a Attributes) Has(key string) bool {
	if a == nil {
		return false
	}
	_, ok := a[key]
	return ok
}

// Bool coerces an attribute to a boolean. A flag present without a value
// ([list show_thumbnail]) counts as true. Unrecognized values yield defaultVal.
func (a Attributes) Bool(key string, defaultVal bool) bool {
	val, ok := a.Get(key)
	if !ok {
		return defaultVal
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case StringValueEmpty, AttrValueTrue, AttrValueYes, AttrValueOn, AttrValueOne:
		return true
	case AttrValueFalse, AttrValueNo, AttrValueOff, AttrValueZero:
		return false
	default:
		return defaultVal
	}
}

// Int coerces an attribute to an integer, returning defaultVal when the
// attribute is missing or not a number.
func (a Attributes) Int(key string, defaultVal int) int {
	val, ok := a.Get(key)
	if !ok {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return n
}

// Int64 is Int for 64-bit identifiers. ok is false when the attribute is
// present but unparseable.
func (a Attributes) Int64(key string) (int64, bool) {
	val, exists := a.Get(key)
	if !exists {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Keys returns all attribute keys in sorted order
func (a Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the underlying map
func (a Attributes) Map() map[string]string {
	if a == nil {
		return make(map[string]string)
	}
	result := make(map[string]string, len(a))
	for k, v := range a {
		result[k] = v
	}
	return result
}

// String returns a string representation of the attributes
func (a Attributes) String() string {
	if len(a) == 0 {
		return FmtEmptyBraces
	}
	keys := a.Keys()
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+FmtKeyValueSep+fmt.Sprintf("%q", a[k]))
	}
	return FmtOpenBrace + strings.Join(pairs, FmtCommaSep) + FmtCloseBrace
}

// MergeAttributes layers explicit attributes over defaults. Explicit values
// always win, including explicit empty strings.
func MergeAttributes(defaults map[string]string, explicit Attributes) Attributes {
	merged := make(Attributes, len(defaults)+len(explicit))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range explicit {
		merged[k] = v
	}
	return merged
}
