package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributes_Accessors(t *testing.T) {
	attrs := Attributes{"field": "price", "empty": ""}

	val, ok := attrs.Get("field")
	assert.True(t, ok)
	assert.Equal(t, "price", val)

	_, ok = attrs.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, "fallback", attrs.GetDefault("missing", "fallback"))
	assert.Equal(t, "", attrs.GetDefault("empty", "fallback"))
	assert.True(t, attrs.Has("empty"))
	assert.Equal(t, []string{"empty", "field"}, attrs.Keys())

	var nilAttrs Attributes
	assert.False(t, nilAttrs.Has("x"))
	assert.Equal(t, "d", nilAttrs.GetDefault("x", "d"))
	assert.NotNil(t, nilAttrs.Map())
	assert.Equal(t, FmtEmptyBraces, nilAttrs.String())
}

func TestAttributes_Bool(t *testing.T) {
	tests := []struct {
		name     string
		attrs    Attributes
		def      bool
		expected bool
	}{
		{"missing uses default", Attributes{}, true, true},
		{"bare flag", Attributes{"x": ""}, false, true},
		{"true", Attributes{"x": "true"}, false, true},
		{"TRUE", Attributes{"x": "TRUE"}, false, true},
		{"yes", Attributes{"x": "yes"}, false, true},
		{"1", Attributes{"x": "1"}, false, true},
		{"false", Attributes{"x": "false"}, true, false},
		{"no", Attributes{"x": "no"}, true, false},
		{"0", Attributes{"x": "0"}, true, false},
		{"garbage keeps default", Attributes{"x": "maybe"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.attrs.Bool("x", tt.def))
		})
	}
}

func TestAttributes_Int(t *testing.T) {
	attrs := Attributes{"count": "5", "bad": "five", "id": " 42 "}
	assert.Equal(t, 5, attrs.Int("count", 10))
	assert.Equal(t, 10, attrs.Int("bad", 10))
	assert.Equal(t, 10, attrs.Int("missing", 10))

	id, ok := attrs.Int64("id")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = attrs.Int64("bad")
	assert.False(t, ok)
}

func TestMergeAttributes(t *testing.T) {
	defaults := map[string]string{"count": "10", "order": "DESC", "status": "publish"}
	explicit := Attributes{"count": "2", "status": ""}

	merged := MergeAttributes(defaults, explicit)

	assert.Equal(t, "2", merged["count"], "explicit wins")
	assert.Equal(t, "DESC", merged["order"], "default fills gaps")
	assert.Equal(t, "", merged["status"], "explicit empty still wins")
	assert.Equal(t, "10", defaults["count"], "defaults untouched")
}

func TestAttributes_String(t *testing.T) {
	attrs := Attributes{"b": "2", "a": "1"}
	assert.Equal(t, `{a="1", b="2"}`, attrs.String())
}
