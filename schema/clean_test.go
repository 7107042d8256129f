package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCleanRemovesNilProperties(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"keep":  "value",
		"drop":  nil,
		"zero":  0.0,
		"false": false,
		"empty": "",
		"nested": map[string]any{
			"inner": nil,
			"ok":    1.0,
		},
		"list": []any{
			map[string]any{"gone": nil, "stay": true},
			"plain",
		},
	}

	got := Clean(in)
	assert.Equal(t, map[string]any{
		"keep":  "value",
		"zero":  0.0,
		"false": false,
		"empty": "",
		"nested": map[string]any{
			"ok": 1.0,
		},
		"list": []any{
			map[string]any{"stay": true},
			"plain",
		},
	}, got)
}

func TestCleanScalarsPassThrough(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "x", Clean("x"))
	assert.Equal(t, 3.5, Clean(3.5))
	assert.Nil(t, Clean(nil))
}

// jsonValue generates arbitrary JSON-model values, nils included, up to the
// given nesting depth.
func jsonValue(depth int) *rapid.Generator[any] {
	scalar := rapid.OneOf(
		rapid.Just[any](nil),
		rapid.Just[any](false),
		rapid.Just[any](true),
		rapid.Just[any](""),
		rapid.Map(rapid.Float64(), func(f float64) any { return f }),
		rapid.Map(rapid.StringN(0, 8, 16), func(s string) any { return s }),
	)
	if depth <= 0 {
		return scalar
	}
	return rapid.OneOf(
		scalar,
		rapid.Map(
			rapid.SliceOfN(jsonValue(depth-1), 0, 4),
			func(items []any) any { return items },
		),
		rapid.Map(
			rapid.MapOfN(rapid.StringN(1, 6, 12), jsonValue(depth-1), 0, 4),
			func(m map[string]any) any { return m },
		),
	)
}

func hasNilProperty(v any) bool {
	switch val := v.(type) {
	case map[string]any:
		for _, item := range val {
			if item == nil || hasNilProperty(item) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if hasNilProperty(item) {
				return true
			}
		}
	}
	return false
}

func countNonNil(v any) int {
	switch val := v.(type) {
	case map[string]any:
		n := 0
		for _, item := range val {
			if item != nil {
				n += countNonNil(item)
			}
		}
		return n
	case []any:
		n := 0
		for _, item := range val {
			n += countNonNil(item)
		}
		return n
	default:
		if v == nil {
			return 0
		}
		return 1
	}
}

func TestCleanProperties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		v := jsonValue(3).Draw(t, "value")
		cleaned := Clean(v)

		if hasNilProperty(cleaned) {
			t.Fatalf("cleaned value still contains nil properties: %#v", cleaned)
		}
		if got, want := countNonNil(cleaned), countNonNil(v); got != want {
			t.Fatalf("non-nil leaf count changed: got %d, want %d", got, want)
		}
		// Idempotence.
		if got := Clean(cleaned); !assert.ObjectsAreEqual(cleaned, got) {
			t.Fatalf("Clean is not idempotent: %#v vs %#v", cleaned, got)
		}
	})
}
