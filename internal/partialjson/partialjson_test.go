package partialjson_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria-chat/backend/internal/partialjson"
)

func TestReconstruct_CompleteInputMatchesUnmarshal(t *testing.T) {
	inputs := []string{
		`{"message":"ok","workflows":[{"type":"search"}]}`,
		`[1,2,[3,[4,[5]]]]`,
		`"plain string"`,
		`42`,
		`{"deep":{"a":{"b":{"c":{"d":[true,false,null]}}}}}`,
	}
	for _, in := range inputs {
		var expected any
		require.NoError(t, json.Unmarshal([]byte(in), &expected))
		assert.Equal(t, expected, partialjson.Reconstruct(in), in)
	}
}

func TestReconstruct_EmptyInput(t *testing.T) {
	assert.Nil(t, partialjson.Reconstruct(""))
}

func TestReconstruct_ClosesOpenContainers(t *testing.T) {
	t.Run("missing closing brace", func(t *testing.T) {
		got := partialjson.Reconstruct(`{"message":"Hello","context":{}`)
		assert.Equal(t, map[string]any{"message": "Hello", "context": map[string]any{}}, got)
	})

	t.Run("open string inside array", func(t *testing.T) {
		got := partialjson.Reconstruct(`{"items":["alpha","bet`)
		assert.Equal(t, map[string]any{"items": []any{"alpha", "bet"}}, got)
	})

	t.Run("raw newline inside string", func(t *testing.T) {
		got := partialjson.Reconstruct("{\"message\":\"line one\nline two")
		assert.Equal(t, map[string]any{"message": "line one\nline two"}, got)
	})

	t.Run("escaped quote does not end string", func(t *testing.T) {
		got := partialjson.Reconstruct(`{"message":"say \"hi`)
		assert.Equal(t, map[string]any{"message": `say "hi`}, got)
	})

	t.Run("brackets inside strings are ignored", func(t *testing.T) {
		got := partialjson.Reconstruct(`{"message":"a } ] b`)
		assert.Equal(t, map[string]any{"message": "a } ] b"}, got)
	})
}

func TestReconstruct_TrailingContent(t *testing.T) {
	t.Run("stray closer is dropped", func(t *testing.T) {
		got := partialjson.Reconstruct(`]{"a":1}`)
		assert.Equal(t, map[string]any{"a": float64(1)}, got)
	})

	t.Run("text after a closed value is discarded", func(t *testing.T) {
		got := partialjson.Reconstruct(`{"a":1}{"b":`)
		assert.Equal(t, map[string]any{"a": float64(1)}, got)
	})

	t.Run("newline expansion keeps truncation aligned", func(t *testing.T) {
		got := partialjson.Reconstruct("{\"a\":\"x\ny\"} trailing")
		assert.Equal(t, map[string]any{"a": "x\ny"}, got)
	})
}

func TestReconstruct_Unrecoverable(t *testing.T) {
	assert.Nil(t, partialjson.Reconstruct(`{"a":[1,2}`))
	assert.Nil(t, partialjson.Reconstruct(`{"a":`))
	assert.Nil(t, partialjson.Reconstruct(`tru`))
}

func TestReconstruct_PrefixesStayConsistent(t *testing.T) {
	full := `{"message":"Hello there","context":{"query":{"title":"t"}},"workflows":[{"type":"search","input":{"q":"x"}}]}`
	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(full), &expected))

	for i := 1; i <= len(full); i++ {
		got := partialjson.Reconstruct(full[:i])
		if got == nil {
			continue
		}
		obj, ok := got.(map[string]any)
		require.True(t, ok, "prefix %q produced %T", full[:i], got)
		assertPrefixConsistent(t, expected, obj)
	}
}

func assertPrefixConsistent(t *testing.T, full, partial any) {
	t.Helper()
	switch p := partial.(type) {
	case map[string]any:
		f, ok := full.(map[string]any)
		require.True(t, ok)
		for key, value := range p {
			fv, exists := f[key]
			if !exists {
				// a key still being streamed is a prefix of a real key
				found := false
				for fk := range f {
					if len(fk) >= len(key) && fk[:len(key)] == key {
						found = true
					}
				}
				require.True(t, found, "unexpected key %q", key)
				continue
			}
			assertPrefixConsistent(t, fv, value)
		}
	case []any:
		f, ok := full.([]any)
		require.True(t, ok)
		require.LessOrEqual(t, len(p), len(f))
		for i := range p {
			assertPrefixConsistent(t, f[i], p[i])
		}
	case string:
		f, ok := full.(string)
		require.True(t, ok)
		assert.True(t, len(p) <= len(f) && f[:len(p)] == p, "%q is not a prefix of %q", p, f)
	}
}

func TestReconstructInto(t *testing.T) {
	var body struct {
		Message string `json:"message"`
	}
	assert.True(t, partialjson.ReconstructInto(`{"message":"Hel`, &body))
	assert.Equal(t, "Hel", body.Message)

	assert.False(t, partialjson.ReconstructInto(``, &body))
	assert.False(t, partialjson.ReconstructInto(`[1,2`, &body))
}
