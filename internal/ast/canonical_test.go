package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeysNoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"z": "a<b>&c",
		"a": []any{int64(1), true, nil},
		"m": []string{"x", "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,true,null],"m":["x","y"],"z":"a<b>&c"}`, string(data))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"f": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	data, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	// An escaped backslash followed by the text u2028 stays escaped
	data, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestCanonicalNode(t *testing.T) {
	data, err := CanonicalNode(NewAnd(Eq("A", String("1")), Ge("B", Int(2))))
	require.NoError(t, err)
	assert.Equal(t,
		`{"children":[{"field":"A","op":"eq","value":"1"},{"field":"B","op":"ge","value":2}],"op":"and"}`,
		string(data))
}
