package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject_Fenced(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"methodology\": \"smc\", \"confidence\": 82}\n```\nLet me know."
	obj, err := ExtractObject(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"methodology":"smc","confidence":82}`, obj)
}

func TestExtractObject_Prose(t *testing.T) {
	raw := `Sure! {"a": {"b": "has } brace"}, "c": [1,2]} trailing words`
	obj, err := ExtractObject(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":"has } brace"},"c":[1,2]}`, obj)
}

func TestExtractObject_Failures(t *testing.T) {
	_, err := ExtractObject("")
	assert.ErrorIs(t, err, ErrNoObject)

	_, err = ExtractObject("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoObject)

	_, err = ExtractObject(`{"a": 1,}`)
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = ExtractObject(`{"a": "unterminated`)
	assert.ErrorIs(t, err, ErrNoObject)
}

func TestIndentKeepsKeyOrder(t *testing.T) {
	assert.Equal(t, "{\n  \"z\": 1,\n  \"a\": [\n    true\n  ]\n}", Indent(`{"z":1,"a":[true]}`))
	assert.Equal(t, "not json", Indent(" not json "))
}
