package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject_SurroundingProse(t *testing.T) {
	in := "Claro! Aqui está a análise:\n{\"description\": \"Perfil {forte}\", \"alerts\": [\"a\"]}\nEspero ter ajudado."
	fields, err := ExtractJSONObject(in)
	require.NoError(t, err)
	assert.Equal(t, "Perfil {forte}", JSONText(fields["description"]))
	assert.Equal(t, []string{"a"}, JSONStrings(fields["alerts"]))
}

func TestExtractJSONObject_CodeFence(t *testing.T) {
	in := "```json\n{\"profile_title\": \"O Comandante\"}\n```"
	fields, err := ExtractJSONObject(in)
	require.NoError(t, err)
	assert.Equal(t, "O Comandante", JSONText(fields["profile_title"]))
}

func TestExtractJSONObject_TrailingComma(t *testing.T) {
	fields, err := ExtractJSONObject(`{"a": "x", "b": ["1", "2",],}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, JSONStrings(fields["b"]))
}

func TestExtractJSONObject_StringWrapped(t *testing.T) {
	fields, err := ExtractJSONObject(`"{\"description\": \"perfil\", \"alerts\": [\"a\"]}"`)
	require.NoError(t, err)
	assert.Equal(t, "perfil", JSONText(fields["description"]))
	assert.Equal(t, []string{"a"}, JSONStrings(fields["alerts"]))

	fields, err = ExtractJSONObject("```json\n\"{\\\"description\\\":\\\"x\\\"}\"\n```")
	require.NoError(t, err)
	assert.Equal(t, "x", JSONText(fields["description"]))
}

func TestExtractJSONObject_TrailingCommaKeepsStrings(t *testing.T) {
	fields, err := ExtractJSONObject(`{"a": "x, ]", "b": "y ,}",}`)
	require.NoError(t, err)
	assert.Equal(t, "x, ]", JSONText(fields["a"]))
	assert.Equal(t, "y ,}", JSONText(fields["b"]))
}

func TestStripTrailingCommas(t *testing.T) {
	assert.Equal(t, `{"a":[1,2]}`, stripTrailingCommas(`{"a":[1,2,],}`))
	assert.Equal(t, `{"a":"q\",]"}`, stripTrailingCommas(`{"a":"q\",]",}`))
}

func TestExtractJSONObject_EscapedQuoteInString(t *testing.T) {
	fields, err := ExtractJSONObject(`{"a": "diz \"}\" sempre"} resto`)
	require.NoError(t, err)
	assert.Equal(t, `diz "}" sempre`, JSONText(fields["a"]))
}

func TestExtractJSONObject_Failures(t *testing.T) {
	for _, in := range []string{"", "sem json aqui", `{"a": "b"`, `{"a": }`} {
		_, err := ExtractJSONObject(in)
		assert.Error(t, err, in)
	}
}

func TestJSONText_NonString(t *testing.T) {
	assert.Equal(t, `["x","y"]`, JSONText(json.RawMessage(`["x","y"]`)))
	assert.Equal(t, "42", JSONText(json.RawMessage(`42`)))
	assert.Equal(t, "", JSONText(json.RawMessage(`null`)))
	assert.Equal(t, "", JSONText(nil))
}

func TestJSONStrings_SingleString(t *testing.T) {
	assert.Equal(t, []string{"único"}, JSONStrings(json.RawMessage(`"único"`)))
	assert.Equal(t, []string{}, JSONStrings(nil))
}
