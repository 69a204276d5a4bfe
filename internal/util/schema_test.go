package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calculatorParams struct {
	Operation string  `json:"operation" description:"The arithmetic operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Precision int     `json:"precision,omitempty"`
	internal  string
}

func TestCreateSchemaFromStruct(t *testing.T) {
	schema := CreateSchema(calculatorParams{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 4, "unexported fields are skipped")

	op, ok := props["operation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", op["type"])
	assert.Equal(t, "The arithmetic operation", op["description"])

	a, ok := props["a"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "number", a["type"])

	precision, ok := props["precision"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "integer", precision["type"])

	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"operation", "a", "b"}, required, "omitempty fields are optional")
}

func TestCreateSchemaPointerAndNonStruct(t *testing.T) {
	schema := CreateSchema(&calculatorParams{})
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "operation")

	empty := CreateSchema("not a struct")
	assert.Equal(t, "object", empty["type"])
	assert.Empty(t, empty["properties"])
	assert.NotContains(t, empty, "required")
}

func TestValidateParametersSuccess(t *testing.T) {
	schema := CreateSchema(calculatorParams{})
	err := ValidateParameters(map[string]any{
		"operation": "add",
		"a":         2.0,
		"b":         2,
	}, schema)
	assert.NoError(t, err)
}

func TestValidateParametersMissingRequired(t *testing.T) {
	schema := CreateSchema(calculatorParams{})
	err := ValidateParameters(map[string]any{"operation": "add", "a": 1.0}, schema)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "b", verr.Field)
	assert.Contains(t, verr.Error(), "required field is missing")
}

func TestValidateParametersTypeMismatch(t *testing.T) {
	schema := CreateSchema(calculatorParams{})
	err := ValidateParameters(map[string]any{
		"operation": 42,
		"a":         1.0,
		"b":         2.0,
	}, schema)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "operation", verr.Field)
}

func TestValidateParametersJSONDecodedSchema(t *testing.T) {
	// A schema round-tripped through JSON carries []any required lists and
	// float64 numbers; both must validate the same as the typed shape.
	raw, err := json.Marshal(CreateSchema(calculatorParams{}))
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	err = ValidateParameters(map[string]any{
		"operation": "add",
		"a":         2.5,
		"b":         3.0,
		"precision": 2.0,
	}, schema)
	assert.NoError(t, err)

	err = ValidateParameters(map[string]any{"operation": "add"}, schema)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateParametersExtraFieldsAllowed(t *testing.T) {
	schema := CreateSchema(calculatorParams{})
	err := ValidateParameters(map[string]any{
		"operation": "add",
		"a":         1.0,
		"b":         2.0,
		"comment":   "ignored",
	}, schema)
	assert.NoError(t, err)
}

func TestValidateParametersIntegerAcceptsWholeFloat(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"n": 3.0}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"n": 3.5}, schema))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Hello {{.name}}", map[string]any{"name": "Victor"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Victor", out)

	// No template markers: returned verbatim without parsing.
	out, err = RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = RenderTemplate(`{{upper .name}}`, map[string]any{"name": "victor"})
	require.NoError(t, err)
	assert.Equal(t, "VICTOR", out)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
