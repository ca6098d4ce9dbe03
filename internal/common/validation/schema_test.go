package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["mode"],
	"properties": {
		"mode": {"type": "string", "enum": ["affiliate", "sponsor"]},
		"limit": {"type": "integer", "minimum": 1, "maximum": 3}
	}
}`

func TestSchema_ValidateJSON(t *testing.T) {
	schema := MustCompile(testSchema)

	tests := []struct {
		name  string
		doc   string
		valid bool
		field string
		code  string
	}{
		{name: "valid", doc: `{"mode":"sponsor"}`, valid: true},
		{name: "missing required", doc: `{}`, field: "mode", code: "REQUIRED_FIELD_MISSING"},
		{name: "enum", doc: `{"mode":"free"}`, field: "mode", code: "INVALID_ENUM_VALUE"},
		{name: "wrong type", doc: `{"mode":1}`, field: "mode", code: "INVALID_TYPE"},
		{name: "range", doc: `{"mode":"sponsor","limit":9}`, field: "limit", code: "RANGE_VIOLATION"},
		{name: "not json", doc: `{`, field: "(root)", code: "INVALID_JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.ValidateJSON([]byte(tt.doc))
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.Empty(t, result.Errors)
				return
			}
			require.NotEmpty(t, result.Errors)
			assert.Equal(t, tt.field, result.Errors[0].Field)
			assert.Equal(t, tt.code, result.Errors[0].Code)
			assert.Contains(t, result.Summary(), tt.field)
		})
	}
}

func TestSchema_ValidateGoValue(t *testing.T) {
	schema := MustCompile(testSchema)

	assert.True(t, schema.Validate(map[string]interface{}{"mode": "affiliate"}).Valid)
	assert.False(t, schema.Validate(map[string]interface{}{"mode": "x"}).Valid)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)

	assert.Panics(t, func() { MustCompile(`{`) })
}
