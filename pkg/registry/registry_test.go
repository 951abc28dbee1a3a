package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1.0",
		"templates": [{
			"id": "standard",
			"name": "Standard",
			"headerFields": [{"name": "vendor_company", "type": "text", "required": true, "source": "vendorName"}],
			"itemFields": [{"name": "quantity", "type": "number", "required": true}],
			"termsFields": [{"name": "notes", "type": "textarea"}]
		}]
	}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	tmpl, ok := reg.Find("standard")
	require.True(t, ok)
	assert.Equal(t, "vendorName", tmpl.HeaderFields[0].Source)
	assert.Equal(t, 2, tmpl.RequiredCount())

	_, ok = reg.Find("missing")
	assert.False(t, ok)
}

func TestLoadRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"templates": [`, "parse registry"},
		{"duplicate id", `{"templates": [{"id": "a"}, {"id": "a"}]}`, `duplicate template id "a"`},
		{"missing id", `{"templates": [{"name": "x"}]}`, "template without id"},
		{"unknown type", `{"templates": [{"id": "a", "headerFields": [{"name": "f", "type": "dropdown"}]}]}`, `unknown type "dropdown"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry(writeRegistry(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestShippedRegistry(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "templates", "registry.json"))
	require.NoError(t, err)

	tmpl, ok := reg.Find("standard_procurement_v1")
	require.True(t, ok)
	assert.Equal(t, 16, tmpl.RequiredCount())
	assert.NotEmpty(t, tmpl.Schema)
}

func TestUpdateAndSave(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1.0",
		"templates": [{
			"id": "standard",
			"name": "Standard",
			"headerFields": [{"name": "vendor_company", "type": "text", "source": "vendorName"}],
			"itemFields": [{"name": "quantity", "type": "number", "required": true}]
		}]
	}`)
	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	require.NoError(t, reg.Update("standard", "version", "1.1"))
	require.NoError(t, reg.Update("standard", "header.vendor_company.required", "true"))
	require.NoError(t, reg.Update("standard", "items.quantity.source", "items.quantity"))
	assert.NotEmpty(t, reg.LastUpdated)

	require.NoError(t, Save(reg, path))

	reloaded, err := LoadRegistry(path)
	require.NoError(t, err)
	tmpl, ok := reloaded.Find("standard")
	require.True(t, ok)
	assert.Equal(t, "1.1", tmpl.Version)
	assert.True(t, tmpl.HeaderFields[0].Required)
	assert.Equal(t, "items.quantity", tmpl.ItemFields[0].Source)
	assert.Equal(t, 2, tmpl.RequiredCount())
}

func TestUpdate_Errors(t *testing.T) {
	reg := &TemplateRegistry{Templates: []OrganizationTemplate{{
		ID:           "standard",
		HeaderFields: []TemplateField{{Name: "vendor_company", Type: FieldText}},
	}}}

	tests := []struct {
		id, attr, value, want string
	}{
		{"missing", "name", "x", `template "missing" not found`},
		{"standard", "colour", "x", `unknown attribute "colour"`},
		{"standard", "footer.vendor_company.required", "true", `unknown section "footer"`},
		{"standard", "header.vendor_phone.required", "true", `no header field "vendor_phone"`},
		{"standard", "header.vendor_company.required", "maybe", "invalid required value"},
		{"standard", "header.vendor_company.width", "3", `unknown field property "width"`},
	}

	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			err := reg.Update(tt.id, tt.attr, tt.value)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	reg := &TemplateRegistry{Templates: []OrganizationTemplate{{ID: "a"}, {ID: "a"}}}
	err := Save(reg, filepath.Join(t.TempDir(), "registry.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate template id")
}
