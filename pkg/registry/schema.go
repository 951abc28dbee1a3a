// pkg/registry/schema.go
package registry

// Field types understood by the template mapper.
const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldNumber   = "number"
	FieldCurrency = "currency"
	FieldDate     = "date"
)

type TemplateRegistry struct {
	Version     string                 `json:"version"`
	LastUpdated string                 `json:"lastUpdated"`
	Templates   []OrganizationTemplate `json:"templates"`
}

// OrganizationTemplate is an organization's required quote layout.
type OrganizationTemplate struct {
	ID                string          `json:"id"`
	OrganizationName  string          `json:"organizationName"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Version           string          `json:"version"`
	HeaderFields      []TemplateField `json:"headerFields"`
	ItemFields        []TemplateField `json:"itemFields"`
	TermsFields       []TemplateField `json:"termsFields"`
	RequiredDocuments []string        `json:"requiredDocuments,omitempty"`
	// Schema optionally constrains the mapped document (JSON Schema).
	Schema map[string]interface{} `json:"schema,omitempty"`
}

// TemplateField describes one organization field. Source, when set, names
// the canonical quote path it is filled from; MappingHints are keywords
// used when no source is given.
type TemplateField struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Required     bool     `json:"required"`
	Description  string   `json:"description,omitempty"`
	Source       string   `json:"source,omitempty"`
	MappingHints []string `json:"mappingHints,omitempty"`
}

// RequiredCount is the number of required fields across all sections.
func (t OrganizationTemplate) RequiredCount() int {
	n := 0
	for _, fields := range [][]TemplateField{t.HeaderFields, t.ItemFields, t.TermsFields} {
		for _, f := range fields {
			if f.Required {
				n++
			}
		}
	}
	return n
}
