// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return &reg, nil
}

// Find returns the template with the given id.
func (r *TemplateRegistry) Find(id string) (*OrganizationTemplate, bool) {
	for i := range r.Templates {
		if r.Templates[i].ID == id {
			return &r.Templates[i], true
		}
	}
	return nil, false
}

// Validate rejects duplicate ids, unnamed fields and unknown field types.
func (r *TemplateRegistry) Validate() error {
	seen := make(map[string]struct{}, len(r.Templates))
	for _, t := range r.Templates {
		if t.ID == "" {
			return fmt.Errorf("template without id")
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate template id %q", t.ID)
		}
		seen[t.ID] = struct{}{}

		for _, fields := range [][]TemplateField{t.HeaderFields, t.ItemFields, t.TermsFields} {
			for _, f := range fields {
				if f.Name == "" {
					return fmt.Errorf("template %q: field without name", t.ID)
				}
				switch f.Type {
				case FieldText, FieldTextarea, FieldNumber, FieldCurrency, FieldDate:
				default:
					return fmt.Errorf("template %q: field %q has unknown type %q", t.ID, f.Name, f.Type)
				}
			}
		}
	}
	return nil
}

// Update sets one attribute of a template. Field-level attributes are
// addressed as "<section>.<fieldName>.required" with section one of
// header, items or terms.
func (r *TemplateRegistry) Update(id, attr, value string) error {
	tmpl, ok := r.Find(id)
	if !ok {
		return fmt.Errorf("template %q not found", id)
	}

	switch attr {
	case "name":
		tmpl.Name = value
	case "description":
		tmpl.Description = value
	case "version":
		tmpl.Version = value
	case "organizationName":
		tmpl.OrganizationName = value
	default:
		if err := tmpl.updateField(attr, value); err != nil {
			return err
		}
	}

	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return nil
}

func (t *OrganizationTemplate) updateField(attr, value string) error {
	parts := strings.Split(attr, ".")
	if len(parts) != 3 {
		return fmt.Errorf("unknown attribute %q", attr)
	}
	section, name, prop := parts[0], parts[1], parts[2]

	var fields []TemplateField
	switch section {
	case "header":
		fields = t.HeaderFields
	case "items":
		fields = t.ItemFields
	case "terms":
		fields = t.TermsFields
	default:
		return fmt.Errorf("unknown section %q", section)
	}

	for i := range fields {
		if fields[i].Name != name {
			continue
		}
		switch prop {
		case "required":
			required, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid required value: %w", err)
			}
			fields[i].Required = required
		case "source":
			fields[i].Source = value
		case "type":
			fields[i].Type = value
		default:
			return fmt.Errorf("unknown field property %q", prop)
		}
		return nil
	}
	return fmt.Errorf("template %q has no %s field %q", t.ID, section, name)
}

// Save validates the registry and writes it as indented JSON.
func Save(reg *TemplateRegistry, path string) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}
