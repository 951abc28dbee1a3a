// cmd/tools/template-registry/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"quote-engine/internal/engine/templates"
	"quote-engine/pkg/registry"
)

const defaultRegistryPath = "configs/templates/registry.json"

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	listPath := listCmd.String("path", defaultRegistryPath, "Path to registry file")

	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	id := updateCmd.String("id", "", "Template ID (e.g., standard_procurement_v1)")
	attr := updateCmd.String("attr", "", "Attribute to update (name, version, header.<field>.required, ...)")
	value := updateCmd.String("value", "", "New value for the attribute")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listTemplates(*listPath); err != nil {
			fmt.Printf("Error listing templates: %v\n", err)
			os.Exit(1)
		}

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *id == "" || *attr == "" {
			fmt.Println("Error: id and attr are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTemplate(*updatePath, *id, *attr, *value); err != nil {
			fmt.Printf("Error updating template: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated template %s, %s = %q\n", *id, *attr, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(*validatePath); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		help()
	default:
		help()
		os.Exit(1)
	}
}

func listTemplates(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}
	for _, t := range reg.Templates {
		fmt.Printf("%-28s %-8s required=%-3d schema=%t  %s\n",
			t.ID, t.Version, t.RequiredCount(), len(t.Schema) > 0, t.Name)
	}
	return nil
}

func updateTemplate(path, id, attr, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}
	if err := reg.Update(id, attr, value); err != nil {
		return err
	}
	return registry.Save(reg, path)
}

// validateRegistry loads the registry and compiles every template schema.
func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}
	if len(reg.Templates) == 0 {
		return fmt.Errorf("registry contains no templates")
	}

	for _, t := range reg.Templates {
		if t.RequiredCount() == 0 {
			return fmt.Errorf("template %s has no required fields", t.ID)
		}
		if err := templates.CompileSchema(t.Schema); err != nil {
			return fmt.Errorf("template %s: %w", t.ID, err)
		}
	}

	fmt.Printf("Registry validation passed. Found %d templates.\n", len(reg.Templates))
	return nil
}

func help() {
	fmt.Print(`
Usage: template-registry <command> [flags]

Commands:
  list      List templates in the registry
  update    Update a template attribute
  validate  Validate the registry file and compile template schemas
  help      Show this help message

Examples:
  template-registry list
  template-registry update -id standard_procurement_v1 -attr version -value 1.1.0
  template-registry update -id standard_procurement_v1 -attr terms.warranty.required -value false
  template-registry validate -path configs/templates/registry.json

Use 'template-registry <command> -h' for more information about a command.
` + "\n")
}
