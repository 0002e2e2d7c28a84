// Package rbac holds the embedded permission catalog and the system-role
// permission grants seeded for every organization.
package rbac

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed permissions.yaml
var permissionsYAML []byte

type CatalogEntry struct {
	Code        string `yaml:"code"`
	Resource    string `yaml:"resource"`
	Action      string `yaml:"action"`
	Description string `yaml:"description"`
}

type catalogFile struct {
	Permissions []CatalogEntry `yaml:"permissions"`
}

// Catalog parses the embedded permission list. Codes must be unique and of
// the form "<resource>.<action>".
func Catalog() ([]CatalogEntry, error) {
	return parseCatalog(permissionsYAML)
}

func parseCatalog(raw []byte) ([]CatalogEntry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse permission catalog: %w", err)
	}
	if len(file.Permissions) == 0 {
		return nil, fmt.Errorf("permission catalog is empty")
	}
	seen := make(map[string]struct{}, len(file.Permissions))
	for i := range file.Permissions {
		e := &file.Permissions[i]
		e.Code = strings.TrimSpace(e.Code)
		if e.Code == "" {
			return nil, fmt.Errorf("permission catalog entry %d has no code", i)
		}
		if _, dup := seen[e.Code]; dup {
			return nil, fmt.Errorf("duplicate permission code %q", e.Code)
		}
		seen[e.Code] = struct{}{}
		want := e.Resource + "." + e.Action
		if e.Code != want {
			return nil, fmt.Errorf("permission code %q does not match resource.action %q", e.Code, want)
		}
	}
	return file.Permissions, nil
}
