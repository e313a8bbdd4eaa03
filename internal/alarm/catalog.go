package alarm

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var catalogYAML []byte

// Catalog holds the alarm templates shipped with the binary.
type Catalog struct {
	Templates []Template `yaml:"templates"`
}

// LoadCatalog parses the embedded template catalog.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("parse alarm template catalog: %w", err)
	}
	if len(c.Templates) == 0 {
		return nil, fmt.Errorf("alarm template catalog is empty")
	}
	return &c, nil
}

// ForServiceType returns the templates that apply to a resource type.
func (c *Catalog) ForServiceType(serviceType string) []Template {
	var out []Template
	for _, t := range c.Templates {
		if t.ServiceType == serviceType {
			out = append(out, t)
		}
	}
	return out
}
