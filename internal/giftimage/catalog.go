package giftimage

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Category describes how a gift category is illustrated.
type Category struct {
	Label       string `yaml:"label"`
	Placeholder string `yaml:"placeholder"`
	PromptHint  string `yaml:"prompt_hint"`
}

// Catalog maps category keys to their placeholder and prompt hint.
type Catalog struct {
	Default    Category            `yaml:"default"`
	Categories map[string]Category `yaml:"categories"`
}

// LoadCatalog reads the catalog at path, or the embedded default when path
// is empty.
func LoadCatalog(path string) (*Catalog, error) {
	raw := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		raw = b
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Default.Placeholder == "" {
		return nil, fmt.Errorf("parse catalog: default placeholder is required")
	}
	normalized := make(map[string]Category, len(c.Categories))
	for k, v := range c.Categories {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	c.Categories = normalized
	return &c, nil
}

// Lookup returns the category, falling back to the default for unknown
// keys or missing fields.
func (c *Catalog) Lookup(category string) Category {
	cat, ok := c.Categories[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return c.Default
	}
	if cat.Placeholder == "" {
		cat.Placeholder = c.Default.Placeholder
	}
	if cat.PromptHint == "" {
		cat.PromptHint = c.Default.PromptHint
	}
	return cat
}
