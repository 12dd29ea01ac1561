package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPage is the document served for unrecognized subcategory keys.
const DefaultPage = "List_of_sports"

// Sources maps subcategory keys to external document identifiers.
type Sources struct {
	Pages map[string]string `yaml:"pages"`
}

// DefaultSources returns the built-in subcategory table.
func DefaultSources() Sources {
	return Sources{
		Pages: map[string]string{
			"all":        "List_of_sports",
			"summer":     "Summer_Olympic_sports",
			"winter":     "Winter_Olympic_sports",
			"team":       "Team_sport",
			"individual": "Individual_sport",
			"water":      "List_of_water_sports",
			"combat":     "Combat_sport",
		},
	}
}

// LoadSources reads a subcategory table from a YAML file. Keys present
// in the file override the built-in table; missing keys keep their
// defaults.
func LoadSources(path string) (Sources, error) {
	sources := DefaultSources()

	data, err := os.ReadFile(path)
	if err != nil {
		return sources, fmt.Errorf("read sources file: %w", err)
	}

	var override Sources
	if err := yaml.Unmarshal(data, &override); err != nil {
		return sources, fmt.Errorf("parse sources file: %w", err)
	}

	for key, page := range override.Pages {
		sources.Pages[key] = page
	}
	return sources, nil
}

// Page resolves a subcategory key to a document identifier, falling
// back to the default document for unknown keys.
func (s Sources) Page(subcategory string) string {
	if page, ok := s.Pages[subcategory]; ok && page != "" {
		return page
	}
	return DefaultPage
}
