package domain

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category buckets records whose community contains any of Keywords.
type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Title    string   `yaml:"title" json:"title"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

type CategoriesData struct {
	Categories []*Category `yaml:"categories"`
}

//go:embed data/categories.yaml
var categoriesYAML []byte

const (
	CategorySupernatural = "supernatural"
	CategoryHuman        = "human"
)

// LoadDefaultCategories returns the embedded supernatural and human categories.
func LoadDefaultCategories() ([]*Category, error) {
	return parseCategories(categoriesYAML)
}

// LoadCategoriesFile reads category definitions from path. An empty path
// yields the embedded defaults.
func LoadCategoriesFile(path string) ([]*Category, error) {
	if strings.TrimSpace(path) == "" {
		return LoadDefaultCategories()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	return parseCategories(raw)
}

func parseCategories(raw []byte) ([]*Category, error) {
	var data CategoriesData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	categories := make([]*Category, 0, len(data.Categories))
	for _, c := range data.Categories {
		if c == nil || strings.TrimSpace(c.Name) == "" {
			continue
		}
		keywords := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("category %q has no keywords", c.Name)
		}
		title := c.Title
		if title == "" {
			title = c.Name
		}
		categories = append(categories, &Category{Name: c.Name, Title: title, Keywords: keywords})
	}

	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories defined")
	}
	return categories, nil
}
