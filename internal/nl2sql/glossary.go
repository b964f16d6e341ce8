package nl2sql

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed glossary.yaml
var defaultGlossary []byte

// Glossary explains domain columns to the oracle in plain language.
type Glossary struct {
	Tables []GlossaryTable `yaml:"tables"`
}

type GlossaryTable struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Columns     []GlossaryColumn `yaml:"columns"`
}

type GlossaryColumn struct {
	Name    string            `yaml:"name"`
	Meaning string            `yaml:"meaning"`
	Values  map[string]string `yaml:"values"`
}

func DefaultGlossary() Glossary {
	glossary, err := ParseGlossary(defaultGlossary)
	if err != nil {
		panic(fmt.Sprintf("embedded glossary: %v", err))
	}
	return glossary
}

// LoadGlossary reads a glossary file; an empty path yields the embedded default.
func LoadGlossary(path string) (Glossary, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultGlossary(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Glossary{}, fmt.Errorf("read glossary %q: %w", path, err)
	}
	glossary, err := ParseGlossary(raw)
	if err != nil {
		return Glossary{}, fmt.Errorf("glossary %q: %w", path, err)
	}
	return glossary, nil
}

func ParseGlossary(raw []byte) (Glossary, error) {
	var glossary Glossary
	if err := yaml.Unmarshal(raw, &glossary); err != nil {
		return Glossary{}, fmt.Errorf("decode glossary yaml: %w", err)
	}
	for i, table := range glossary.Tables {
		if strings.TrimSpace(table.Name) == "" {
			return Glossary{}, fmt.Errorf("glossary table %d has no name", i)
		}
		for j, col := range table.Columns {
			if strings.TrimSpace(col.Name) == "" {
				return Glossary{}, fmt.Errorf("glossary table %q column %d has no name", table.Name, j)
			}
		}
	}
	return glossary, nil
}

func (g Glossary) String() string {
	var b strings.Builder
	for i, table := range g.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(table.Name)
		if table.Description != "" {
			b.WriteString(" (" + table.Description + ")")
		}
		b.WriteString(":\n")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "  - %s: %s", col.Name, col.Meaning)
			if len(col.Values) > 0 {
				keys := make([]string, 0, len(col.Values))
				for key := range col.Values {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				values := make([]string, 0, len(keys))
				for _, key := range keys {
					values = append(values, fmt.Sprintf("'%s' = %s", key, col.Values[key]))
				}
				b.WriteString("; values: " + strings.Join(values, ", "))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
