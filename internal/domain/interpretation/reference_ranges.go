package interpretation

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed reference_ranges.yaml
var referenceRangesYAML []byte

// Range is the normal interval for one analyte. Sex-specific floors use
// MinMale/MinFemale; ordinal analytes use Normal.
type Range struct {
	Min       *float64 `yaml:"min" json:"min,omitempty"`
	Max       *float64 `yaml:"max" json:"max,omitempty"`
	MinMale   *float64 `yaml:"min_male" json:"min_male,omitempty"`
	MinFemale *float64 `yaml:"min_female" json:"min_female,omitempty"`
	Normal    string   `yaml:"normal" json:"normal,omitempty"`
	Unit      string   `yaml:"unit" json:"unit,omitempty"`
	Fasting   bool     `yaml:"fasting" json:"fasting,omitempty"`
}

// Catalog maps fluid type to analyte key to range.
type Catalog map[string]map[string]Range

// LoadCatalog parses a reference range document.
func LoadCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse reference ranges: %w", err)
	}
	return c, nil
}

var defaultCatalog = mustLoadCatalog()

func mustLoadCatalog() Catalog {
	c, err := LoadCatalog(referenceRangesYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// ReferenceRanges returns a copy of the ranges for a fluid type, including
// fluids the engine does not evaluate such as saliva.
func ReferenceRanges(fluid string) (map[string]Range, bool) {
	src, ok := defaultCatalog[strings.ToLower(fluid)]
	if !ok {
		return nil, false
	}
	out := make(map[string]Range, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, true
}

// ReferenceFluids lists the fluid types with a range table.
func ReferenceFluids() []string {
	fluids := make([]string, 0, len(defaultCatalog))
	for f := range defaultCatalog {
		fluids = append(fluids, f)
	}
	sort.Strings(fluids)
	return fluids
}
