package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules are the keyword lists driving classification. They ship with
// defaults and can be overridden from a YAML file so operators tune phrasing
// without a rebuild.
type Rules struct {
	PopularItems []string `yaml:"popular_items"`
	Sales        []string `yaml:"sales"`
	Regional     []string `yaml:"regional"`
	Profit       []string `yaml:"profit"`

	// RegionalTriggers are the phrases that must accompany a regional keyword
	// for the regional intent to fire ("city" alone is too weak a signal).
	RegionalTriggers []string `yaml:"regional_triggers"`

	// LongHorizon marks phrasing that pushes the default period to 90 days.
	LongHorizon []string `yaml:"long_horizon"`
}

// DefaultRules returns the built-in keyword lists.
func DefaultRules() Rules {
	return Rules{
		PopularItems: []string{"popular", "hot selling", "best selling", "top items"},
		Sales:        []string{"sale", "sales", "revenue", "performance", "income", "order value", "summary"},
		Regional: []string{
			"recommend", "suggestion", "what to sell", "suitable products",
			"new merchant", "startup", "regional", "area", "city", "location", "cuisine",
		},
		Profit: []string{
			"profit", "increase profit", "improve profit", "earnings",
			"make money", "bottom line", "profitability",
		},
		RegionalTriggers: []string{"new merchant", "what to sell", "startup", "recommend", "suggestion"},
		LongHorizon: []string{
			"recommend", "suggestion", "what to sell", "startup", "new merchant",
			"regional", "area", "profit", "earnings", "cuisine",
		},
	}
}

// LoadRules reads keyword rules from a YAML file. An empty path means the
// defaults; lists the file omits keep their default values.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("reading intent rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parsing intent rules %s: %w", path, err)
	}
	return r.withDefaults(), nil
}

func (r Rules) withDefaults() Rules {
	def := DefaultRules()
	if len(r.PopularItems) == 0 {
		r.PopularItems = def.PopularItems
	}
	if len(r.Sales) == 0 {
		r.Sales = def.Sales
	}
	if len(r.Regional) == 0 {
		r.Regional = def.Regional
	}
	if len(r.Profit) == 0 {
		r.Profit = def.Profit
	}
	if len(r.RegionalTriggers) == 0 {
		r.RegionalTriggers = def.RegionalTriggers
	}
	if len(r.LongHorizon) == 0 {
		r.LongHorizon = def.LongHorizon
	}
	return r
}
