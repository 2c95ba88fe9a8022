// Package plancatalog loads the plan seed file used to populate the plan
// table. The file is the source of truth for tier limits at install time;
// existing rows are never mutated by a re-seed.
package plancatalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
)

// CatalogEntry is one plan definition from the seed file.
type CatalogEntry struct {
	Name      string           `yaml:"name"`
	Slug      string           `yaml:"slug"`
	Tier      string           `yaml:"tier"`
	Price     uint64           `yaml:"price"`
	Currency  string           `yaml:"currency"`
	Limits    map[string]int64 `yaml:"limits"`
	TrialDays int              `yaml:"trial_days"`
	Public    bool             `yaml:"public"`
	SortOrder int              `yaml:"sort_order"`
}

// Catalog is the parsed seed file.
type Catalog struct {
	Plans []CatalogEntry `yaml:"plans"`
}

// Load reads and parses the plan seed file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan catalog: %w", err)
	}
	return Parse(data)
}

// Parse parses catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %w", err)
	}
	if len(catalog.Plans) == 0 {
		return nil, fmt.Errorf("plan catalog is empty")
	}

	slugs := make(map[string]bool, len(catalog.Plans))
	for _, entry := range catalog.Plans {
		if entry.Slug == "" {
			return nil, fmt.Errorf("plan %q has no slug", entry.Name)
		}
		if slugs[entry.Slug] {
			return nil, fmt.Errorf("duplicate plan slug: %s", entry.Slug)
		}
		slugs[entry.Slug] = true
	}
	return &catalog, nil
}

// ToPlan converts a catalog entry into a plan aggregate.
func (e CatalogEntry) ToPlan() (*subscription.Plan, error) {
	limits := make(metering.LimitSet, len(e.Limits))
	for metric, limit := range e.Limits {
		limits[metering.MetricType(metric)] = limit
	}

	plan, err := subscription.NewPlan(e.Name, e.Slug, subscription.PlanTier(e.Tier),
		e.Price, e.Currency, limits, e.TrialDays)
	if err != nil {
		return nil, fmt.Errorf("invalid plan %q: %w", e.Slug, err)
	}
	plan.SetVisibility(e.Public)
	plan.SetSortOrder(e.SortOrder)
	return plan, nil
}
