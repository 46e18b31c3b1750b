package scan

import (
	"fmt"

	"fsnap/internal/config"
	"fsnap/internal/pathmatch"
	"fsnap/internal/snap"
)

// NewScannerFromSpec builds a Scanner from one spec's configuration,
// compiling its category patterns and binding its archived/group policies.
func NewScannerFromSpec(spec config.SpecConfig, logger snap.Logger) (*Scanner, error) {
	categories := make([]Category, 0, len(spec.Categories))
	for _, cat := range spec.Categories {
		patterns := make([]*pathmatch.Pattern, 0, len(cat.Patterns))
		for _, raw := range cat.Patterns {
			p, err := pathmatch.Compile(raw)
			if err != nil {
				return nil, fmt.Errorf("category %q: %w", cat.Name, err)
			}
			patterns = append(patterns, p)
		}
		categories = append(categories, Category{Name: cat.Name, Patterns: patterns})
	}

	scanner := &Scanner{
		Root:          spec.RootDir,
		Categories:    categories,
		DigestEnabled: spec.Digests,
		Workers:       spec.Workers,
		Logger:        logger,
	}

	if spec.ArchivedBy != nil {
		if err := spec.ArchivedBy.Validate(); err != nil {
			return nil, err
		}
		scanner.IsArchived = spec.ArchivedBy.Match
	}

	if spec.GroupBy != nil {
		if err := spec.GroupBy.Validate(); err != nil {
			return nil, err
		}
		scanner.FileGroup = spec.GroupBy.Derive
	}

	return scanner, nil
}
