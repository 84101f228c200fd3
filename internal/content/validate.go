package content

import (
	"errors"
	"fmt"

	"reports/internal/domain"
)

// Validate checks that a tree is complete and consistent: every section and
// block id is non-empty and unique, levels are in range and every payload
// matches its block type. Exporters and stores call it before handing a
// tree on.
func Validate(tree domain.ContentTree) error {
	sections := map[string]bool{}
	blocks := map[string]bool{}
	var errs []error

	tree.Walk(func(s *domain.Section, _ int) bool {
		switch {
		case s.ID == "":
			errs = append(errs, fmt.Errorf("section %q has no id", s.Title))
		case sections[s.ID]:
			errs = append(errs, fmt.Errorf("section id %s appears twice", s.ID))
		}
		sections[s.ID] = true

		if err := checkLevel(s.Level); err != nil {
			errs = append(errs, fmt.Errorf("section %s: %w", s.ID, err))
		}
		if err := checkStatus(s.Status); err != nil {
			errs = append(errs, fmt.Errorf("section %s: %w", s.ID, err))
		}
		for _, b := range s.Blocks {
			switch {
			case b.ID == "":
				errs = append(errs, fmt.Errorf("section %s holds a block without id", s.ID))
			case blocks[b.ID]:
				errs = append(errs, fmt.Errorf("block id %s appears twice", b.ID))
			}
			blocks[b.ID] = true
			if err := b.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("block %s: %w", b.ID, err))
			}
		}
		return true
	})
	return errors.Join(errs...)
}
