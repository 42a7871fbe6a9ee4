package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// validateModules performs all structural checks on the given modules.
// Returns a combined error describing all problems found, or nil if valid.
func validateModules(modules []Module) error {
	var errs []string

	seen := make(map[uuid.UUID]string)
	claim := func(id uuid.UUID, what string) {
		if id == uuid.Nil {
			errs = append(errs, fmt.Sprintf("%s has a nil id", what))
			return
		}
		if prev, ok := seen[id]; ok {
			errs = append(errs, fmt.Sprintf("duplicate id %s: %s and %s", id, prev, what))
			return
		}
		seen[id] = what
	}

	for _, m := range modules {
		mName := fmt.Sprintf("module %q", m.Title)
		claim(m.ID, mName)
		if strings.TrimSpace(m.Title) == "" {
			errs = append(errs, fmt.Sprintf("module %s has an empty title", m.ID))
		}

		for _, t := range m.Topics {
			tName := fmt.Sprintf("topic %q of %s", t.Title, mName)
			claim(t.ID, tName)
			if strings.TrimSpace(t.Title) == "" {
				errs = append(errs, fmt.Sprintf("topic %s has an empty title", t.ID))
			}

			for _, l := range t.Lessons {
				claim(l.ID, fmt.Sprintf("lesson %q of %s", l.Title, tName))
				if !l.Type.Valid() {
					errs = append(errs, fmt.Sprintf("lesson %s has unknown type %q", l.ID, l.Type))
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
