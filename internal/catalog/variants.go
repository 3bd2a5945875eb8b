package catalog

import "storefront/catalog/internal/domain"

// MergeCharacteristics aggregates the characteristic values of all variants.
// Names and values keep their first-seen order; values are distinct.
func MergeCharacteristics(variants []domain.InventoryVariant) []domain.Characteristic {
	var out []domain.Characteristic
	byName := make(map[string]int)
	seen := make(map[string]map[string]struct{})

	for _, v := range variants {
		for _, c := range v.Characteristics {
			if c.Value == "" {
				continue
			}
			i, ok := byName[c.Name]
			if !ok {
				i = len(out)
				byName[c.Name] = i
				seen[c.Name] = make(map[string]struct{})
				out = append(out, domain.Characteristic{Name: c.Name})
			}
			if _, dup := seen[c.Name][c.Value]; dup {
				continue
			}
			seen[c.Name][c.Value] = struct{}{}
			out[i].Values = append(out[i].Values, c.Value)
		}
	}
	return out
}
