// Package catalog turns raw inventory records into storefront entities and
// answers filter, sort and pagination queries over them. Everything here is
// pure: no I/O, no clocks.
package catalog

import (
	"sort"

	"storefront/catalog/internal/domain"
)

// TreeStats describes what BuildCategoryTree left out.
type TreeStats struct {
	Total          int // Folders received
	Archived       int // Folders skipped because they are archived
	Dropped        int // Live folders unreachable from any root (orphans, archived ancestors)
	DuplicateRoots int // Roots skipped because an earlier root had the same name
}

// BuildCategoryTree reconciles a flat folder list into categories.
//
// Roots are folders with an empty PathName. A folder is a child of a node when
// its PathName equals the node's full path. Archived folders are skipped along
// with everything only reachable through them. Top-level categories are sorted
// by name; children keep the order of the input.
func BuildCategoryTree(folders []domain.Folder) ([]domain.Category, TreeStats) {
	stats := TreeStats{Total: len(folders)}

	idx := make(folderIndex)
	for i, f := range folders {
		if f.Archived {
			stats.Archived++
			continue
		}
		idx[f.PathName] = append(idx[f.PathName], indexedFolder{pos: i, Folder: f})
	}

	placed := make(map[int]struct{})
	seen := make(map[string]struct{})
	categories := make([]domain.Category, 0, len(idx[""]))

	for _, root := range idx[""] {
		if _, dup := seen[root.Name]; dup {
			stats.DuplicateRoots++
			continue
		}
		seen[root.Name] = struct{}{}
		placed[root.pos] = struct{}{}

		subs := idx.children(root.Name, placed)
		names := make([]string, len(subs))
		for i, s := range subs {
			names[i] = s.Name
		}

		categories = append(categories, domain.Category{
			ID:                   root.ID,
			Name:                 root.Name,
			Subcategories:        subs,
			FlatSubcategoryNames: names,
		})
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})

	stats.Dropped = stats.Total - stats.Archived - stats.DuplicateRoots - len(placed)
	return categories, stats
}

type indexedFolder struct {
	pos int
	domain.Folder
}

// folderIndex maps a parent path to its live children in input order.
type folderIndex map[string][]indexedFolder

// children builds the subtree under path. Paths grow strictly with depth,
// so the recursion terminates on any input.
func (idx folderIndex) children(path string, placed map[int]struct{}) []domain.SubCategory {
	children := idx[path]
	if len(children) == 0 {
		return []domain.SubCategory{}
	}

	subs := make([]domain.SubCategory, 0, len(children))
	for _, f := range children {
		placed[f.pos] = struct{}{}
		sub := domain.SubCategory{
			ID:       f.ID,
			Name:     f.Name,
			PathName: f.PathName,
		}
		if nested := idx.children(path+"/"+f.Name, placed); len(nested) > 0 {
			sub.SubCategories = nested
		}
		subs = append(subs, sub)
	}
	return subs
}

// FindCategory returns the category whose name matches name, ignoring case
// and a leading ordinal prefix such as "2. ".
func FindCategory(categories []domain.Category, name string) (*domain.Category, bool) {
	want := NormalizeName(name)
	for i := range categories {
		if NormalizeName(categories[i].Name) == want {
			return &categories[i], true
		}
	}
	return nil, false
}
