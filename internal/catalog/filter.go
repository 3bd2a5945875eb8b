package catalog

import (
	"regexp"
	"sort"
	"strings"

	"storefront/catalog/internal/domain"
)

// ordinalPrefix matches the manual sort numbering of folder names, e.g. "1. ".
var ordinalPrefix = regexp.MustCompile(`^\s*\d+\.\s*`)

// NormalizeName lowercases a category name and strips its ordinal prefix.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(ordinalPrefix.ReplaceAllString(name, "")))
}

// Matches reports whether p satisfies every constraint in f.
func Matches(p *domain.Product, f *domain.ProductFilters) bool {
	if f.Category != "" && NormalizeName(p.Category) != NormalizeName(f.Category) {
		return false
	}
	if f.SubCategory != "" && NormalizeName(p.SubCategory) != NormalizeName(f.SubCategory) {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(strings.TrimSpace(p.Brand), strings.TrimSpace(f.Brand)) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock != nil && p.InStock != *f.InStock {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.SearchTerm)); term != "" && !containsTerm(p, term) {
		return false
	}
	return true
}

func containsTerm(p *domain.Product, term string) bool {
	for _, field := range []string{p.Name, p.Description, p.Brand, p.Code, p.Article, p.Category, p.SubCategory} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Filter returns the products matching f, sorted by f.Sort. The input slice
// is never modified.
func Filter(products []domain.Product, f domain.ProductFilters) []domain.Product {
	out := make([]domain.Product, 0)
	for i := range products {
		if Matches(&products[i], &f) {
			out = append(out, products[i])
		}
	}
	sortProducts(out, f.Sort)
	return out
}

func sortProducts(products []domain.Product, order domain.SortOrder) {
	var less func(a, b *domain.Product) bool
	switch order {
	case domain.SortPriceAsc:
		less = func(a, b *domain.Product) bool { return a.Price.LessThan(b.Price) }
	case domain.SortPriceDesc:
		less = func(a, b *domain.Product) bool { return a.Price.GreaterThan(b.Price) }
	case domain.SortNameAsc:
		less = func(a, b *domain.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case domain.SortNameDesc:
		less = func(a, b *domain.Product) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool {
		return less(&products[i], &products[j])
	})
}

// Paginate slices an already filtered result. Pages start at 1; a page past
// the end yields no products but correct totals.
func Paginate(filtered []domain.Product, pageSize, page int) *domain.ProductsPage {
	if pageSize <= 0 {
		pageSize = 1
	}
	if page <= 0 {
		page = 1
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	products := make([]domain.Product, end-start)
	copy(products, filtered[start:end])

	return &domain.ProductsPage{
		Products:   products,
		TotalCount: total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
		Page:       page,
	}
}

// Query filters, sorts and paginates in one step.
func Query(products []domain.Product, f domain.ProductFilters, pageSize, page int) *domain.ProductsPage {
	return Paginate(Filter(products, f), pageSize, page)
}
