package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Characteristic aggregates the values a characteristic takes across all
// variants of a product.
type Characteristic struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type Product struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	SubCategory     string           `json:"subCategory,omitempty"`
	FullPath        string           `json:"fullPath"`
	Description     string           `json:"description"`
	Price           decimal.Decimal  `json:"price"`
	Brand           string           `json:"brand"`
	Images          []string         `json:"images"`
	Attributes      []Attribute      `json:"attributes"`
	Characteristics []Characteristic `json:"characteristics,omitempty"`
	InStock         bool             `json:"inStock"`
	CreatedAt       string           `json:"createdAt"`
	Code            string           `json:"code,omitempty"`
	ExternalCode    string           `json:"externalCode,omitempty"`
	Article         string           `json:"article,omitempty"`
	Barcode         string           `json:"barcode,omitempty"`
	VariantsCount   int              `json:"variantsCount,omitempty"`
}

type ProductsPage struct {
	Products   []Product `json:"products"`
	TotalCount int       `json:"totalCount"`
	TotalPages int       `json:"totalPages"`
	HasMore    bool      `json:"hasMore"`
	Page       int       `json:"page"`
}

type SortOrder string

const (
	SortDefault   SortOrder = ""
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortNameAsc   SortOrder = "name_asc"
	SortNameDesc  SortOrder = "name_desc"
)

var SortOrders = []SortOrder{
	SortDefault,
	SortPriceAsc,
	SortPriceDesc,
	SortNameAsc,
	SortNameDesc,
}

func (s SortOrder) Valid() bool {
	for _, o := range SortOrders {
		if s == o {
			return true
		}
	}
	return false
}

// ProductFilters selects products from the resident catalog. Zero values
// mean "no constraint".
type ProductFilters struct {
	Category    string           `json:"category,omitempty"`
	SubCategory string           `json:"subCategory,omitempty"`
	Brand       string           `json:"brand,omitempty"`
	MinPrice    *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice    *decimal.Decimal `json:"maxPrice,omitempty"`
	SearchTerm  string           `json:"searchTerm,omitempty"`
	InStock     *bool            `json:"inStock,omitempty"`
	Sort        SortOrder        `json:"sort,omitempty"`
}
