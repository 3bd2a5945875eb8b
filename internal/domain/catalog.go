package domain

import "encoding/json"

// ListMeta is the pagination envelope of an inventory list response.
type ListMeta struct {
	Href   string `json:"href,omitempty"`
	Size   int    `json:"size"`   // Total rows matching the query
	Limit  int    `json:"limit"`  // Page size used by the server
	Offset int    `json:"offset"` // Offset of the first row
}

// ListResponse is one page of an inventory list endpoint. Rows is kept raw so
// the client can tell a missing rows field apart from an empty page.
type ListResponse struct {
	Meta ListMeta        `json:"meta"`
	Rows json.RawMessage `json:"rows"`
}

// CatalogPage is a decoded page of inventory records.
type CatalogPage[T any] struct {
	Rows   []T `json:"rows"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// HasMore reports whether the server holds rows past this page.
func (p *CatalogPage[T]) HasMore() bool {
	return p.Offset+len(p.Rows) < p.Total
}
