package domain

import "encoding/json"

type SalePrice struct {
	Value     float64    `json:"value"` // Minor units
	PriceType *PriceType `json:"priceType,omitempty"`
}

type PriceType struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// InventoryAttribute is a custom field. Value may be a string, a number,
// a boolean or an object carrying a name (dictionary entries).
type InventoryAttribute struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name"`
	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value"`
}

// Barcode holds a single barcode keyed by its symbology, e.g. {"ean13": "..."}.
type Barcode map[string]string

type InventoryProduct struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Description   string               `json:"description,omitempty"`
	Code          string               `json:"code,omitempty"`
	ExternalCode  string               `json:"externalCode,omitempty"`
	Article       string               `json:"article,omitempty"`
	PathName      string               `json:"pathName"`
	Archived      bool                 `json:"archived"`
	Created       string               `json:"created,omitempty"`
	Updated       string               `json:"updated,omitempty"`
	SalePrices    []SalePrice          `json:"salePrices,omitempty"`
	Attributes    []InventoryAttribute `json:"attributes,omitempty"`
	Barcodes      []Barcode            `json:"barcodes,omitempty"`
	VariantsCount int                  `json:"variantsCount,omitempty"`
}

type ImageLink struct {
	Href         string `json:"href,omitempty"`
	DownloadHref string `json:"downloadHref,omitempty"`
}

type InventoryImage struct {
	Title     string    `json:"title,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Meta      ImageLink `json:"meta"`
	Miniature ImageLink `json:"miniature"`
	Tiny      ImageLink `json:"tiny"`
}

// URL picks the best displayable link of the image.
func (i InventoryImage) URL() string {
	switch {
	case i.Miniature.Href != "":
		return i.Miniature.Href
	case i.Meta.DownloadHref != "":
		return i.Meta.DownloadHref
	default:
		return i.Tiny.Href
	}
}

type VariantCharacteristic struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type InventoryVariant struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Archived        bool                    `json:"archived"`
	Characteristics []VariantCharacteristic `json:"characteristics,omitempty"`
	SalePrices      []SalePrice             `json:"salePrices,omitempty"`
}
