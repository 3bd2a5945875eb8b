package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"storefront/catalog/internal/domain"

	"github.com/shopspring/decimal"
)

// brandAttributeNames are the attribute labels treated as the product brand,
// compared case-insensitively.
var brandAttributeNames = map[string]struct{}{
	"бренд":         {},
	"brand":         {},
	"производитель": {},
}

// TransformProduct converts an inventory product into a storefront product.
// Images are not populated; they live behind a separate endpoint.
func TransformProduct(raw domain.InventoryProduct) domain.Product {
	category, subCategory := SplitPath(raw.PathName)
	brand, attributes := splitBrand(raw.Attributes)

	createdAt := raw.Created
	if createdAt == "" {
		createdAt = raw.Updated
	}

	return domain.Product{
		ID:            raw.ID,
		Name:          raw.Name,
		Category:      category,
		SubCategory:   subCategory,
		FullPath:      raw.PathName,
		Description:   PlainText(raw.Description),
		Price:         ToMoney(SelectPriceValue(raw.SalePrices)),
		Brand:         brand,
		Images:        []string{},
		Attributes:    attributes,
		InStock:       !raw.Archived,
		CreatedAt:     createdAt,
		Code:          raw.Code,
		ExternalCode:  raw.ExternalCode,
		Article:       raw.Article,
		Barcode:       firstBarcode(raw.Barcodes),
		VariantsCount: raw.VariantsCount,
	}
}

// TransformProducts applies TransformProduct to every record, keeping order.
func TransformProducts(raw []domain.InventoryProduct) []domain.Product {
	out := make([]domain.Product, len(raw))
	for i := range raw {
		out[i] = TransformProduct(raw[i])
	}
	return out
}

// SplitPath returns the first two segments of a slash-delimited folder path.
func SplitPath(pathName string) (category, subCategory string) {
	if pathName == "" {
		return "", ""
	}
	parts := strings.Split(pathName, "/")
	category = parts[0]
	if len(parts) > 1 {
		subCategory = parts[1]
	}
	return category, subCategory
}

// SelectPriceValue returns the first strictly positive price, in minor units.
// Zero-valued placeholder tiers are skipped; 0 means no usable price.
func SelectPriceValue(prices []domain.SalePrice) float64 {
	for _, p := range prices {
		if p.Value > 0 {
			return p.Value
		}
	}
	return 0
}

// ToMoney converts minor units into a decimal amount.
func ToMoney(minor float64) decimal.Decimal {
	return decimal.NewFromFloat(minor).Shift(-2)
}

func splitBrand(attrs []domain.InventoryAttribute) (string, []domain.Attribute) {
	brand := ""
	brandIdx := -1
	for i, a := range attrs {
		if _, ok := brandAttributeNames[strings.ToLower(strings.TrimSpace(a.Name))]; ok {
			brand = AttributeValue(a.Value)
			brandIdx = i
			break
		}
	}

	out := make([]domain.Attribute, 0, len(attrs))
	for i, a := range attrs {
		if i == brandIdx {
			continue
		}
		out = append(out, domain.Attribute{Name: a.Name, Value: AttributeValue(a.Value)})
	}
	return brand, out
}

// AttributeValue renders a custom field value for display. Dictionary
// entries are objects and render as their name.
func AttributeValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '{':
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
			return obj.Name
		}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return strconv.FormatBool(b)
		}
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
	}
	return string(raw)
}

func firstBarcode(barcodes []domain.Barcode) string {
	for _, b := range barcodes {
		for _, kind := range []string{"ean13", "ean8", "code128", "gtin", "upc"} {
			if v := b[kind]; v != "" {
				return v
			}
		}
	}
	return ""
}
