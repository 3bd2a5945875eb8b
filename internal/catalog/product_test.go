package catalog

import (
	"encoding/json"
	"testing"

	"storefront/catalog/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attr(name string, value any) domain.InventoryAttribute {
	raw, _ := json.Marshal(value)
	return domain.InventoryAttribute{Name: name, Value: raw}
}

func TestTransformProductMicrowave(t *testing.T) {
	p := TransformProduct(domain.InventoryProduct{
		ID:       "p1",
		Name:     "Microwave M-20",
		PathName: "Kitchen/Microwaves",
		Attributes: []domain.InventoryAttribute{
			attr("Бренд", "Acme"),
			attr("Color", "White"),
		},
		SalePrices: []domain.SalePrice{{Value: 250000}},
		Updated:    "2024-03-01 10:00:00.000",
	})

	assert.Equal(t, "Kitchen", p.Category)
	assert.Equal(t, "Microwaves", p.SubCategory)
	assert.Equal(t, "Kitchen/Microwaves", p.FullPath)
	assert.Equal(t, "Acme", p.Brand)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(2500)), "price %s", p.Price)
	assert.Equal(t, []domain.Attribute{{Name: "Color", Value: "White"}}, p.Attributes)
	assert.True(t, p.InStock)
	assert.Empty(t, p.Images)
	assert.Equal(t, "2024-03-01 10:00:00.000", p.CreatedAt)
}

func TestSelectPriceValue(t *testing.T) {
	assert.Equal(t, 1500.0, SelectPriceValue([]domain.SalePrice{{Value: 0}, {Value: 1500}, {Value: 900}}))
	assert.Equal(t, 0.0, SelectPriceValue([]domain.SalePrice{{Value: 0}, {Value: 0}}))
	assert.Equal(t, 0.0, SelectPriceValue(nil))

	p := TransformProduct(domain.InventoryProduct{SalePrices: []domain.SalePrice{{Value: 0}, {Value: 1500}, {Value: 900}}})
	assert.True(t, p.Price.Equal(decimal.NewFromInt(15)))

	p = TransformProduct(domain.InventoryProduct{SalePrices: []domain.SalePrice{{Value: 0}}})
	assert.True(t, p.Price.IsZero())
}

func TestTransformProductBrandVariants(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{"latin", "brand"},
		{"latin upper", "BRAND"},
		{"cyrillic manufacturer", "Производитель"},
		{"padded", "  бренд "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := TransformProduct(domain.InventoryProduct{
				Attributes: []domain.InventoryAttribute{attr("Weight", 12), attr(tt.label, "Acme")},
			})
			assert.Equal(t, "Acme", p.Brand)
			assert.Equal(t, []domain.Attribute{{Name: "Weight", Value: "12"}}, p.Attributes)
		})
	}
}

func TestTransformProductFirstBrandWins(t *testing.T) {
	p := TransformProduct(domain.InventoryProduct{
		Attributes: []domain.InventoryAttribute{
			attr("Производитель", "Factory"),
			attr("Brand", "Acme"),
		},
	})
	assert.Equal(t, "Factory", p.Brand)
	assert.Equal(t, []domain.Attribute{{Name: "Brand", Value: "Acme"}}, p.Attributes)
}

func TestTransformProductWithoutBrandOrPath(t *testing.T) {
	p := TransformProduct(domain.InventoryProduct{ID: "p2", Archived: true})
	assert.Empty(t, p.Brand)
	assert.Empty(t, p.Category)
	assert.Empty(t, p.SubCategory)
	assert.False(t, p.InStock)
	assert.NotNil(t, p.Attributes)
}

func TestTransformProductDeepPath(t *testing.T) {
	p := TransformProduct(domain.InventoryProduct{PathName: "1. Home/Kitchen/Small"})
	assert.Equal(t, "1. Home", p.Category)
	assert.Equal(t, "Kitchen", p.SubCategory)
	assert.Equal(t, "1. Home/Kitchen/Small", p.FullPath)
}

func TestAttributeValue(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"White"`, "White"},
		{`42`, "42"},
		{`12.5`, "12.5"},
		{`true`, "true"},
		{`false`, "false"},
		{`{"name":"Stainless steel","meta":{}}`, "Stainless steel"},
		{`null`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AttributeValue(json.RawMessage(tt.raw)), "raw %q", tt.raw)
	}
}

func TestTransformProductIdentifiers(t *testing.T) {
	p := TransformProduct(domain.InventoryProduct{
		Code:         "00042",
		ExternalCode: "ext-42",
		Article:      "M20",
		Barcodes:     []domain.Barcode{{"ean13": "4601234567890"}},
		Description:  "<p>Compact <b>microwave</b></p><p>20 L</p>",
	})
	assert.Equal(t, "00042", p.Code)
	assert.Equal(t, "ext-42", p.ExternalCode)
	assert.Equal(t, "M20", p.Article)
	assert.Equal(t, "4601234567890", p.Barcode)
	assert.Equal(t, "Compact microwave\n20 L", p.Description)
}

func TestTransformProductIsDeterministic(t *testing.T) {
	raw := []domain.InventoryProduct{
		{ID: "a", PathName: "X/Y", SalePrices: []domain.SalePrice{{Value: 100}}, Attributes: []domain.InventoryAttribute{attr("brand", "B")}},
		{ID: "b", PathName: "X", Archived: true},
	}
	first := TransformProducts(raw)
	second := TransformProducts(raw)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "plain text", PlainText("  plain text "))
	assert.Equal(t, "line one\nline two", PlainText("line one<br>line two"))
	assert.Equal(t, "Tom & Jerry", PlainText("Tom &amp; Jerry"))
	assert.Equal(t, "", PlainText(""))
}
