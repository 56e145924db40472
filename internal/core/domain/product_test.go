package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProduct() Product {
	return Product{
		ID:       "prod-a",
		Name:     "Air Runner",
		Price:    decimal.NewFromInt(120),
		IsActive: true,
		Images: []ProductImage{
			{URL: "https://cdn/side.jpg"},
			{URL: "https://cdn/front.jpg", IsPrimary: true},
		},
		Sizes: []SizeStock{
			{Size: "41", Stock: 3, SKU: "AR-41"},
			{Size: "42", Stock: 0, SKU: "AR-42"},
			{Size: "43", Stock: 7},
		},
	}
}

func TestProduct_TotalStock(t *testing.T) {
	p := sampleProduct()
	assert.Equal(t, 10, p.TotalStock())

	p.Sizes = nil
	assert.Zero(t, p.TotalStock())
}

func TestProduct_SizeLookup(t *testing.T) {
	p := sampleProduct()

	s, ok := p.Size("41")
	require.True(t, ok)
	assert.Equal(t, "AR-41", s.SKU)

	_, ok = p.Size("44")
	assert.False(t, ok)
}

func TestProduct_PrimaryImage(t *testing.T) {
	p := sampleProduct()
	assert.Equal(t, "https://cdn/front.jpg", p.PrimaryImage())

	p.Images[1].IsPrimary = false
	assert.Equal(t, "https://cdn/side.jpg", p.PrimaryImage())

	p.Images = nil
	assert.Empty(t, p.PrimaryImage())
}

func TestProduct_DiscountPercentage(t *testing.T) {
	p := sampleProduct()
	assert.Zero(t, p.DiscountPercentage())

	p.CompareAtPrice = decimal.NewNullDecimal(decimal.NewFromInt(160))
	assert.Equal(t, 25, p.DiscountPercentage())
}

func TestProduct_Validate(t *testing.T) {
	require.NoError(t, sampleProduct().Validate())

	tests := []struct {
		name   string
		mutate func(p *Product)
	}{
		{"negative price", func(p *Product) { p.Price = decimal.NewFromInt(-1) }},
		{"compare price not above price", func(p *Product) { p.CompareAtPrice = decimal.NewNullDecimal(p.Price) }},
		{"negative stock", func(p *Product) { p.Sizes[0].Stock = -1 }},
		{"duplicate size", func(p *Product) { p.Sizes[1].Size = "41" }},
		{"duplicate sku", func(p *Product) { p.Sizes[1].SKU = "AR-41" }},
		{"missing name", func(p *Product) { p.Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sampleProduct()
			tt.mutate(&p)
			assert.Equal(t, KindValidation, KindOf(p.Validate()))
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "air-max-90-triple-white", Slugify("Air Max 90 — Triple White!"))
	assert.Equal(t, "runner", Slugify("  Runner  "))
	assert.Equal(t, "cafe-creme-tee", Slugify("Café Crème Tee"))
	assert.Equal(t, "nandu-jacket", Slugify("Ñandú Jacket"))
	assert.Equal(t, "ao-dai-do", Slugify("Áo Dài Đỏ"))
	assert.Equal(t, "", Slugify("和風シャツ"))
}

func TestProductSlug(t *testing.T) {
	assert.Equal(t, "linen-shirt", ProductSlug("Linen Shirt", "p1"))
	assert.Equal(t, "product-3f2a9c1e", ProductSlug("和風シャツ", "3f2a9c1e"))
	assert.Equal(t, "product", ProductSlug("和風シャツ", "和風"))
}
