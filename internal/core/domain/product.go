package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type ProductImage struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

// SizeStock is the inventory count for one size of a product.
type SizeStock struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
	SKU   string `json:"sku,omitempty"`
}

type Product struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Slug           string              `json:"slug"`
	Description    string              `json:"description"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compare_at_price"`
	CategoryID     string              `json:"category_id"`
	Brand          string              `json:"brand"`
	Images         []ProductImage      `json:"images"`
	Sizes          []SizeStock         `json:"sizes"`
	Featured       bool                `json:"featured"`
	IsActive       bool                `json:"is_active"`
	IsDeleted      bool                `json:"-"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TotalStock sums stock across all sizes.
func (p Product) TotalStock() int {
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	return total
}

func (p Product) Size(size string) (SizeStock, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s, true
		}
	}
	return SizeStock{}, false
}

// PrimaryImage returns the primary image URL, falling back to the first image.
func (p Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

func (p Product) DiscountPercentage() int {
	if !p.CompareAtPrice.Valid || p.CompareAtPrice.Decimal.LessThanOrEqual(p.Price) {
		return 0
	}
	compare := p.CompareAtPrice.Decimal
	return int(compare.Sub(p.Price).Div(compare).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// Purchasable reports whether checkout and cart may reference the product.
func (p Product) Purchasable() bool {
	return p.IsActive && !p.IsDeleted
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("product name is required")
	}
	if p.Price.IsNegative() {
		return NewValidationError("price cannot be negative")
	}
	if p.CompareAtPrice.Valid && !p.CompareAtPrice.Decimal.GreaterThan(p.Price) {
		return NewValidationError("compare price must be greater than regular price")
	}

	sizes := make(map[string]struct{}, len(p.Sizes))
	skus := make(map[string]struct{}, len(p.Sizes))
	for _, s := range p.Sizes {
		if strings.TrimSpace(s.Size) == "" {
			return NewValidationError("size is required")
		}
		if s.Stock < 0 {
			return NewValidationError("stock cannot be negative for size %s", s.Size)
		}
		if _, dup := sizes[s.Size]; dup {
			return NewValidationError("duplicate size %s", s.Size)
		}
		sizes[s.Size] = struct{}{}
		if s.SKU != "" {
			if _, dup := skus[s.SKU]; dup {
				return NewValidationError("duplicate sku %s", s.SKU)
			}
			skus[s.SKU] = struct{}{}
		}
	}
	return nil
}

// Letters that carry no combining mark to strip.
var slugLetters = strings.NewReplacer(
	"đ", "d", "ß", "ss", "ø", "o", "æ", "ae", "œ", "oe", "ł", "l", "þ", "th",
)

// Slugify lowercases name, folds accented letters to ASCII and joins
// alphanumeric runs with dashes. Names with no Latin letters or digits give "".
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}
	folded = slugLetters.Replace(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ProductSlug slugs the product name, falling back to the product ID when
// the name has nothing to slug.
func ProductSlug(name, id string) string {
	if slug := Slugify(name); slug != "" {
		return slug
	}
	if slug := Slugify(id); slug != "" {
		return "product-" + slug
	}
	return "product"
}
