package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// seedFile is the YAML catalog loaded by the seed command. Prices are
// strings so they keep their exact decimal value.
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	Slug           string      `yaml:"slug"`
	Description    string      `yaml:"description"`
	Price          string      `yaml:"price"`
	CompareAtPrice string      `yaml:"compare_at_price"`
	Category       string      `yaml:"category"`
	Brand          string      `yaml:"brand"`
	Featured       bool        `yaml:"featured"`
	Active         *bool       `yaml:"active"`
	Images         []seedImage `yaml:"images"`
	Sizes          []seedSize  `yaml:"sizes"`
}

type seedImage struct {
	URL     string `yaml:"url"`
	Alt     string `yaml:"alt"`
	Primary bool   `yaml:"primary"`
}

type seedSize struct {
	Size  string `yaml:"size"`
	Stock int    `yaml:"stock"`
	SKU   string `yaml:"sku"`
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <products.yaml>",
		Short: "Load products from a YAML file",
		Long: `Load catalog products from a YAML file. Products are upserted by id,
so the command can be re-run to reset stock.

Example:
  storefront seed --config storefront.yaml testdata/products.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			products, err := loadSeedFile(args[0])
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}

			n, err := seedProducts(cmd.Context(), storage.NewCatalogStore(store), products)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return nil
		},
	}
}

func loadSeedFile(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}

	products := make([]domain.Product, 0, len(f.Products))
	for i, sp := range f.Products {
		p, err := sp.toDomain()
		if err != nil {
			return nil, fmt.Errorf("product %d (%s): %w", i+1, sp.Name, err)
		}
		products = append(products, p)
	}
	return products, nil
}

func (sp seedProduct) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(sp.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price %q", sp.Price)
	}
	p := domain.Product{
		ID:          sp.ID,
		Name:        sp.Name,
		Slug:        sp.Slug,
		Description: sp.Description,
		Price:       price,
		CategoryID:  sp.Category,
		Brand:       sp.Brand,
		Featured:    sp.Featured,
		IsActive:    sp.Active == nil || *sp.Active,
	}
	if sp.CompareAtPrice != "" {
		compare, err := decimal.NewFromString(sp.CompareAtPrice)
		if err != nil {
			return domain.Product{}, fmt.Errorf("invalid compare_at_price %q", sp.CompareAtPrice)
		}
		p.CompareAtPrice = decimal.NewNullDecimal(compare)
	}
	for _, img := range sp.Images {
		p.Images = append(p.Images, domain.ProductImage{URL: img.URL, Alt: img.Alt, IsPrimary: img.Primary})
	}
	for _, s := range sp.Sizes {
		p.Sizes = append(p.Sizes, domain.SizeStock{Size: s.Size, Stock: s.Stock, SKU: s.SKU})
	}
	return p, nil
}

func seedProducts(ctx context.Context, catalog port.CatalogRepository, products []domain.Product) (int, error) {
	for i := range products {
		if err := catalog.SaveProduct(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("failed to save product %s: %w", products[i].Name, err)
		}
		slog.Info("Seeded product", "id", products[i].ID, "name", products[i].Name, "stock", products[i].TotalStock())
	}
	return len(products), nil
}
