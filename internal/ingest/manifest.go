package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dataset maps one source CSV file to its destination table.
type Dataset struct {
	Table string `yaml:"table"`
	File  string `yaml:"file"`
}

type Manifest struct {
	Datasets []Dataset `yaml:"datasets"`
}

// DefaultManifest covers the Olist e-commerce dataset as published.
func DefaultManifest() Manifest {
	return Manifest{Datasets: []Dataset{
		{Table: "orders", File: "olist_orders_dataset.csv"},
		{Table: "order_items", File: "olist_order_items_dataset.csv"},
		{Table: "products", File: "olist_products_dataset.csv"},
		{Table: "customers", File: "olist_customers_dataset.csv"},
		{Table: "sellers", File: "olist_sellers_dataset.csv"},
		{Table: "product_category", File: "product_category_name_translation.csv"},
		{Table: "order_payments", File: "olist_order_payments_dataset.csv"},
		{Table: "order_reviews", File: "olist_order_reviews_dataset.csv"},
	}}
}

func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(raw)
}

func ParseManifest(raw []byte) (Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if len(manifest.Datasets) == 0 {
		return Manifest{}, fmt.Errorf("manifest has no datasets")
	}
	seen := map[string]struct{}{}
	for _, dataset := range manifest.Datasets {
		table := strings.TrimSpace(dataset.Table)
		if table == "" || strings.TrimSpace(dataset.File) == "" {
			return Manifest{}, fmt.Errorf("manifest entry needs table and file: %+v", dataset)
		}
		if _, dup := seen[table]; dup {
			return Manifest{}, fmt.Errorf("duplicate table %q in manifest", table)
		}
		seen[table] = struct{}{}
	}
	return manifest, nil
}
