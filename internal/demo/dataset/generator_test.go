package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/datachat/datachat/internal/ingest"
)

func TestWriteAllCoversManifest(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(Config{Seed: 1, Customers: 20, Orders: 50, Products: 10, Sellers: 5})

	if err := g.WriteAll(dir); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	for _, dataset := range ingest.DefaultManifest().Datasets {
		path := filepath.Join(dir, dataset.File)
		records := readCSV(t, path)
		if len(records) < 2 {
			t.Fatalf("%s has no data rows", dataset.File)
		}
		width := len(records[0])
		for i, record := range records {
			if len(record) != width {
				t.Fatalf("%s row %d has %d fields, header has %d", dataset.File, i, len(record), width)
			}
		}
	}
}

func TestGeneratedOrdersReferenceCustomers(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(Config{Seed: 7, Customers: 10, Orders: 30})

	if err := g.WriteAll(dir); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	customers := readCSV(t, filepath.Join(dir, "olist_customers_dataset.csv"))
	known := map[string]bool{}
	for _, record := range customers[1:] {
		known[record[0]] = true
	}

	orders := readCSV(t, filepath.Join(dir, "olist_orders_dataset.csv"))
	if len(orders) != 31 {
		t.Fatalf("orders rows = %d, want 30 plus header", len(orders))
	}
	for _, record := range orders[1:] {
		if !known[record[1]] {
			t.Fatalf("order %s references unknown customer %s", record[0], record[1])
		}
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	if err := NewGenerator(Config{Seed: 42, Customers: 15, Orders: 25}).WriteAll(dirA); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := NewGenerator(Config{Seed: 42, Customers: 15, Orders: 25}).WriteAll(dirB); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	for _, name := range []string{"olist_customers_dataset.csv", "olist_orders_dataset.csv", "olist_order_items_dataset.csv"} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		b, err := os.ReadFile(filepath.Join(dirB, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(a) != string(b) {
			t.Fatalf("%s differs between runs with the same seed", name)
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() { _ = file.Close() }()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}
