// Package dataset generates a small Olist-shaped demo dataset so the
// service can run end to end without the published CSV files.
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/datachat/datachat/internal/ingest"
)

type Config struct {
	Seed      int64
	Customers int
	Orders    int
	Products  int
	Sellers   int
}

type Generator struct {
	rnd *rand.Rand
	cfg Config
	// base anchors every generated timestamp so output is reproducible
	// for a given seed.
	base time.Time
}

func NewGenerator(cfg Config) *Generator {
	if cfg.Customers <= 0 {
		cfg.Customers = 500
	}
	if cfg.Orders <= 0 {
		cfg.Orders = 1500
	}
	if cfg.Products <= 0 {
		cfg.Products = 120
	}
	if cfg.Sellers <= 0 {
		cfg.Sellers = 40
	}
	return &Generator{
		rnd:  rand.New(rand.NewSource(cfg.Seed)),
		cfg:  cfg,
		base: time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

var states = []string{"SP", "RJ", "MG", "RS", "PR", "SC", "BA", "DF", "GO", "ES"}

var citiesByState = map[string][]string{
	"SP": {"sao paulo", "campinas", "santos"},
	"RJ": {"rio de janeiro", "niteroi"},
	"MG": {"belo horizonte", "uberlandia"},
	"RS": {"porto alegre"},
	"PR": {"curitiba"},
	"SC": {"florianopolis"},
	"BA": {"salvador"},
	"DF": {"brasilia"},
	"GO": {"goiania"},
	"ES": {"vitoria"},
}

var categories = [][2]string{
	{"cama_mesa_banho", "bed_bath_table"},
	{"beleza_saude", "health_beauty"},
	{"esporte_lazer", "sports_leisure"},
	{"moveis_decoracao", "furniture_decor"},
	{"informatica_acessorios", "computers_accessories"},
	{"utilidades_domesticas", "housewares"},
	{"relogios_presentes", "watches_gifts"},
	{"telefonia", "telephony"},
	{"brinquedos", "toys"},
	{"eletronicos", "electronics"},
}

var orderStatuses = []string{"delivered", "delivered", "delivered", "delivered", "shipped", "invoiced", "canceled"}

var paymentTypes = []string{"credit_card", "credit_card", "boleto", "voucher", "debit_card"}

// WriteAll writes every dataset named by the default manifest into dir.
func (g *Generator) WriteAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	customers := g.customers()
	products := g.products()
	sellers := g.sellers()
	orders, items, payments, reviews := g.orders(customers, products, sellers)

	files := map[string][][]string{
		"olist_customers_dataset.csv":           customers,
		"olist_products_dataset.csv":            products,
		"olist_sellers_dataset.csv":             sellers,
		"olist_orders_dataset.csv":              orders,
		"olist_order_items_dataset.csv":         items,
		"olist_order_payments_dataset.csv":      payments,
		"olist_order_reviews_dataset.csv":       reviews,
		"product_category_name_translation.csv": g.categoryTranslations(),
	}

	for _, dataset := range ingest.DefaultManifest().Datasets {
		records, ok := files[dataset.File]
		if !ok {
			return fmt.Errorf("no generator output for %s", dataset.File)
		}
		if err := writeCSV(filepath.Join(dir, dataset.File), records); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) customers() [][]string {
	records := [][]string{{"customer_id", "customer_unique_id", "customer_zip_code_prefix", "customer_city", "customer_state"}}
	for i := 0; i < g.cfg.Customers; i++ {
		state := pickOne(g.rnd, states)
		records = append(records, []string{
			fmt.Sprintf("cust-%06d", i+1),
			fmt.Sprintf("uniq-%06d", i+1),
			fmt.Sprintf("%05d", 1000+g.rnd.Intn(98999)),
			pickOne(g.rnd, citiesByState[state]),
			state,
		})
	}
	return records
}

func (g *Generator) products() [][]string {
	records := [][]string{{
		"product_id", "product_category_name", "product_name_lenght", "product_description_lenght",
		"product_photos_qty", "product_weight_g", "product_length_cm", "product_height_cm", "product_width_cm",
	}}
	for i := 0; i < g.cfg.Products; i++ {
		category := categories[g.rnd.Intn(len(categories))][0]
		records = append(records, []string{
			fmt.Sprintf("prod-%06d", i+1),
			category,
			fmt.Sprintf("%d", 20+g.rnd.Intn(40)),
			fmt.Sprintf("%d", 100+g.rnd.Intn(900)),
			fmt.Sprintf("%d", 1+g.rnd.Intn(5)),
			fmt.Sprintf("%d", 50+g.rnd.Intn(5000)),
			fmt.Sprintf("%d", 10+g.rnd.Intn(60)),
			fmt.Sprintf("%d", 5+g.rnd.Intn(40)),
			fmt.Sprintf("%d", 10+g.rnd.Intn(50)),
		})
	}
	return records
}

func (g *Generator) sellers() [][]string {
	records := [][]string{{"seller_id", "seller_zip_code_prefix", "seller_city", "seller_state"}}
	for i := 0; i < g.cfg.Sellers; i++ {
		state := pickOne(g.rnd, states)
		records = append(records, []string{
			fmt.Sprintf("sell-%06d", i+1),
			fmt.Sprintf("%05d", 1000+g.rnd.Intn(98999)),
			pickOne(g.rnd, citiesByState[state]),
			state,
		})
	}
	return records
}

func (g *Generator) orders(customers, products, sellers [][]string) (orders, items, payments, reviews [][]string) {
	orders = [][]string{{
		"order_id", "customer_id", "order_status", "order_purchase_timestamp", "order_approved_at",
		"order_delivered_carrier_date", "order_delivered_customer_date", "order_estimated_delivery_date",
	}}
	items = [][]string{{"order_id", "order_item_id", "product_id", "seller_id", "shipping_limit_date", "price", "freight_value"}}
	payments = [][]string{{"order_id", "payment_sequential", "payment_type", "payment_installments", "payment_value"}}
	reviews = [][]string{{
		"review_id", "order_id", "review_score", "review_comment_title", "review_comment_message",
		"review_creation_date", "review_answer_timestamp",
	}}

	const stamp = "2006-01-02 15:04:05"
	for i := 0; i < g.cfg.Orders; i++ {
		orderID := fmt.Sprintf("ordr-%06d", i+1)
		customerID := customers[1+g.rnd.Intn(len(customers)-1)][0]
		purchased := g.base.Add(time.Duration(g.rnd.Intn(365*24)) * time.Hour)
		delivered := purchased.Add(time.Duration(2+g.rnd.Intn(20)) * 24 * time.Hour)

		orders = append(orders, []string{
			orderID,
			customerID,
			pickOne(g.rnd, orderStatuses),
			purchased.Format(stamp),
			purchased.Add(time.Hour).Format(stamp),
			purchased.Add(48 * time.Hour).Format(stamp),
			delivered.Format(stamp),
			delivered.Add(72 * time.Hour).Format(stamp),
		})

		total := 0.0
		itemCount := 1 + g.rnd.Intn(3)
		for j := 0; j < itemCount; j++ {
			price := round2(10 + g.rnd.Float64()*290)
			freight := round2(5 + g.rnd.Float64()*35)
			total += price + freight
			items = append(items, []string{
				orderID,
				fmt.Sprintf("%d", j+1),
				products[1+g.rnd.Intn(len(products)-1)][0],
				sellers[1+g.rnd.Intn(len(sellers)-1)][0],
				purchased.Add(96 * time.Hour).Format(stamp),
				fmt.Sprintf("%.2f", price),
				fmt.Sprintf("%.2f", freight),
			})
		}

		payments = append(payments, []string{
			orderID,
			"1",
			pickOne(g.rnd, paymentTypes),
			fmt.Sprintf("%d", 1+g.rnd.Intn(10)),
			fmt.Sprintf("%.2f", round2(total)),
		})

		if g.rnd.Intn(100) < 70 {
			reviews = append(reviews, []string{
				fmt.Sprintf("revw-%06d", i+1),
				orderID,
				fmt.Sprintf("%d", 1+g.rnd.Intn(5)),
				"",
				"",
				delivered.Add(24 * time.Hour).Format(stamp),
				delivered.Add(48 * time.Hour).Format(stamp),
			})
		}
	}
	return orders, items, payments, reviews
}

func (g *Generator) categoryTranslations() [][]string {
	records := [][]string{{"product_category_name", "product_category_name_english"}}
	for _, pair := range categories {
		records = append(records, []string{pair[0], pair[1]})
	}
	return records
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
