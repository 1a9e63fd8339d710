package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/datachat/datachat/internal/demo/dataset"
)

func main() {
	dir := flag.String("dir", "data", "directory to write the demo CSV files into")
	seed := flag.Int64("seed", 1, "random seed (same seed, same dataset)")
	customers := flag.Int("customers", 500, "number of customers to generate")
	orders := flag.Int("orders", 1500, "number of orders to generate")
	products := flag.Int("products", 120, "number of products to generate")
	sellers := flag.Int("sellers", 40, "number of sellers to generate")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	generator := dataset.NewGenerator(dataset.Config{
		Seed:      *seed,
		Customers: *customers,
		Orders:    *orders,
		Products:  *products,
		Sellers:   *sellers,
	})
	if err := generator.WriteAll(*dir); err != nil {
		logger.Error("demo dataset generation failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo dataset written",
		slog.String("dir", *dir),
		slog.Int("customers", *customers),
		slog.Int("orders", *orders))
}
