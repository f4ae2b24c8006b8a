// Command seeder generates a sample dataset: the five CSV tables the service
// loads, with a few months of synthetic order history across a handful of
// merchants and cities.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

var cuisineTags = []string{
	"Malay", "Chinese", "Indian", "Western", "Japanese",
	"Thai", "Beverages", "Desserts", "",
}

type item struct {
	id         string
	merchantID string
	name       string
	cuisine    string
}

func main() {
	outDir := flag.String("out", "./data", "Directory to write the CSV files into")
	merchants := flag.Int("merchants", 12, "Number of merchants to generate")
	orders := flag.Int("orders", 2000, "Number of orders to generate")
	days := flag.Int("days", 120, "Span of the order history in days")
	seed := flag.Uint64("seed", 0, "Random seed (0 means random)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	faker := gofakeit.New(int64(*seed))
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("Failed to create output directory", "dir", *outDir, "error", err)
		os.Exit(1)
	}

	cityIDs := []string{"1", "2", "8"}
	end := time.Now().Truncate(time.Hour)
	start := end.AddDate(0, 0, -*days)

	// merchant.csv
	merchantIDs := make([]string, *merchants)
	merchantRows := [][]string{{"merchant_id", "merchant_name", "city_id"}}
	for i := range merchantIDs {
		merchantIDs[i] = fmt.Sprintf("%05x", faker.Number(0x10000, 0xfffff))
		merchantRows = append(merchantRows, []string{
			merchantIDs[i],
			faker.Company(),
			faker.RandomString(cityIDs),
		})
	}

	// items.csv: a small menu per merchant, some items untagged or unnamed.
	var items []item
	itemRows := [][]string{{"item_id", "merchant_id", "item_name", "cuisine_tag"}}
	for _, mid := range merchantIDs {
		for j := 0; j < faker.Number(4, 10); j++ {
			it := item{
				id:         fmt.Sprintf("i%06d", len(items)+1),
				merchantID: mid,
				name:       faker.Dinner(),
				cuisine:    faker.RandomString(cuisineTags),
			}
			if faker.Number(1, 50) == 1 {
				it.name = ""
			}
			items = append(items, it)
			itemRows = append(itemRows, []string{it.id, it.merchantID, it.name, it.cuisine})
		}
	}

	// transaction_data.csv + transaction_items.csv
	txRows := [][]string{{"", "order_id", "merchant_id", "eater_id", "order_time", "order_value"}}
	lineRows := [][]string{{"", "order_id", "item_id", "merchant_id"}}
	lineNo := 0
	for i := 0; i < *orders; i++ {
		orderID := fmt.Sprintf("o%07d", i+1)
		mid := faker.RandomString(merchantIDs)
		orderedAt := faker.DateRange(start, end)
		value := strconv.FormatFloat(float64(faker.Number(500, 9500))/100, 'f', 2, 64)
		// Sprinkle the faults the loader must coerce away.
		if faker.Number(1, 100) == 1 {
			value = ""
		}
		txRows = append(txRows, []string{
			strconv.Itoa(i),
			orderID,
			mid,
			fmt.Sprintf("e%05d", faker.Number(1, 800)),
			orderedAt.Format("2006-01-02 15:04:05"),
			value,
		})

		for _, it := range pickItems(faker, items, mid) {
			lineRows = append(lineRows, []string{strconv.Itoa(lineNo), orderID, it.id, mid})
			lineNo++
		}
	}

	// keywords.csv: search funnel counts per term.
	kwRows := [][]string{{"", "keyword", "view", "menu", "checkout", "order"}}
	for i := 0; i < 40; i++ {
		views := faker.Number(200, 20000)
		menus := faker.Number(50, views)
		checkouts := faker.Number(10, menus)
		ordered := faker.Number(0, checkouts)
		kwRows = append(kwRows, []string{
			strconv.Itoa(i),
			faker.Dinner(),
			strconv.Itoa(views),
			strconv.Itoa(menus),
			strconv.Itoa(checkouts),
			strconv.Itoa(ordered),
		})
	}

	files := map[string][][]string{
		"merchant.csv":          merchantRows,
		"items.csv":             itemRows,
		"transaction_data.csv":  txRows,
		"transaction_items.csv": lineRows,
		"keywords.csv":          kwRows,
	}
	for name, rows := range files {
		if err := writeCSV(filepath.Join(*outDir, name), rows); err != nil {
			slog.Error("Failed to write table", "file", name, "error", err)
			os.Exit(1)
		}
		slog.Info("Wrote table", "file", name, "rows", len(rows)-1)
	}
}

// pickItems selects 1-4 line items for an order from the merchant's menu,
// occasionally repeating one so distinct-order counting has something to
// deduplicate.
func pickItems(faker *gofakeit.Faker, items []item, merchantID string) []item {
	var menu []item
	for _, it := range items {
		if it.merchantID == merchantID {
			menu = append(menu, it)
		}
	}
	if len(menu) == 0 {
		return nil
	}
	n := faker.Number(1, 4)
	picked := make([]item, 0, n+1)
	for i := 0; i < n; i++ {
		picked = append(picked, menu[faker.Number(0, len(menu)-1)])
	}
	if faker.Number(1, 10) == 1 {
		picked = append(picked, picked[0])
	}
	return picked
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	return w.WriteAll(rows)
}
