// Package loader builds dataset snapshots from external sources. Loaders own
// the coercion contract the analysis engine relies on: identifier columns are
// trimmed strings, order values are numeric with nulls zeroed, rows with
// unparsable timestamps are dropped, and empty cuisine tags mean "untagged".
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/grubsight/grubsight/internal/core/dataset"
)

// Source CSV file names, one per table.
const (
	merchantsFile        = "merchant.csv"
	transactionsFile     = "transaction_data.csv"
	transactionItemsFile = "transaction_items.csv"
	itemsFile            = "items.csv"
	keywordsFile         = "keywords.csv"
)

// orderTimeLayouts are the accepted order_time formats, tried in order.
var orderTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CSVLoader reads the five dataset tables from CSV files in one directory.
type CSVLoader struct {
	dir    string
	logger *slog.Logger
}

// NewCSVLoader creates a loader reading from dir. logger may be nil.
func NewCSVLoader(dir string, logger *slog.Logger) *CSVLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVLoader{dir: dir, logger: logger}
}

// Load reads all tables concurrently and assembles an immutable snapshot.
// A missing file or column surfaces as a *dataset.SchemaError naming the
// table.
func (l *CSVLoader) Load(ctx context.Context) (*dataset.Snapshot, error) {
	var (
		merchants        []dataset.Merchant
		transactions     []dataset.Transaction
		transactionItems []dataset.TransactionItem
		items            []dataset.Item
		keywords         []dataset.Keyword
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) { merchants, err = l.loadMerchants(); return })
	g.Go(func() (err error) { transactions, err = l.loadTransactions(); return })
	g.Go(func() (err error) { transactionItems, err = l.loadTransactionItems(); return })
	g.Go(func() (err error) { items, err = l.loadItems(); return })
	g.Go(func() (err error) { keywords, err = l.loadKeywords(); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("dataset snapshot loaded",
		"source", "csv",
		"dir", l.dir,
		"merchants", len(merchants),
		"transactions", len(transactions),
		"transaction_items", len(transactionItems),
		"items", len(items),
		"keywords", len(keywords),
	)
	return dataset.NewSnapshot(merchants, transactions, transactionItems, items, keywords), nil
}

func (l *CSVLoader) loadMerchants() ([]dataset.Merchant, error) {
	t, err := l.readTable(merchantsFile, dataset.TableMerchants, "merchant_id", "city_id")
	if err != nil {
		return nil, err
	}
	merchants := make([]dataset.Merchant, 0, len(t.rows))
	for _, row := range t.rows {
		merchants = append(merchants, dataset.Merchant{
			MerchantID: t.id(row, "merchant_id"),
			CityID:     t.id(row, "city_id"),
		})
	}
	return merchants, nil
}

func (l *CSVLoader) loadTransactions() ([]dataset.Transaction, error) {
	t, err := l.readTable(transactionsFile, dataset.TableTransactions,
		"order_id", "merchant_id", "order_time", "order_value")
	if err != nil {
		return nil, err
	}

	transactions := make([]dataset.Transaction, 0, len(t.rows))
	droppedTimes := 0
	zeroedValues := 0
	for _, row := range t.rows {
		orderedAt, ok := parseOrderTime(t.field(row, "order_time"))
		if !ok {
			droppedTimes++
			continue
		}
		value, ok := parseOrderValue(t.field(row, "order_value"))
		if !ok {
			zeroedValues++
		}
		transactions = append(transactions, dataset.Transaction{
			OrderID:    t.id(row, "order_id"),
			MerchantID: t.id(row, "merchant_id"),
			EaterID:    t.id(row, "eater_id"),
			OrderedAt:  orderedAt,
			OrderValue: value,
		})
	}
	if droppedTimes > 0 {
		l.logger.Warn("dropped transactions with unparsable order_time",
			"table", dataset.TableTransactions, "rows", droppedTimes)
	}
	if zeroedValues > 0 {
		l.logger.Warn("zeroed non-numeric order_value fields",
			"table", dataset.TableTransactions, "rows", zeroedValues)
	}
	return transactions, nil
}

func (l *CSVLoader) loadTransactionItems() ([]dataset.TransactionItem, error) {
	t, err := l.readTable(transactionItemsFile, dataset.TableTransactionItems,
		"order_id", "item_id", "merchant_id")
	if err != nil {
		return nil, err
	}
	lines := make([]dataset.TransactionItem, 0, len(t.rows))
	for _, row := range t.rows {
		lines = append(lines, dataset.TransactionItem{
			OrderID:    t.id(row, "order_id"),
			ItemID:     t.id(row, "item_id"),
			MerchantID: t.id(row, "merchant_id"),
		})
	}
	return lines, nil
}

func (l *CSVLoader) loadItems() ([]dataset.Item, error) {
	t, err := l.readTable(itemsFile, dataset.TableItems, "item_id", "item_name", "cuisine_tag")
	if err != nil {
		return nil, err
	}
	items := make([]dataset.Item, 0, len(t.rows))
	for _, row := range t.rows {
		items = append(items, dataset.Item{
			ItemID:     t.id(row, "item_id"),
			MerchantID: t.id(row, "merchant_id"),
			Name:       strings.TrimSpace(t.field(row, "item_name")),
			CuisineTag: strings.TrimSpace(t.field(row, "cuisine_tag")),
		})
	}
	return items, nil
}

func (l *CSVLoader) loadKeywords() ([]dataset.Keyword, error) {
	t, err := l.readTable(keywordsFile, dataset.TableKeywords, "keyword")
	if err != nil {
		return nil, err
	}
	keywords := make([]dataset.Keyword, 0, len(t.rows))
	for _, row := range t.rows {
		keywords = append(keywords, dataset.Keyword{
			Keyword:  strings.TrimSpace(t.field(row, "keyword")),
			View:     parseCount(t.field(row, "view")),
			Menu:     parseCount(t.field(row, "menu")),
			Checkout: parseCount(t.field(row, "checkout")),
			Order:    parseCount(t.field(row, "order")),
		})
	}
	return keywords, nil
}

// table is one parsed CSV file: a name→index column map plus raw rows.
// Unnamed index columns (exported dataframes carry one) simply never match a
// requested name.
type table struct {
	cols map[string]int
	rows [][]string
}

func (l *CSVLoader) readTable(file, name string, required ...string) (*table, error) {
	path := filepath.Join(l.dir, file)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &dataset.SchemaError{Table: name, Reason: fmt.Sprintf("source file %s not found", path)}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, &dataset.SchemaError{Table: name, Reason: fmt.Sprintf("cannot read header of %s: %v", path, err)}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return nil, &dataset.SchemaError{Table: name, Column: col, Reason: "required column missing"}
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &table{cols: cols, rows: rows}, nil
}

// field returns the raw cell for col, or "" when the column is absent or the
// row is short.
func (t *table) field(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// id returns a cell coerced to the identifier contract: whitespace-trimmed.
func (t *table) id(row []string, col string) string {
	return strings.TrimSpace(t.field(row, col))
}

func parseOrderTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range orderTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseOrderValue coerces an order_value cell to decimal. The second return
// is false when the cell was empty or non-numeric and got zeroed.
func parseOrderValue(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
