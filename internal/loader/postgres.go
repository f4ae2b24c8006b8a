package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/grubsight/grubsight/internal/core/dataset"
)

// Postgres error codes that indicate a broken table contract rather than a
// transient database fault.
const (
	pqUndefinedTable  = "42P01"
	pqUndefinedColumn = "42703"
)

// PostgresLoader reads the dataset tables from a Postgres warehouse. It is a
// read-only consumer: the tables are owned and migrated elsewhere, this
// loader only SELECTs a snapshot of them.
type PostgresLoader struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenPostgres opens and pings a Postgres connection pool for snapshot loads.
func OpenPostgres(dsn string, maxOpenConns, maxIdleConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresLoader creates a loader reading from db. logger may be nil.
func NewPostgresLoader(db *sql.DB, logger *slog.Logger) *PostgresLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLoader{db: db, logger: logger}
}

// Load reads all five tables inside one call and assembles a snapshot.
// Rows with NULL order_time are excluded in SQL; they carry no position on
// the time axis and would be dropped during coercion anyway.
func (l *PostgresLoader) Load(ctx context.Context) (*dataset.Snapshot, error) {
	merchants, err := l.loadMerchants(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := l.loadTransactions(ctx)
	if err != nil {
		return nil, err
	}
	transactionItems, err := l.loadTransactionItems(ctx)
	if err != nil {
		return nil, err
	}
	items, err := l.loadItems(ctx)
	if err != nil {
		return nil, err
	}
	keywords, err := l.loadKeywords(ctx)
	if err != nil {
		return nil, err
	}

	l.logger.Info("dataset snapshot loaded",
		"source", "postgres",
		"merchants", len(merchants),
		"transactions", len(transactions),
		"transaction_items", len(transactionItems),
		"items", len(items),
		"keywords", len(keywords),
	)
	return dataset.NewSnapshot(merchants, transactions, transactionItems, items, keywords), nil
}

func (l *PostgresLoader) loadMerchants(ctx context.Context) ([]dataset.Merchant, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT merchant_id, city_id FROM merchant`)
	if err != nil {
		return nil, tableError(dataset.TableMerchants, err)
	}
	defer rows.Close()

	var merchants []dataset.Merchant
	for rows.Next() {
		var m dataset.Merchant
		if err := rows.Scan(&m.MerchantID, &m.CityID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dataset.TableMerchants, err)
		}
		m.MerchantID = strings.TrimSpace(m.MerchantID)
		m.CityID = strings.TrimSpace(m.CityID)
		merchants = append(merchants, m)
	}
	if merchants == nil {
		merchants = []dataset.Merchant{}
	}
	return merchants, rows.Err()
}

func (l *PostgresLoader) loadTransactions(ctx context.Context) ([]dataset.Transaction, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT order_id, merchant_id, COALESCE(eater_id, ''), order_time, order_value
		FROM transaction_data
		WHERE order_time IS NOT NULL
	`)
	if err != nil {
		return nil, tableError(dataset.TableTransactions, err)
	}
	defer rows.Close()

	var transactions []dataset.Transaction
	for rows.Next() {
		var (
			tx    dataset.Transaction
			value decimal.NullDecimal
		)
		if err := rows.Scan(&tx.OrderID, &tx.MerchantID, &tx.EaterID, &tx.OrderedAt, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dataset.TableTransactions, err)
		}
		tx.OrderID = strings.TrimSpace(tx.OrderID)
		tx.MerchantID = strings.TrimSpace(tx.MerchantID)
		tx.EaterID = strings.TrimSpace(tx.EaterID)
		tx.OrderValue = decimal.Zero
		if value.Valid {
			tx.OrderValue = value.Decimal
		}
		transactions = append(transactions, tx)
	}
	if transactions == nil {
		transactions = []dataset.Transaction{}
	}
	return transactions, rows.Err()
}

func (l *PostgresLoader) loadTransactionItems(ctx context.Context) ([]dataset.TransactionItem, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT order_id, item_id, merchant_id FROM transaction_items`)
	if err != nil {
		return nil, tableError(dataset.TableTransactionItems, err)
	}
	defer rows.Close()

	var lines []dataset.TransactionItem
	for rows.Next() {
		var ti dataset.TransactionItem
		if err := rows.Scan(&ti.OrderID, &ti.ItemID, &ti.MerchantID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dataset.TableTransactionItems, err)
		}
		ti.OrderID = strings.TrimSpace(ti.OrderID)
		ti.ItemID = strings.TrimSpace(ti.ItemID)
		ti.MerchantID = strings.TrimSpace(ti.MerchantID)
		lines = append(lines, ti)
	}
	if lines == nil {
		lines = []dataset.TransactionItem{}
	}
	return lines, rows.Err()
}

func (l *PostgresLoader) loadItems(ctx context.Context) ([]dataset.Item, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT item_id, COALESCE(merchant_id, ''), COALESCE(item_name, ''), COALESCE(cuisine_tag, '')
		FROM items
	`)
	if err != nil {
		return nil, tableError(dataset.TableItems, err)
	}
	defer rows.Close()

	var items []dataset.Item
	for rows.Next() {
		var it dataset.Item
		if err := rows.Scan(&it.ItemID, &it.MerchantID, &it.Name, &it.CuisineTag); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dataset.TableItems, err)
		}
		it.ItemID = strings.TrimSpace(it.ItemID)
		it.MerchantID = strings.TrimSpace(it.MerchantID)
		it.Name = strings.TrimSpace(it.Name)
		it.CuisineTag = strings.TrimSpace(it.CuisineTag)
		items = append(items, it)
	}
	if items == nil {
		items = []dataset.Item{}
	}
	return items, rows.Err()
}

func (l *PostgresLoader) loadKeywords(ctx context.Context) ([]dataset.Keyword, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT keyword, "view", menu, checkout, "order" FROM keywords`)
	if err != nil {
		return nil, tableError(dataset.TableKeywords, err)
	}
	defer rows.Close()

	var keywords []dataset.Keyword
	for rows.Next() {
		var kw dataset.Keyword
		if err := rows.Scan(&kw.Keyword, &kw.View, &kw.Menu, &kw.Checkout, &kw.Order); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dataset.TableKeywords, err)
		}
		kw.Keyword = strings.TrimSpace(kw.Keyword)
		keywords = append(keywords, kw)
	}
	if keywords == nil {
		keywords = []dataset.Keyword{}
	}
	return keywords, rows.Err()
}

// tableError maps "relation/column does not exist" faults to schema errors so
// callers see the same taxonomy as with CSV sources; anything else stays a
// plain query failure.
func tableError(tbl string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUndefinedTable, pqUndefinedColumn:
			return &dataset.SchemaError{Table: tbl, Reason: pqErr.Message}
		}
	}
	return fmt.Errorf("query %s: %w", tbl, err)
}
