package dataset

import (
	"time"

	"github.com/shopspring/decimal"
)

// Canonical table names. Loaders and schema errors refer to tables by these
// names so diagnostics line up with the source files/relations.
const (
	TableMerchants        = "merchant"
	TableTransactions     = "transaction_data"
	TableTransactionItems = "transaction_items"
	TableItems            = "items"
	TableKeywords         = "keywords"
)

// Transaction is one customer order. OrderID is unique within the table.
// Loaders guarantee OrderedAt is valid (rows with unparsable timestamps are
// dropped) and OrderValue is never negative-null: missing values load as zero.
type Transaction struct {
	OrderID    string
	MerchantID string
	EaterID    string
	OrderedAt  time.Time
	OrderValue decimal.Decimal
}

// TransactionItem is one line item within an order. Several rows may share an
// OrderID (multi-item orders) and an ItemID (same item across orders).
// MerchantID is a denormalized copy of the parent transaction's merchant.
type TransactionItem struct {
	OrderID    string
	ItemID     string
	MerchantID string
}

// Item is a sellable product. Name may be empty when the catalog entry has no
// display name. CuisineTag empty means the item is untagged.
type Item struct {
	ItemID     string
	MerchantID string
	Name       string
	CuisineTag string
}

// Merchant is a selling outlet belonging to one city.
type Merchant struct {
	MerchantID string
	CityID     string
}

// Keyword is one row of the search-keyword dataset: how often eaters who
// searched a term reached each funnel stage.
type Keyword struct {
	Keyword  string
	View     int
	Menu     int
	Checkout int
	Order    int
}
