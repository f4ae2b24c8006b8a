package dataset

import (
	"fmt"
	"sync/atomic"
)

// Snapshot is an immutable view of all loaded tables. Loaders build one, the
// Store publishes it, and every query reads it without coordination. Nothing
// may mutate a snapshot after it has been published; refreshes swap in a
// whole new snapshot via Store.Replace.
//
// A nil table slice means the table was never loaded (a schema-level fault);
// an empty non-nil slice means the table loaded with zero rows. Queries rely
// on this distinction to tell "broken input" from "nothing to report".
type Snapshot struct {
	Merchants        []Merchant
	Transactions     []Transaction
	TransactionItems []TransactionItem
	Items            []Item
	Keywords         []Keyword

	itemsByID       map[string]Item
	merchantsByCity map[string][]string
}

// NewSnapshot builds the lookup indexes over the given tables. The first
// catalog row wins when an item ID appears twice.
func NewSnapshot(
	merchants []Merchant,
	transactions []Transaction,
	transactionItems []TransactionItem,
	items []Item,
	keywords []Keyword,
) *Snapshot {
	s := &Snapshot{
		Merchants:        merchants,
		Transactions:     transactions,
		TransactionItems: transactionItems,
		Items:            items,
		Keywords:         keywords,
		itemsByID:        make(map[string]Item, len(items)),
		merchantsByCity:  make(map[string][]string, len(merchants)),
	}
	for _, it := range items {
		if _, ok := s.itemsByID[it.ItemID]; !ok {
			s.itemsByID[it.ItemID] = it
		}
	}
	for _, m := range merchants {
		s.merchantsByCity[m.CityID] = append(s.merchantsByCity[m.CityID], m.MerchantID)
	}
	return s
}

// ItemByID looks up a catalog item. The second return is false when the ID is
// not in the catalog.
func (s *Snapshot) ItemByID(id string) (Item, bool) {
	it, ok := s.itemsByID[id]
	return it, ok
}

// MerchantsInCity returns the merchant IDs registered in the given city.
// The returned slice must not be modified.
func (s *Snapshot) MerchantsInCity(cityID string) []string {
	return s.merchantsByCity[cityID]
}

// SchemaError reports a violated table contract: a missing table, a missing
// column, or a column whose content cannot satisfy its semantic type. It is
// detected before any filtering and names the offending table/column.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("table %s: column %s: %s", e.Table, e.Column, e.Reason)
	case e.Table != "":
		return fmt.Sprintf("table %s: %s", e.Table, e.Reason)
	default:
		return e.Reason
	}
}

// Store holds the current snapshot behind an atomic pointer. Readers take a
// consistent snapshot once per query; a refresh replaces the pointer wholesale
// and never touches the snapshot readers may still hold.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store publishing snap. snap may be nil when no data has
// been loaded yet.
func NewStore(snap *Snapshot) *Store {
	st := &Store{}
	if snap != nil {
		st.current.Store(snap)
	}
	return st
}

// Current returns the latest published snapshot, or nil if none has been
// published.
func (st *Store) Current() *Snapshot {
	return st.current.Load()
}

// Replace atomically publishes a new snapshot.
func (st *Store) Replace(snap *Snapshot) {
	st.current.Store(snap)
}
