package analysis

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/grubsight/grubsight/internal/core/dataset"
)

// Operation names, used for error tagging, logging, and metrics labels.
const (
	OpPopularItems       = "popular_items"
	OpLowPerformingItems = "low_performing_items"
	OpSalesSummary       = "sales_summary"
	OpPopularCuisines    = "popular_cuisines"
)

// Default scope parameters. Sales and item rankings look back 30 days;
// cuisine popularity looks back 90 because regional signals need the longer
// horizon.
const (
	DefaultDays        = 30
	DefaultCuisineDays = 90
	DefaultTopN        = 5
	DefaultPeriod      = PeriodLast30Days
)

// rankingSize is the fixed page size for popular items and cuisines.
const rankingSize = 5

// ItemRanking is one entry of an item popularity ranking.
type ItemRanking struct {
	ItemID           string `json:"item_id"`
	UniqueOrderCount int    `json:"unique_order_count"`
	ItemName         string `json:"item_name"`
}

// SalesSummary is the aggregate sales report for one merchant and window.
type SalesSummary struct {
	TotalSales     decimal.Decimal `json:"total_sales"`
	OrderCount     int             `json:"order_count"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	PeriodAnalyzed string          `json:"period_analyzed"`
}

// Engine runs the analytical queries against the current dataset snapshot.
// Every operation is a pure read: it takes one consistent snapshot from the
// store at entry and never writes, so any number of queries may run
// concurrently against the same store.
type Engine struct {
	store  *dataset.Store
	logger *slog.Logger
}

// New creates an engine reading from store. logger may be nil.
func New(store *dataset.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// PopularItems ranks a merchant's items by the number of distinct orders that
// included them over the last days days, most ordered first, top 5. An item
// referenced twice within one order counts once. Items missing from the
// catalog keep their place with a placeholder name. days <= 0 means the
// 30-day default.
func (e *Engine) PopularItems(merchantID string, days int) (result []ItemRanking, err error) {
	defer e.guard(OpPopularItems, &err)
	if days <= 0 {
		days = DefaultDays
	}
	return e.rankItemsByOrders(OpPopularItems, merchantID, days, false, rankingSize)
}

// LowPerformingItems is the ascending counterpart of PopularItems: the topN
// least-ordered items over the window. Only items that were ordered at least
// once appear: the metric ranks observed sales, it does not join the full
// catalog to surface never-ordered items as zeros.
func (e *Engine) LowPerformingItems(merchantID string, days, topN int) (result []ItemRanking, err error) {
	defer e.guard(OpLowPerformingItems, &err)
	if days <= 0 {
		days = DefaultDays
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return e.rankItemsByOrders(OpLowPerformingItems, merchantID, days, true, topN)
}

// SalesSummary totals a merchant's order values and counts distinct orders
// over the named period. Unknown period names fall back to 30 days; the
// input name is echoed back regardless.
func (e *Engine) SalesSummary(merchantID, period string) (result *SalesSummary, err error) {
	defer e.guard(OpSalesSummary, &err)
	if period == "" {
		period = DefaultPeriod
	}
	days := PeriodDays(period, DefaultDays)

	snap, err := e.snapshot(dataset.TableTransactions)
	if err != nil {
		return nil, err
	}

	win, err := ResolveWindow(snap.Transactions, days)
	if err != nil {
		return nil, err
	}
	e.logWindow(OpSalesSummary, merchantID, win)

	total := decimal.Zero
	orders := make(map[string]struct{})
	for _, tx := range snap.Transactions {
		if tx.MerchantID != merchantID || !win.Contains(tx.OrderedAt) {
			continue
		}
		total = total.Add(tx.OrderValue)
		orders[tx.OrderID] = struct{}{}
	}
	if len(orders) == 0 {
		return nil, noDataf("no transactions for merchant %s in period %s", merchantID, period)
	}

	return &SalesSummary{
		TotalSales:     total,
		OrderCount:     len(orders),
		StartDate:      win.StartDate(),
		EndDate:        win.EndDate(),
		PeriodAnalyzed: period,
	}, nil
}

// PopularCuisines ranks cuisine tags by distinct-order count across every
// merchant in a city over the last days days and returns the top 5 tags.
// Untagged items never contribute, however often they were ordered. days <= 0
// means the 90-day default.
func (e *Engine) PopularCuisines(cityID string, days int) (result []string, err error) {
	defer e.guard(OpPopularCuisines, &err)
	if days <= 0 {
		days = DefaultCuisineDays
	}

	snap, err := e.snapshot(
		dataset.TableMerchants,
		dataset.TableTransactions,
		dataset.TableTransactionItems,
		dataset.TableItems,
	)
	if err != nil {
		return nil, err
	}

	win, err := ResolveWindow(snap.Transactions, days)
	if err != nil {
		return nil, err
	}
	e.logWindow(OpPopularCuisines, cityID, win)

	cityMerchants := make(map[string]struct{})
	for _, id := range snap.MerchantsInCity(cityID) {
		cityMerchants[id] = struct{}{}
	}
	if len(cityMerchants) == 0 {
		return nil, noDataf("no merchants registered in city %s", cityID)
	}

	orders := make(map[string]struct{})
	for _, tx := range snap.Transactions {
		if _, ok := cityMerchants[tx.MerchantID]; !ok {
			continue
		}
		if win.Contains(tx.OrderedAt) {
			orders[tx.OrderID] = struct{}{}
		}
	}
	if len(orders) == 0 {
		return nil, noDataf("no transactions in city %s between %s and %s", cityID, win.StartDate(), win.EndDate())
	}

	// Catalog restricted to tagged items; tagOrder fixes the pre-sort order
	// to first appearance in the catalog so equal counts rank predictably.
	tagByItem := make(map[string]string)
	var tagOrder []string
	seenTag := make(map[string]bool)
	for _, it := range snap.Items {
		if it.CuisineTag == "" {
			continue
		}
		if _, ok := tagByItem[it.ItemID]; !ok {
			tagByItem[it.ItemID] = it.CuisineTag
		}
		if !seenTag[it.CuisineTag] {
			seenTag[it.CuisineTag] = true
			tagOrder = append(tagOrder, it.CuisineTag)
		}
	}
	if len(tagByItem) == 0 {
		return nil, noDataf("no items in the catalog carry a cuisine tag")
	}

	matchedLines := 0
	ordersByTag := make(map[string]map[string]struct{})
	for _, ti := range snap.TransactionItems {
		if _, ok := orders[ti.OrderID]; !ok {
			continue
		}
		matchedLines++
		tag, ok := tagByItem[ti.ItemID]
		if !ok {
			continue
		}
		set := ordersByTag[tag]
		if set == nil {
			set = make(map[string]struct{})
			ordersByTag[tag] = set
		}
		set[ti.OrderID] = struct{}{}
	}
	if matchedLines == 0 {
		return nil, noDataf("no line items found for the %d orders in city %s", len(orders), cityID)
	}
	if len(ordersByTag) == 0 {
		return nil, noDataf("no ordered items with cuisine tags in city %s", cityID)
	}

	ranked := make([]string, 0, len(ordersByTag))
	for _, tag := range tagOrder {
		if _, ok := ordersByTag[tag]; ok {
			ranked = append(ranked, tag)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ordersByTag[ranked[i]]) > len(ordersByTag[ranked[j]])
	})
	if len(ranked) > rankingSize {
		ranked = ranked[:rankingSize]
	}

	e.logger.Info("ranked city cuisines",
		"operation", OpPopularCuisines,
		"city_id", cityID,
		"orders", len(orders),
		"cuisines", len(ordersByTag),
	)
	return ranked, nil
}

// rankItemsByOrders is the shared pipeline behind PopularItems and
// LowPerformingItems: scope to merchant and window, count distinct orders
// per item, rank. The pre-sort order is the catalog's row order, with items
// missing from the catalog appended in line-item appearance order; the sort
// is stable, so ties keep that order.
func (e *Engine) rankItemsByOrders(op, merchantID string, days int, ascending bool, topN int) ([]ItemRanking, error) {
	snap, err := e.snapshot(
		dataset.TableTransactions,
		dataset.TableTransactionItems,
		dataset.TableItems,
	)
	if err != nil {
		return nil, err
	}

	win, err := ResolveWindow(snap.Transactions, days)
	if err != nil {
		return nil, err
	}
	e.logWindow(op, merchantID, win)

	orders := make(map[string]struct{})
	for _, tx := range snap.Transactions {
		if tx.MerchantID != merchantID || !win.Contains(tx.OrderedAt) {
			continue
		}
		orders[tx.OrderID] = struct{}{}
	}
	if len(orders) == 0 {
		return nil, noDataf("no transactions for merchant %s between %s and %s", merchantID, win.StartDate(), win.EndDate())
	}

	ordersByItem := make(map[string]map[string]struct{})
	var uncatalogued []string
	for _, ti := range snap.TransactionItems {
		if _, ok := orders[ti.OrderID]; !ok {
			continue
		}
		set := ordersByItem[ti.ItemID]
		if set == nil {
			set = make(map[string]struct{})
			ordersByItem[ti.ItemID] = set
			if _, ok := snap.ItemByID(ti.ItemID); !ok {
				uncatalogued = append(uncatalogued, ti.ItemID)
			}
		}
		set[ti.OrderID] = struct{}{}
	}
	if len(ordersByItem) == 0 {
		return nil, noDataf("no line items found for the %d orders of merchant %s", len(orders), merchantID)
	}

	ranked := make([]ItemRanking, 0, len(ordersByItem))
	emitted := make(map[string]bool, len(ordersByItem))
	for _, it := range snap.Items {
		set, ok := ordersByItem[it.ItemID]
		if !ok || emitted[it.ItemID] {
			continue
		}
		emitted[it.ItemID] = true
		name := it.Name
		if name == "" {
			name = unknownItemName(it.ItemID)
		}
		ranked = append(ranked, ItemRanking{ItemID: it.ItemID, UniqueOrderCount: len(set), ItemName: name})
	}
	for _, id := range uncatalogued {
		ranked = append(ranked, ItemRanking{
			ItemID:           id,
			UniqueOrderCount: len(ordersByItem[id]),
			ItemName:         unknownItemName(id),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ascending {
			return ranked[i].UniqueOrderCount < ranked[j].UniqueOrderCount
		}
		return ranked[i].UniqueOrderCount > ranked[j].UniqueOrderCount
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	e.logger.Info("ranked merchant items",
		"operation", op,
		"merchant_id", merchantID,
		"orders", len(orders),
		"items", len(ordersByItem),
		"returned", len(ranked),
	)
	return ranked, nil
}

func unknownItemName(id string) string {
	return fmt.Sprintf("Unknown Item (ID: %s)", id)
}

// snapshot fetches the current snapshot and asserts the required tables were
// loaded. With typed tables the loader enforces column types at its own
// boundary; what remains to check here is that a snapshot exists and the
// tables an operation reads are present at all.
func (e *Engine) snapshot(tables ...string) (*dataset.Snapshot, error) {
	if e.store == nil {
		return nil, &dataset.SchemaError{Reason: "no dataset store configured"}
	}
	snap := e.store.Current()
	if snap == nil {
		return nil, &dataset.SchemaError{Reason: "no dataset snapshot loaded"}
	}
	for _, tbl := range tables {
		var loaded bool
		switch tbl {
		case dataset.TableMerchants:
			loaded = snap.Merchants != nil
		case dataset.TableTransactions:
			loaded = snap.Transactions != nil
		case dataset.TableTransactionItems:
			loaded = snap.TransactionItems != nil
		case dataset.TableItems:
			loaded = snap.Items != nil
		case dataset.TableKeywords:
			loaded = snap.Keywords != nil
		}
		if !loaded {
			return nil, &dataset.SchemaError{Table: tbl, Reason: "required table not loaded"}
		}
	}
	return snap, nil
}

func (e *Engine) logWindow(op, scope string, win Window) {
	e.logger.Debug("resolved analysis window",
		"operation", op,
		"scope", scope,
		"start", win.Start,
		"end", win.End,
	)
}

// guard converts a panic inside an operation into an OpError tagged with the
// operation name. Expected outcomes (schema errors, ErrNoData) pass through
// untouched.
func (e *Engine) guard(op string, errp *error) {
	if r := recover(); r != nil {
		e.logger.Error("analysis operation panicked",
			"operation", op,
			"panic", r,
			"stack", string(debug.Stack()),
		)
		*errp = &OpError{Op: op, Err: fmt.Errorf("panic: %v", r)}
	}
}
