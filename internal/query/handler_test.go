package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/grubsight/grubsight/internal/core/analysis"
	"github.com/grubsight/grubsight/internal/core/dataset"
)

func newTestRouter(snap *dataset.Snapshot) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(analysis.New(dataset.NewStore(snap), nil)).RegisterRoutes(r)
	return r
}

func populatedSnapshot() *dataset.Snapshot {
	at := func(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }
	return dataset.NewSnapshot(
		[]dataset.Merchant{{MerchantID: "m1", CityID: "8"}},
		[]dataset.Transaction{
			{OrderID: "o1", MerchantID: "m1", OrderedAt: at(1), OrderValue: decimal.NewFromInt(20)},
			{OrderID: "o2", MerchantID: "m1", OrderedAt: at(2), OrderValue: decimal.NewFromInt(30)},
		},
		[]dataset.TransactionItem{
			{OrderID: "o1", ItemID: "i1", MerchantID: "m1"},
			{OrderID: "o2", ItemID: "i1", MerchantID: "m1"},
		},
		[]dataset.Item{{ItemID: "i1", MerchantID: "m1", Name: "Nasi Lemak", CuisineTag: "Malay"}},
		[]dataset.Keyword{},
	)
}

func doGet(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandlePopularItems_OK(t *testing.T) {
	r := newTestRouter(populatedSnapshot())

	w, body := doGet(t, r, "/v1/merchants/m1/popular-items?days=30")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "m1", body["merchant_id"])

	results := body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	require.Equal(t, "i1", first["item_id"])
	require.Equal(t, float64(2), first["unique_order_count"])
	require.Equal(t, "Nasi Lemak", first["item_name"])
}

func TestHandlePopularItems_EmptyResultIs200(t *testing.T) {
	r := newTestRouter(populatedSnapshot())

	w, body := doGet(t, r, "/v1/merchants/m404/popular-items")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, body["empty"])
	require.Empty(t, body["results"])
}

func TestHandlePopularItems_SchemaErrorIs422(t *testing.T) {
	// Items table never loaded: a contract violation, not an empty result.
	snap := dataset.NewSnapshot(nil, []dataset.Transaction{}, []dataset.TransactionItem{}, nil, nil)
	r := newTestRouter(snap)

	w, body := doGet(t, r, "/v1/merchants/m1/popular-items")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "dataset_schema_error", body["error_type"])
}

func TestHandlePopularItems_BadDaysIs400(t *testing.T) {
	r := newTestRouter(populatedSnapshot())

	for _, days := range []string{"abc", "0", "-3"} {
		w, body := doGet(t, r, "/v1/merchants/m1/popular-items?days="+days)
		require.Equal(t, http.StatusBadRequest, w.Code, "days=%s", days)
		require.Equal(t, "invalid_request", body["error_type"])
	}
}

func TestHandleLowPerformingItems_TopN(t *testing.T) {
	r := newTestRouter(populatedSnapshot())

	w, body := doGet(t, r, "/v1/merchants/m1/low-performing-items?top_n=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body["results"].([]any), 1)
}

func TestHandleSalesSummary_OK(t *testing.T) {
	r := newTestRouter(populatedSnapshot())

	w, body := doGet(t, r, "/v1/merchants/m1/sales-summary?period=last_7_days")
	require.Equal(t, http.StatusOK, w.Code)

	summary := body["summary"].(map[string]any)
	require.Equal(t, "50", summary["total_sales"])
	require.Equal(t, float64(2), summary["order_count"])
	require.Equal(t, "last_7_days", summary["period_analyzed"])
}

func TestHandleSalesSummary_Empty(t *testing.T) {
	r := newTestRouter(populatedSnapshot())

	w, body := doGet(t, r, "/v1/merchants/m404/sales-summary")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, body["empty"])
	require.NotContains(t, body, "summary")
}

func TestHandlePopularCuisines_OK(t *testing.T) {
	r := newTestRouter(populatedSnapshot())

	w, body := doGet(t, r, "/v1/cities/8/popular-cuisines?days=90")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []any{"Malay"}, body["cuisines"])
}

func TestHandlePopularCuisines_UnknownCityEmpty(t *testing.T) {
	r := newTestRouter(populatedSnapshot())

	w, body := doGet(t, r, "/v1/cities/404/popular-cuisines")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, body["empty"])
}
