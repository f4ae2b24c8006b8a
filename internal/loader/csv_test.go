package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/grubsight/grubsight/internal/core/dataset"
)

func writeDataset(t *testing.T, overrides map[string]string) string {
	t.Helper()

	files := map[string]string{
		"merchant.csv": "merchant_id,merchant_name,city_id\n" +
			" m1 ,Warung Satu,8\n" +
			"m2,Warung Dua,2\n",
		"transaction_data.csv": ",order_id,merchant_id,eater_id,order_time,order_value\n" +
			"0,o1,m1,e1,2024-03-01 12:30:00,20.50\n" +
			"1,o2,m1,e2,2024-03-02 13:00:00,abc\n" +
			"2,o3,m1,e3,not-a-date,30\n" +
			"3,o4,m2,e4,2024-03-02,\n",
		"transaction_items.csv": ",order_id,item_id,merchant_id\n" +
			"0,o1, i1 ,m1\n" +
			"1,o1,i2,m1\n" +
			"2,o2,i1,m1\n",
		"items.csv": "item_id,merchant_id,item_name,cuisine_tag\n" +
			"i1,m1, Nasi Lemak , Malay \n" +
			"i2,m1,Teh Tarik,\n",
		"keywords.csv": ",keyword,view,menu,checkout,order\n" +
			"0,nasi lemak,1000,400,120,80\n" +
			"1,burger,500,not-a-number,50,20\n",
	}
	for name, content := range overrides {
		files[name] = content
	}

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestCSVLoader_CoercionContract(t *testing.T) {
	dir := writeDataset(t, nil)
	snap, err := NewCSVLoader(dir, nil).Load(context.Background())
	require.NoError(t, err)

	// IDs are trimmed.
	require.Equal(t, "m1", snap.Merchants[0].MerchantID)
	require.Equal(t, "i1", snap.TransactionItems[0].ItemID)

	// The row with an unparsable order_time is dropped, not zeroed.
	require.Len(t, snap.Transactions, 3)
	for _, tx := range snap.Transactions {
		require.NotEqual(t, "o3", tx.OrderID)
	}

	// Non-numeric and empty order values become zero.
	byID := make(map[string]dataset.Transaction)
	for _, tx := range snap.Transactions {
		byID[tx.OrderID] = tx
	}
	require.True(t, byID["o1"].OrderValue.Equal(decimal.RequireFromString("20.50")))
	require.True(t, byID["o2"].OrderValue.IsZero())
	require.True(t, byID["o4"].OrderValue.IsZero())

	// Timestamps parse with their layout; date-only rows load at midnight.
	require.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), byID["o1"].OrderedAt)
	require.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), byID["o4"].OrderedAt)

	// Item names and cuisine tags are trimmed; empty tag means untagged.
	it, ok := snap.ItemByID("i1")
	require.True(t, ok)
	require.Equal(t, "Nasi Lemak", it.Name)
	require.Equal(t, "Malay", it.CuisineTag)
	it, _ = snap.ItemByID("i2")
	require.Equal(t, "", it.CuisineTag)

	// Keyword counts coerce; bad numbers become zero.
	require.Equal(t, 80, snap.Keywords[0].Order)
	require.Equal(t, 0, snap.Keywords[1].Menu)
}

func TestCSVLoader_MissingColumnIsSchemaError(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"transaction_data.csv": ",order_id,merchant_id,order_time\n0,o1,m1,2024-03-01 12:30:00\n",
	})

	_, err := NewCSVLoader(dir, nil).Load(context.Background())
	var schemaErr *dataset.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, dataset.TableTransactions, schemaErr.Table)
	require.Equal(t, "order_value", schemaErr.Column)
}

func TestCSVLoader_MissingFileIsSchemaError(t *testing.T) {
	dir := writeDataset(t, nil)
	require.NoError(t, os.Remove(filepath.Join(dir, "items.csv")))

	_, err := NewCSVLoader(dir, nil).Load(context.Background())
	var schemaErr *dataset.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, dataset.TableItems, schemaErr.Table)
}

func TestCSVLoader_EmptyTablesLoadAsEmptyNotNil(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"transaction_data.csv":  ",order_id,merchant_id,eater_id,order_time,order_value\n",
		"transaction_items.csv": ",order_id,item_id,merchant_id\n",
	})

	snap, err := NewCSVLoader(dir, nil).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Transactions)
	require.Empty(t, snap.Transactions)
	require.NotNil(t, snap.TransactionItems)
}
