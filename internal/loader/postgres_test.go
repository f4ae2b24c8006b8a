package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/grubsight/grubsight/internal/core/dataset"
)

func TestPostgresLoader_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderedAt := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectQuery("FROM merchant").WillReturnRows(
		sqlmock.NewRows([]string{"merchant_id", "city_id"}).
			AddRow(" m1 ", "8").
			AddRow("m2", "2"))
	mock.ExpectQuery("FROM transaction_data").WillReturnRows(
		sqlmock.NewRows([]string{"order_id", "merchant_id", "eater_id", "order_time", "order_value"}).
			AddRow("o1", "m1", "e1", orderedAt, "20.50").
			AddRow("o2", "m1", "e2", orderedAt, nil))
	mock.ExpectQuery("FROM transaction_items").WillReturnRows(
		sqlmock.NewRows([]string{"order_id", "item_id", "merchant_id"}).
			AddRow("o1", " i1 ", "m1"))
	mock.ExpectQuery("FROM items").WillReturnRows(
		sqlmock.NewRows([]string{"item_id", "merchant_id", "item_name", "cuisine_tag"}).
			AddRow("i1", "m1", " Nasi Lemak ", "Malay").
			AddRow("i2", "m1", "Teh Tarik", ""))
	mock.ExpectQuery("FROM keywords").WillReturnRows(
		sqlmock.NewRows([]string{"keyword", "view", "menu", "checkout", "order"}).
			AddRow("nasi lemak", 1000, 400, 120, 80))

	snap, err := NewPostgresLoader(db, nil).Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, "m1", snap.Merchants[0].MerchantID)

	require.Len(t, snap.Transactions, 2)
	require.True(t, snap.Transactions[0].OrderValue.Equal(decimal.RequireFromString("20.50")))
	require.True(t, snap.Transactions[1].OrderValue.IsZero(), "NULL order_value loads as zero")
	require.Equal(t, orderedAt, snap.Transactions[0].OrderedAt)

	require.Equal(t, "i1", snap.TransactionItems[0].ItemID)

	it, ok := snap.ItemByID("i1")
	require.True(t, ok)
	require.Equal(t, "Nasi Lemak", it.Name)

	require.Equal(t, 80, snap.Keywords[0].Order)
}

func TestPostgresLoader_UndefinedTableIsSchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM merchant").WillReturnError(&pq.Error{
		Code:    "42P01",
		Message: `relation "merchant" does not exist`,
	})

	_, err = NewPostgresLoader(db, nil).Load(context.Background())
	var schemaErr *dataset.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, dataset.TableMerchants, schemaErr.Table)
}

func TestPostgresLoader_QueryFaultIsNotSchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM merchant").WillReturnError(&pq.Error{
		Code:    "57P01", // admin_shutdown
		Message: "terminating connection",
	})

	_, err = NewPostgresLoader(db, nil).Load(context.Background())
	require.Error(t, err)
	var schemaErr *dataset.SchemaError
	require.False(t, errors.As(err, &schemaErr))
}
