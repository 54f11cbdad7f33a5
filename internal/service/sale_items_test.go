package service

import (
	"context"
	"testing"

	"nine-pos/internal/models"
	"nine-pos/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestAddAndDeleteSaleItem(t *testing.T) {
	svc, db, cashier := newSaleService(t)
	tea := testutil.CreateProduct(t, db, "Tea", "2", 10)
	cake := testutil.CreateProduct(t, db, "Cake", "5", 3)

	sale, err := svc.Create(context.Background(), cashier.ID, SaleRequest{Items: []SaleLine{{ProductID: tea.ID, Quantity: 1}}})
	require.NoError(t, err)

	item, err := svc.AddItem(context.Background(), AddItemRequest{SaleID: sale.ID, ProductID: cake.ID, Quantity: 2})
	require.NoError(t, err)
	requireDecimal(t, "10", item.Subtotal)
	require.Equal(t, 1, testutil.Stock(t, db, cake.ID))

	reloaded, err := svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	requireDecimal(t, "12", reloaded.TotalAmount)
	require.Len(t, reloaded.SaleItems, 2)

	_, err = svc.AddItem(context.Background(), AddItemRequest{SaleID: sale.ID, ProductID: cake.ID, Quantity: 2})
	var ins *InsufficientStockError
	require.ErrorAs(t, err, &ins)

	restored, err := svc.DeleteItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, "Cake", restored.ProductName)
	require.Equal(t, 3, testutil.Stock(t, db, cake.ID))

	reloaded, err = svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	requireDecimal(t, "2", reloaded.TotalAmount)
	require.Len(t, reloaded.SaleItems, 1)

	hist := historyFor(t, db, cake.ID)
	require.Len(t, hist, 2)
	require.Equal(t, models.StockActionSale, hist[0].Action)
	require.Equal(t, 3, hist[0].PreviousStock)
	require.Equal(t, 1, hist[0].NewStock)
	require.Equal(t, models.StockActionRefund, hist[1].Action)

	var nf *NotFoundError
	_, err = svc.DeleteItem(context.Background(), item.ID)
	require.ErrorAs(t, err, &nf)
	_, err = svc.AddItem(context.Background(), AddItemRequest{SaleID: 999, ProductID: tea.ID, Quantity: 1})
	require.ErrorAs(t, err, &nf)
}

func TestDeleteSaleItemTwiceRestoresStockOnce(t *testing.T) {
	svc, db, cashier := newSaleService(t)
	tea := testutil.CreateProduct(t, db, "Tea", "2", 10)
	cake := testutil.CreateProduct(t, db, "Cake", "5", 4)

	sale, err := svc.Create(context.Background(), cashier.ID, SaleRequest{
		Items: []SaleLine{{ProductID: tea.ID, Quantity: 1}, {ProductID: cake.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	reloaded, err := svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	cakeItem := reloaded.SaleItems[1]
	require.Equal(t, cake.ID, cakeItem.ProductID)

	_, err = svc.DeleteItem(context.Background(), cakeItem.ID)
	require.NoError(t, err)

	_, err = svc.DeleteItem(context.Background(), cakeItem.ID)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	require.Equal(t, 4, testutil.Stock(t, db, cake.ID))
	require.Len(t, historyFor(t, db, cake.ID), 2)
	reloaded, err = svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	requireDecimal(t, "2", reloaded.TotalAmount)
}

func TestListSaleItems(t *testing.T) {
	svc, db, cashier := newSaleService(t)
	tea := testutil.CreateProduct(t, db, "Green Tea", "2", 10)
	cake := testutil.CreateProduct(t, db, "Cake", "5", 10)

	sale, err := svc.Create(context.Background(), cashier.ID, SaleRequest{Items: []SaleLine{
		{ProductID: tea.ID, Quantity: 1}, {ProductID: cake.ID, Quantity: 1},
	}})
	require.NoError(t, err)

	all, err := svc.ListItems(context.Background(), sale.ID, "", Page{})
	require.NoError(t, err)
	require.Equal(t, int64(2), all.TotalSaleItems)
	require.NotNil(t, all.SaleItems[0].Product)

	found, err := svc.ListItems(context.Background(), sale.ID, "Tea", Page{})
	require.NoError(t, err)
	require.Equal(t, int64(1), found.TotalSaleItems)
	require.Equal(t, tea.ID, found.SaleItems[0].ProductID)
}
