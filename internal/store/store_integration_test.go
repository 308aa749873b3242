//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/logging"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

// setupMySQL starts a throwaway MySQL container and returns a migrated Store.
func setupMySQL(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "root",
			"MYSQL_DATABASE":      "pos",
			"MYSQL_USER":          "pos",
			"MYSQL_PASSWORD":      "pos",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(3 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate mysql container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	mc := mysql.NewConfig()
	mc.User, mc.Passwd, mc.Net = "pos", "pos", "tcp"
	mc.Addr = fmt.Sprintf("%s:%s", host, port.Port())
	mc.DBName = "pos"
	mc.ParseTime = true
	mc.ClientFoundRows = true

	s, err := Open(ctx, "mysql", mc.FormatDSN(), PoolOptions{MaxOpenConns: 10}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.Migrate()
	require.NoError(t, err)
	return s
}

func TestLedgerAgainstMySQL(t *testing.T) {
	s := setupMySQL(t)
	ctx := context.Background()

	admin := &model.User{Email: "admin@example.com", Password: "hash", Role: model.RoleAdmin}
	require.NoError(t, s.CreateUser(ctx, admin))
	err := s.CreateUser(ctx, &model.User{Email: "admin@example.com", Password: "x", Role: model.RoleUser})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	cat := &model.Category{Name: "Lips", CreatedBy: admin.UserID}
	require.NoError(t, s.CreateCategory(ctx, cat))
	require.NoError(t, s.UpdateCategory(ctx, cat.CategoryID, "Lips"), "unchanged row still counts as found")

	cost := decimal.NewFromInt(600)
	item := &model.Item{
		Name:           "Lipstick",
		OriginalPrice:  &cost,
		RetailPrice:    decimal.NewFromInt(1000),
		WholesalePrice: decimal.NewFromInt(800),
		CategoryID:     cat.CategoryID,
		StockQuantity:  5,
		CreatedBy:      admin.UserID,
	}
	require.NoError(t, s.CreateItem(ctx, item))

	bad := *item
	bad.CategoryID = 999
	assert.Equal(t, apperr.Reference, apperr.KindOf(s.CreateItem(ctx, &bad)))

	items, total, err := s.ListItems(ctx, "LIP", model.Page{Number: 1, Limit: 10}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Nil(t, items[0].OriginalPrice)

	order := &model.Order{
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		CreatedBy:     admin.UserID,
		TotalPrice:    decimal.NewFromInt(2000),
		PaymentMethod: model.PayCash,
		SellMode:      model.SellRetail,
	}
	err = s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.InsertOrderLine(ctx, model.OrderLine{OrderID: order.OrderID, ItemID: item.ItemID, Quantity: 2, Price: decimal.NewFromInt(1000)}); err != nil {
			return err
		}
		ok, err := tx.TakeStock(ctx, item.ItemID, 2)
		require.True(t, ok)
		return err
	})
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx *Tx) error {
		ok, err := tx.TakeStock(ctx, item.ItemID, 4)
		require.NoError(t, err)
		assert.False(t, ok, "only 3 left")
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetItem(ctx, item.ItemID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)

	assert.Equal(t, apperr.Reference, apperr.KindOf(s.DeleteItem(ctx, item.ItemID)))

	report, err := s.SalesByBucket(ctx, model.PeriodMonthly, time.Now().AddDate(0, -1, 0))
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, 1, report[0].OrderCount)

	err = s.InTx(ctx, func(tx *Tx) error {
		ok, err := tx.MarkRefunded(ctx, order.OrderID)
		require.True(t, ok)
		return err
	})
	require.NoError(t, err)
	err = s.InTx(ctx, func(tx *Tx) error {
		ok, err := tx.MarkRefunded(ctx, order.OrderID)
		assert.False(t, ok)
		return err
	})
	require.NoError(t, err)

	report, err = s.SalesByBucket(ctx, model.PeriodMonthly, time.Now().AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Empty(t, report)

	orders, n, err := s.ListOrders(ctx, OrderFilter{Search: "admin@", Page: model.Page{Number: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, orders[0].Lines, 1)
	assert.Equal(t, "Lipstick", orders[0].Lines[0].Name)
}
