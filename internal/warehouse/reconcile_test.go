package warehouse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bartek5186/catalog2dw/internal/catalog"
	"github.com/bartek5186/catalog2dw/internal/money"
	"github.com/bartek5186/catalog2dw/internal/sales"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := Open(zerolog.Nop(), Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "dw.db")})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func variant(uid, productID, category string) catalog.Variant {
	return catalog.Variant{
		UID:          uid,
		ProductID:    productID,
		Category:     category,
		Title:        "Title " + productID,
		Subtitle:     "Sub " + productID,
		Currency:     "USD",
		CurrentPrice: money.MustParse("120.97"),
	}
}

func ticket(id int64, uid, date string, qty int) sales.Ticket {
	return sales.Ticket{
		TicketID: id,
		UID:      uid,
		Currency: "USD",
		Sales:    money.MustParse("120.97").MulInt(int64(qty)),
		Quantity: qty,
		Date:     date,
	}
}

func count(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func TestReconcile_EndToEndSingleProductTwoColorways(t *testing.T) {
	gdb := openTestDB(t)
	r := NewReconciler(zerolog.Nop(), gdb, Config{})

	products := []catalog.Variant{
		variant("cpX-c1", "X", "running"),
		variant("cpX-c2", "X", "running"),
	}
	tickets := []sales.Ticket{
		ticket(202403050000001, "cpX-c1", "2024-03-05", 2),
		ticket(202403050000002, "cpX-c2", "2024-03-05", 5),
	}

	res, err := r.Reconcile(context.Background(), products, tickets, nil)

	require.NoError(t, err)
	assert.Equal(t, Result{NewCategories: 1, NewProducts: 1, NewDates: 1, Facts: 2}, res)
	assert.EqualValues(t, 1, count(t, gdb, &DimCategory{}))
	assert.EqualValues(t, 1, count(t, gdb, &DimProduct{}))
	assert.EqualValues(t, 1, count(t, gdb, &DimTime{}))
	assert.EqualValues(t, 2, count(t, gdb, &FactSales{}))

	var day DimTime
	require.NoError(t, gdb.First(&day).Error)
	assert.Equal(t, DimTime{ID: day.ID, Year: 2024, Month: 3, Day: 5}, day)

	var product DimProduct
	require.NoError(t, gdb.First(&product, "id = ?", "X").Error)
	var category DimCategory
	require.NoError(t, gdb.First(&category).Error)
	assert.Equal(t, category.ID, product.CategoryID)
	assert.Equal(t, "Title X", product.Title)

	var facts []FactSales
	require.NoError(t, gdb.Order("ticket_id").Find(&facts).Error)
	require.Len(t, facts, 2)
	assert.Equal(t, "X", facts[0].ProductID)
	assert.Equal(t, day.ID, facts[0].DateID)
	assert.Equal(t, 0, facts[1].Sales.Cmp(money.MustParse("604.85")), facts[1].Sales.String())
}

func TestReconcile_InsertsOnlyNewCategories(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, gdb.Create(&[]DimCategory{{CategoryName: "A"}, {CategoryName: "B"}}).Error)
	r := NewReconciler(zerolog.Nop(), gdb, Config{})

	res, err := r.Reconcile(context.Background(), []catalog.Variant{
		variant("u1", "p1", "B"),
		variant("u2", "p2", "C"),
		variant("u3", "p3", "C"),
	}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCategories)

	var names []string
	require.NoError(t, gdb.Model(&DimCategory{}).Order("id").Pluck("category_name", &names).Error)
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestReconcile_ExistingProductNotDuplicated(t *testing.T) {
	gdb := openTestDB(t)
	r := NewReconciler(zerolog.Nop(), gdb, Config{})
	products := []catalog.Variant{variant("u1", "p1", "running")}

	_, err := r.Reconcile(context.Background(), products, nil, nil)
	require.NoError(t, err)

	renamed := variant("u1", "p1", "running")
	renamed.Title = "Renamed"
	res, err := r.Reconcile(context.Background(), []catalog.Variant{renamed}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, res.NewProducts)
	assert.Equal(t, 0, res.NewCategories)
	assert.EqualValues(t, 1, count(t, gdb, &DimProduct{}))

	var p DimProduct
	require.NoError(t, gdb.First(&p, "id = ?", "p1").Error)
	assert.Equal(t, "Title p1", p.Title, "dimension rows are never updated")
}

func TestReconcile_OneTimeRowPerDistinctDate(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, gdb.Create(&DimTime{Year: 2024, Month: 1, Day: 1}).Error)
	r := NewReconciler(zerolog.Nop(), gdb, Config{})

	res, err := r.Reconcile(context.Background(), []catalog.Variant{variant("u1", "p1", "golf")}, []sales.Ticket{
		ticket(1, "u1", "2024-01-01", 1),
		ticket(2, "u1", "2024-01-02", 1),
		ticket(3, "u1", "2024-01-02", 1),
		ticket(4, "u1", "2024-01-03", 1),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, res.NewDates)
	assert.Equal(t, 4, res.Facts)
	assert.EqualValues(t, 3, count(t, gdb, &DimTime{}))

	var dateIDs []uint
	require.NoError(t, gdb.Model(&FactSales{}).Order("ticket_id").Pluck("date_id", &dateIDs).Error)
	assert.Equal(t, dateIDs[1], dateIDs[2])
	assert.NotEqual(t, dateIDs[0], dateIDs[1])
}

func TestReconcile_InnerJoinDropsUnresolved(t *testing.T) {
	gdb := openTestDB(t)
	r := NewReconciler(zerolog.Nop(), gdb, Config{JoinPolicy: JoinInner})

	res, err := r.Reconcile(context.Background(),
		[]catalog.Variant{variant("u1", "p1", "golf"), variant("u2", "p2", "")},
		[]sales.Ticket{
			ticket(1, "u1", "2024-01-01", 1),
			ticket(2, "u2", "2024-01-01", 1),
			ticket(3, "unknown", "2024-01-01", 1),
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.NewProducts)
	assert.Equal(t, 1, res.Facts)
	assert.Equal(t, 3, res.Dropped)
}

func TestReconcile_StrictJoinRollsBack(t *testing.T) {
	gdb := openTestDB(t)
	r := NewReconciler(zerolog.Nop(), gdb, Config{JoinPolicy: JoinStrict})

	_, err := r.Reconcile(context.Background(),
		[]catalog.Variant{variant("u1", "p1", "golf")},
		[]sales.Ticket{
			ticket(1, "u1", "2024-01-01", 1),
			ticket(2, "missing", "2024-01-01", 1),
		}, nil)

	require.ErrorIs(t, err, ErrUnresolvedProduct)
	assert.EqualValues(t, 0, count(t, gdb, &DimCategory{}))
	assert.EqualValues(t, 0, count(t, gdb, &DimProduct{}))
	assert.EqualValues(t, 0, count(t, gdb, &DimTime{}))
	assert.EqualValues(t, 0, count(t, gdb, &FactSales{}))

	_, err = r.Reconcile(context.Background(), []catalog.Variant{variant("u1", "p1", "")}, nil, nil)
	assert.ErrorIs(t, err, ErrUnresolvedCategory)
}

func TestReconcile_BadTicketDateRollsBack(t *testing.T) {
	gdb := openTestDB(t)
	r := NewReconciler(zerolog.Nop(), gdb, Config{})

	_, err := r.Reconcile(context.Background(),
		[]catalog.Variant{variant("u1", "p1", "golf")},
		[]sales.Ticket{ticket(1, "u1", "05/03/2024", 1)}, nil)

	require.Error(t, err)
	assert.EqualValues(t, 0, count(t, gdb, &DimCategory{}))
}

func TestReconcile_LedgerSkipsRepeatedBatch(t *testing.T) {
	gdb := openTestDB(t)
	r := NewReconciler(zerolog.Nop(), gdb, Config{})

	path := filepath.Join(t.TempDir(), "nike_sales_2024_01_01.csv")
	tickets := []sales.Ticket{ticket(1, "u1", "2024-01-01", 3)}
	require.NoError(t, sales.WriteFile(path, tickets))
	batch, err := FileBatch(path)
	require.NoError(t, err)
	assert.Len(t, batch.SHA256, 64)

	products := []catalog.Variant{variant("u1", "p1", "golf")}
	first, err := r.Reconcile(context.Background(), products, tickets, &batch)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Facts)

	second, err := r.Reconcile(context.Background(), products, tickets, &batch)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.EqualValues(t, 1, count(t, gdb, &FactSales{}))

	var ledger LoadBatch
	require.NoError(t, gdb.First(&ledger).Error)
	assert.Equal(t, path, ledger.Source)
	assert.Equal(t, 1, ledger.Rows)
}

func TestReconcile_SmallBatchSize(t *testing.T) {
	gdb := openTestDB(t)
	r := NewReconciler(zerolog.Nop(), gdb, Config{BatchSize: 2})

	var products []catalog.Variant
	var tickets []sales.Ticket
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		products = append(products, variant("u"+id, id, "tennis"))
		tickets = append(tickets, ticket(int64(i), "u"+id, "2024-06-01", 1))
	}

	res, err := r.Reconcile(context.Background(), products, tickets, nil)

	require.NoError(t, err)
	assert.Equal(t, 5, res.NewProducts)
	assert.Equal(t, 5, res.Facts)

	res, err = r.Reconcile(context.Background(), products, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewProducts)
}

func TestOpen_RejectsBadConfig(t *testing.T) {
	_, err := Open(zerolog.Nop(), Config{Driver: "oracle", DSN: "x"})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = Open(zerolog.Nop(), Config{Driver: "postgres"})
	assert.Error(t, err)

	_, err = Open(zerolog.Nop(), Config{Driver: "sqlite", DSN: "x.db", JoinPolicy: "outer"})
	assert.Error(t, err)
}

func TestFileBatch_MissingFile(t *testing.T) {
	_, err := FileBatch(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
