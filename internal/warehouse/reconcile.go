package warehouse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bartek5186/catalog2dw/internal/catalog"
	"github.com/bartek5186/catalog2dw/internal/sales"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	ErrUnresolvedCategory = errors.New("warehouse: unresolved category")
	ErrUnresolvedProduct  = errors.New("warehouse: unresolved product")
)

const defaultBatchSize = 500

// Batch identifies one sales file in the load ledger.
type Batch struct {
	Source string
	SHA256 string
}

// FileBatch hashes the file at path.
func FileBatch(path string) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Batch{}, err
	}
	return Batch{Source: path, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

type Result struct {
	NewCategories int
	NewProducts   int
	NewDates      int
	Facts         int
	Dropped       int  // products and tickets left out by the inner join
	Skipped       bool // batch already in the ledger
}

type Reconciler struct {
	log       zerolog.Logger
	db        *gorm.DB
	policy    JoinPolicy
	batchSize int
}

func NewReconciler(log zerolog.Logger, gdb *gorm.DB, cfg Config) *Reconciler {
	r := &Reconciler{log: log, db: gdb, policy: cfg.JoinPolicy, batchSize: cfg.BatchSize}
	if r.policy == "" {
		r.policy = JoinInner
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	return r
}

type ymd struct{ y, m, d int }

// Reconcile inserts the dimension rows missing for products and tickets, then
// appends one fact per ticket. Everything runs in one transaction; a batch
// already present in the ledger is skipped without touching the warehouse.
func (r *Reconciler) Reconcile(ctx context.Context, products []catalog.Variant, tickets []sales.Ticket, batch *Batch) (Result, error) {
	var res Result

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return res, tx.Error
	}
	defer tx.Rollback()

	if batch != nil {
		var seen int64
		if err := tx.Model(&LoadBatch{}).Where("sha256 = ?", batch.SHA256).Count(&seen).Error; err != nil {
			return res, fmt.Errorf("ledger lookup: %w", err)
		}
		if seen > 0 {
			r.log.Info().Str("source", batch.Source).Str("sha256", batch.SHA256).Msg("batch already loaded, skipping")
			return Result{Skipped: true}, nil
		}
	}

	categoryIDs, err := r.categories(tx, products, &res)
	if err != nil {
		return res, err
	}

	productOf, err := r.products(tx, products, categoryIDs, &res)
	if err != nil {
		return res, err
	}

	dateIDs, err := r.dates(tx, tickets, &res)
	if err != nil {
		return res, err
	}

	facts := make([]FactSales, 0, len(tickets))
	for _, t := range tickets {
		pid, ok := productOf[t.UID]
		if !ok {
			if r.policy == JoinStrict {
				return res, fmt.Errorf("%w: ticket %d uid %q", ErrUnresolvedProduct, t.TicketID, t.UID)
			}
			res.Dropped++
			continue
		}
		day, _ := t.Day() // validated in dates
		facts = append(facts, FactSales{
			TicketID:  t.TicketID,
			ProductID: pid,
			Sales:     t.Sales,
			Quantity:  t.Quantity,
			DateID:    dateIDs[ymd{day.Year(), int(day.Month()), day.Day()}],
		})
	}
	if len(facts) > 0 {
		if err := tx.CreateInBatches(&facts, r.batchSize).Error; err != nil {
			return res, fmt.Errorf("insert facts: %w", err)
		}
	}
	res.Facts = len(facts)

	if batch != nil {
		if err := tx.Create(&LoadBatch{Source: batch.Source, SHA256: batch.SHA256, Rows: res.Facts}).Error; err != nil {
			return res, fmt.Errorf("ledger insert: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		r.log.Error().Err(err).Msg("tx commit failed")
		return res, err
	}

	r.log.Info().
		Int("new_categories", res.NewCategories).
		Int("new_products", res.NewProducts).
		Int("new_dates", res.NewDates).
		Int("facts", res.Facts).
		Int("dropped", res.Dropped).
		Msg("warehouse reconciled")
	return res, nil
}

// categories inserts the scraped category names not yet in DIM_CATEGORIES and
// returns the full name to id map read back after the insert.
func (r *Reconciler) categories(tx *gorm.DB, products []catalog.Variant, res *Result) (map[string]uint, error) {
	var existing []string
	if err := tx.Model(&DimCategory{}).Pluck("category_name", &existing).Error; err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, name := range existing {
		known[name] = true
	}

	var fresh []DimCategory
	for _, p := range products {
		if p.Category == "" || known[p.Category] {
			continue
		}
		known[p.Category] = true
		fresh = append(fresh, DimCategory{CategoryName: p.Category})
	}
	if len(fresh) > 0 {
		if err := tx.Create(&fresh).Error; err != nil {
			return nil, fmt.Errorf("insert categories: %w", err)
		}
		names := make([]string, len(fresh))
		for i, c := range fresh {
			names[i] = c.CategoryName
		}
		r.log.Info().Strs("categories", names).Msg("new categories")
	}
	res.NewCategories = len(fresh)

	var all []DimCategory
	if err := tx.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("re-read categories: %w", err)
	}
	ids := make(map[string]uint, len(all))
	for _, c := range all {
		ids[c.CategoryName] = c.ID
	}
	return ids, nil
}

// products joins variants to their category, inserts product ids missing from
// DIM_PRODUCTS (first occurrence wins) and returns UID to product id for every
// variant that resolved.
func (r *Reconciler) products(tx *gorm.DB, products []catalog.Variant, categoryIDs map[string]uint, res *Result) (map[string]string, error) {
	productOf := make(map[string]string, len(products))
	candidates := map[string]bool{}
	var order []DimProduct

	for _, p := range products {
		cid, ok := categoryIDs[p.Category]
		if !ok {
			if r.policy == JoinStrict {
				return nil, fmt.Errorf("%w: %q for product %s", ErrUnresolvedCategory, p.Category, p.ProductID)
			}
			r.log.Warn().Str("uid", p.UID).Str("category", p.Category).Msg("category not resolved, product dropped")
			res.Dropped++
			continue
		}
		productOf[p.UID] = p.ProductID
		if candidates[p.ProductID] {
			continue
		}
		candidates[p.ProductID] = true
		order = append(order, DimProduct{ID: p.ProductID, CategoryID: cid, Title: p.Title, Subtitle: p.Subtitle})
	}

	present := map[string]bool{}
	for start := 0; start < len(order); start += r.batchSize {
		end := min(start+r.batchSize, len(order))
		ids := make([]string, 0, end-start)
		for _, p := range order[start:end] {
			ids = append(ids, p.ID)
		}
		var found []string
		if err := tx.Model(&DimProduct{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
			return nil, fmt.Errorf("read products: %w", err)
		}
		for _, id := range found {
			present[id] = true
		}
	}

	fresh := make([]DimProduct, 0, len(order))
	for _, p := range order {
		if !present[p.ID] {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) > 0 {
		if err := tx.CreateInBatches(&fresh, r.batchSize).Error; err != nil {
			return nil, fmt.Errorf("insert products: %w", err)
		}
	}
	res.NewProducts = len(fresh)
	return productOf, nil
}

// dates inserts one DIM_TIME row per distinct ticket date not yet present.
func (r *Reconciler) dates(tx *gorm.DB, tickets []sales.Ticket, res *Result) (map[ymd]uint, error) {
	ids := map[ymd]uint{}
	for _, t := range tickets {
		day, err := t.Day()
		if err != nil {
			return nil, fmt.Errorf("ticket %d date %q: %w", t.TicketID, t.Date, err)
		}
		key := ymd{day.Year(), int(day.Month()), day.Day()}
		if _, ok := ids[key]; ok {
			continue
		}

		row := DimTime{}
		err = tx.Where("year = ? AND month = ? AND day = ?", key.y, key.m, key.d).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = DimTime{Year: key.y, Month: key.m, Day: key.d}
			if err := tx.Create(&row).Error; err != nil {
				return nil, fmt.Errorf("insert time %s: %w", day.Format(time.DateOnly), err)
			}
			res.NewDates++
		case err != nil:
			return nil, fmt.Errorf("read time: %w", err)
		}
		ids[key] = row.ID
	}
	return ids, nil
}
