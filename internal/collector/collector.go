// internal/collector/collector.go
package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bartek5186/catalog2dw/internal/catalog"
	"github.com/bartek5186/catalog2dw/internal/integrations/nike"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const footwear = "FOOTWEAR"

// DefaultCategories are the search terms scraped when no override is configured.
var DefaultCategories = []string{
	"cycling",
	"jordan",
	"running",
	"golf",
	"training",
	"tennis",
	"football",
	"basketball",
	"boot",
	"baseball",
	"soccer",
	"hiit",
	"volleyball",
	"lifestyle",
}

// Source is the catalog API as seen by the collector.
type Source interface {
	PageSize() int
	SearchProducts(ctx context.Context, category string, anchor int) ([]nike.Product, error)
	ProductDetails(ctx context.Context, pageURL string) (nike.Details, error)
	ProductURL(p nike.Product) string
}

type Config struct {
	Dir               string `json:"dir"`         // e.g. data/products
	FilePrefix        string `json:"file_prefix"` // e.g. nike
	DetailConcurrency int    `json:"detail_concurrency"`
}

type Collector struct {
	log zerolog.Logger
	src Source
	cfg Config
	now func() time.Time
}

// Result of one collector run.
type Result struct {
	Rows    []catalog.Variant // deduplicated
	Path    string            // final snapshot
	Scraped int               // rows before deduplication
}

func New(log zerolog.Logger, src Source, cfg Config, now func() time.Time) *Collector {
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = "nike"
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Collector{log: log, src: src, cfg: cfg, now: now}
}

// Collect scrapes every category in order, snapshotting each one, then writes the
// deduplicated table. A failed listing request ends its category; a failed
// product page leaves description and rating empty. Only filesystem errors and
// context cancellation abort the run.
func (c *Collector) Collect(ctx context.Context, categories []string, maxPages int, fetchDescription bool) (Result, error) {
	prefix := fmt.Sprintf("%s_%s", c.cfg.FilePrefix, strings.ToUpper(c.now().Format("02Jan2006_1504")))
	tmpDir := filepath.Join(c.cfg.Dir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return Result{}, err
	}

	b := catalog.NewBuilder()
	pageSize := c.src.PageSize()

	for i, category := range categories {
		log := c.log.With().Str("category", category).Logger()

		for page := 0; page < maxPages; page++ {
			anchor := page * pageSize
			products, err := c.src.SearchProducts(ctx, category, anchor)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			if err != nil {
				log.Error().Err(err).Int("anchor", anchor).Msg("listing failed, ending category")
				break
			}
			if len(products) == 0 {
				log.Debug().Int("pages", page).Msg("end of results")
				break
			}

			rows, err := c.expandPage(ctx, category, products, fetchDescription)
			if err != nil {
				return Result{}, err
			}
			b.Add(category, rows...)
			log.Debug().Int("anchor", anchor).Int("items", len(products)).Int("rows", len(rows)).Msg("page collected")
		}

		label := fmt.Sprintf("%s_%d_of_%d", category, i+1, len(categories))
		snap := filepath.Join(tmpDir, fmt.Sprintf("%s_%s.csv", prefix, label))
		if err := catalog.WriteFile(snap, catalog.Dedupe(b.Category(category))); err != nil {
			return Result{}, fmt.Errorf("intermediate snapshot: %w", err)
		}
		log.Info().Str("file", snap).Int("rows", len(b.Category(category))).Msg("intermediate file saved")
	}

	rows := catalog.Dedupe(b.All())
	final := filepath.Join(c.cfg.Dir, prefix+".csv")
	if err := catalog.WriteFile(final, rows); err != nil {
		return Result{}, fmt.Errorf("final snapshot: %w", err)
	}

	c.log.Info().
		Int("scraped_rows", b.Len()).
		Int("unique_rows", len(rows)).
		Str("file", final).
		Msg("scraping finished")

	if err := os.RemoveAll(tmpDir); err != nil {
		c.log.Warn().Err(err).Str("dir", tmpDir).Msg("could not remove intermediate files")
	}

	return Result{Rows: rows, Path: final, Scraped: b.Len()}, nil
}

// expandPage keeps footwear items, optionally fetches their product pages and
// turns every colorway into a row. Page fetches run with bounded concurrency;
// rows keep feed order.
func (c *Collector) expandPage(ctx context.Context, category string, products []nike.Product, fetchDescription bool) ([]catalog.Variant, error) {
	items := make([]nike.Product, 0, len(products))
	for _, p := range products {
		if p.ProductType == footwear {
			items = append(items, p)
		}
	}

	details := make([]nike.Details, len(items))
	urls := make([]string, len(items))
	for j, p := range items {
		urls[j] = c.src.ProductURL(p)
	}

	if fetchDescription {
		var g errgroup.Group
		g.SetLimit(c.cfg.DetailConcurrency)
		for j := range items {
			g.Go(func() error {
				d, err := c.src.ProductDetails(ctx, urls[j])
				if err != nil {
					c.log.Warn().Err(err).Str("url", urls[j]).Msg("product page unavailable")
					return nil
				}
				details[j] = d
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var rows []catalog.Variant
	for j, p := range items {
		rows = append(rows, expand(category, p, details[j], urls[j])...)
	}
	return rows, nil
}

// expand merges product-level and colorway-level fields into one row per colorway.
func expand(category string, p nike.Product, d nike.Details, prodURL string) []catalog.Variant {
	rows := make([]catalog.Variant, 0, len(p.Colorways))
	for k, cw := range p.Colorways {
		rows = append(rows, catalog.Variant{
			UID:         catalog.MakeUID(p.CloudProductID, cw.CloudProductID),
			CloudProdID: p.CloudProductID,
			ProductID:   p.ID,
			ShortID:     catalog.ShortID(p.ID),
			ColorNum:    k + 1,

			Title:    p.Title,
			Subtitle: p.Subtitle,
			Category: category,
			Type:     p.ProductType,

			Currency:     p.Price.Currency,
			FullPrice:    p.Price.FullPrice,
			CurrentPrice: p.Price.CurrentPrice,
			Sale:         p.Price.Discounted,
			TopColor:     p.ColorDescription,
			Channel:      p.SalesChannel.String(),

			ShortDescription: d.Description,
			Rating:           d.Rating,

			Customizable:    p.Customizable,
			ExtendedSizing:  p.HasExtendedSizing,
			InStock:         p.InStock,
			ComingSoon:      p.IsComingSoon,
			BestSeller:      p.IsBestSeller,
			Excluded:        p.IsExcluded,
			GiftCard:        p.IsGiftCard,
			Jersey:          p.IsJersey,
			Launch:          p.IsLaunch,
			MemberExclusive: p.IsMemberExclusive,
			NBA:             p.IsNBA,
			NFL:             p.IsNFL,
			Sustainable:     p.IsSustainable,
			Label:           p.Label,
			PrebuildID:      p.PrebuildID,
			ProdURL:         prodURL,

			ColorID:              cw.CloudProductID,
			ColorDescription:     cw.ColorDescription,
			ColorFullPrice:       cw.Price.FullPrice,
			ColorCurrentPrice:    cw.Price.CurrentPrice,
			ColorDiscount:        cw.Price.Discounted,
			ColorBestSeller:      cw.IsBestSeller,
			ColorInStock:         cw.InStock,
			ColorMemberExclusive: cw.IsMemberExclusive,
			ColorNew:             cw.IsNew,
			ColorLabel:           cw.Label,
			ColorImageURL:        cw.Images.PortraitURL,
		})
	}
	return rows
}
