// Package sales synthesizes daily sales tickets against a scraped catalog.
package sales

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bartek5186/catalog2dw/internal/catalog"
	"github.com/rs/zerolog"
)

const (
	minQty = 1
	maxQty = 5

	minSuffix    = 1
	maxSuffix    = 1_000_000
	suffixDigits = 10_000_000 // ticket id = YYYYMMDD followed by 7 digits
)

var ErrInvalidConfig = errors.New("sales: invalid generator config")

type Config struct {
	Dir        string `json:"dir"`         // e.g. data/sales
	FilePrefix string `json:"file_prefix"` // e.g. nike_sales
	MinTickets int    `json:"min_tickets"` // per product per day, may be 0
	MaxTickets int    `json:"max_tickets"`
	// ChanceDenominator n: a product sells on a given day when a draw from
	// [1, n] equals n, i.e. with probability 1/n. n = 1 always sells.
	ChanceDenominator int `json:"chance_denominator"`
}

func (c Config) Validate() error {
	switch {
	case c.MinTickets < 0:
		return fmt.Errorf("%w: min tickets %d < 0", ErrInvalidConfig, c.MinTickets)
	case c.MaxTickets < 1:
		return fmt.Errorf("%w: max tickets must be at least 1", ErrInvalidConfig)
	case c.MaxTickets < c.MinTickets:
		return fmt.Errorf("%w: max tickets %d < min tickets %d", ErrInvalidConfig, c.MaxTickets, c.MinTickets)
	case c.ChanceDenominator < 1:
		return fmt.Errorf("%w: chance denominator must be at least 1", ErrInvalidConfig)
	}
	return nil
}

type Generator struct {
	log zerolog.Logger
	cfg Config
	rng *rand.Rand
}

// NewGenerator validates cfg. A nil rng is seeded from the clock.
func NewGenerator(log zerolog.Logger, cfg Config, rng *rand.Rand) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = "nike_sales"
	}
	if rng == nil {
		rng = NewRand(0)
	}
	return &Generator{log: log, cfg: cfg, rng: rng}, nil
}

// NewRand returns a PCG source for seed, or a clock-seeded one when seed is 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// between draws uniformly from [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

// Day generates the tickets of one calendar day.
func (g *Generator) Day(day time.Time, products []catalog.Variant) []Ticket {
	date := day.Format(DateLayout)
	dateKey, _ := strconv.ParseInt(day.Format("20060102"), 10, 64)

	var out []Ticket
	for _, p := range products {
		if g.between(1, g.cfg.ChanceDenominator) != g.cfg.ChanceDenominator {
			continue
		}
		n := g.between(g.cfg.MinTickets, g.cfg.MaxTickets)
		for range n {
			qty := g.between(minQty, maxQty)
			out = append(out, Ticket{
				TicketID: dateKey*suffixDigits + int64(g.between(minSuffix, maxSuffix)),
				UID:      p.UID,
				Currency: p.Currency,
				Sales:    p.CurrentPrice.MulInt(int64(qty)),
				Quantity: qty,
				Date:     date,
			})
		}
	}
	return out
}

// Interval writes one file per day from start to end inclusive (dates only,
// times ignored) and returns the written paths in date order.
func (g *Generator) Interval(ctx context.Context, products []catalog.Variant, start, end time.Time) ([]string, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidConfig, end.Format(DateLayout), start.Format(DateLayout))
	}

	var paths []string
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		tickets := g.Day(day, products)
		path := g.Path(day)
		if err := WriteFile(path, tickets); err != nil {
			return paths, err
		}
		g.log.Info().Str("file", path).Int("tickets", len(tickets)).Msg("sales day written")
		paths = append(paths, path)
	}
	return paths, nil
}

// Path is <dir>/YYYY/MM/DD/<prefix>_YYYY_MM_DD.csv.
func (g *Generator) Path(day time.Time) string {
	return filepath.Join(
		g.cfg.Dir,
		day.Format("2006"), day.Format("01"), day.Format("02"),
		fmt.Sprintf("%s_%s.csv", g.cfg.FilePrefix, day.Format("2006_01_02")),
	)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
