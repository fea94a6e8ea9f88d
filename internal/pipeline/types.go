// internal/pipeline/types.go
package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/bartek5186/catalog2dw/internal/collector"
	conf "github.com/bartek5186/catalog2dw/internal/config"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Stage is one step of the ETL. Run reads its inputs from the event and
// records its outputs there for the next stage.
type Stage interface {
	Name() string
	Run(ctx context.Context, ev *Event) error
}

type Factory func(env Env) (Stage, error)

// Env carries the shared dependencies a stage is built from.
type Env struct {
	Log  zerolog.Logger
	Cfg  *conf.Config
	DB   *gorm.DB
	Now  func() time.Time
	Rand *rand.Rand       // nil: seeded from sales.seed
	Src  collector.Source // nil: live catalog API
}

// Event is the parameter and artifact record passed along a run. Nil or zero
// parameters fall back to configuration in Normalize.
type Event struct {
	RunID          string   `json:"run_id"`
	MaxPages       int      `json:"max_pages,omitempty"`
	DayCount       *int     `json:"day_count,omitempty"`
	MinSales       *int     `json:"min_sales,omitempty"`
	MaxSales       *int     `json:"max_sales,omitempty"`
	ProductsTarget string   `json:"products_target,omitempty"`
	SalesTargets   []string `json:"sales_targets,omitempty"`
	Loaded         int      `json:"loaded"`
}

func (ev *Event) Normalize(cfg *conf.Config) {
	if ev.MaxPages <= 0 {
		ev.MaxPages = cfg.Scraper.MaxPages
	}
	if ev.DayCount == nil {
		ev.DayCount = Int(cfg.Sales.DayCount)
	}
	if ev.MinSales == nil {
		ev.MinSales = Int(cfg.Sales.MinTickets)
	}
	if ev.MaxSales == nil {
		ev.MaxSales = Int(cfg.Sales.MaxTickets)
	}
}

// Int returns a pointer to v, for building events by hand.
func Int(v int) *int { return &v }
