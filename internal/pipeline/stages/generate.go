package stages

import (
	"context"
	"fmt"

	"github.com/bartek5186/catalog2dw/internal/catalog"
	"github.com/bartek5186/catalog2dw/internal/pipeline"
	"github.com/bartek5186/catalog2dw/internal/sales"
	"github.com/rs/zerolog"
)

type generate struct {
	log zerolog.Logger
	env pipeline.Env
}

func newGenerate(env pipeline.Env) (pipeline.Stage, error) {
	return &generate{log: env.Log.With().Str("stage", "generate").Logger(), env: env}, nil
}

func (g *generate) Name() string { return "generate" }

// Run synthesizes day files from day_count days ago through today.
func (g *generate) Run(ctx context.Context, ev *pipeline.Event) error {
	path, err := productsPath(ev, g.env)
	if err != nil {
		return err
	}
	products, err := catalog.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read products %s: %w", path, err)
	}

	cfg := g.env.Cfg.Generator()
	cfg.MinTickets = *ev.MinSales
	cfg.MaxTickets = *ev.MaxSales

	rng := g.env.Rand
	if rng == nil {
		rng = sales.NewRand(g.env.Cfg.Sales.Seed)
	}
	gen, err := sales.NewGenerator(g.log, cfg, rng)
	if err != nil {
		return err
	}

	end := g.env.Now()
	start := end.AddDate(0, 0, -*ev.DayCount)
	g.log.Info().Str("products", path).Int("rows", len(products)).
		Time("start", start).Time("end", end).Msg("generating sales")

	paths, err := gen.Interval(ctx, products, start, end)
	if err != nil {
		return err
	}
	ev.SalesTargets = paths
	return nil
}
