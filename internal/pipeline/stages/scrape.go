package stages

import (
	"context"

	"github.com/bartek5186/catalog2dw/internal/collector"
	"github.com/bartek5186/catalog2dw/internal/integrations/nike"
	"github.com/bartek5186/catalog2dw/internal/pipeline"
	"github.com/rs/zerolog"
)

type scrape struct {
	log       zerolog.Logger
	env       pipeline.Env
	collector *collector.Collector
}

func newScrape(env pipeline.Env) (pipeline.Stage, error) {
	log := env.Log.With().Str("stage", "scrape").Logger()
	src := env.Src
	if src == nil {
		src = nike.NewClient(log.With().Str("component", "nike").Logger(), env.Cfg.Scraper.API)
	}
	return &scrape{
		log:       log,
		env:       env,
		collector: collector.New(log, src, env.Cfg.Collector(), env.Now),
	}, nil
}

func (s *scrape) Name() string { return "scrape" }

func (s *scrape) Run(ctx context.Context, ev *pipeline.Event) error {
	res, err := s.collector.Collect(ctx, s.env.Cfg.CategoryList(), ev.MaxPages, s.env.Cfg.Scraper.FetchDescription)
	if err != nil {
		return err
	}
	ev.ProductsTarget = res.Path
	return nil
}
