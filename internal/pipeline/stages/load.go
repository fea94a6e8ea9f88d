package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/bartek5186/catalog2dw/internal/catalog"
	"github.com/bartek5186/catalog2dw/internal/pipeline"
	"github.com/bartek5186/catalog2dw/internal/sales"
	"github.com/bartek5186/catalog2dw/internal/warehouse"
	"github.com/rs/zerolog"
)

type load struct {
	log zerolog.Logger
	env pipeline.Env
	rec *warehouse.Reconciler
}

func newLoad(env pipeline.Env) (pipeline.Stage, error) {
	if env.DB == nil {
		return nil, errors.New("load stage needs a warehouse connection")
	}
	log := env.Log.With().Str("stage", "load").Logger()
	return &load{log: log, env: env, rec: warehouse.NewReconciler(log, env.DB, env.Cfg.Warehouse)}, nil
}

func (l *load) Name() string { return "load" }

// Run reconciles the product dimensions, then loads every sales file of the
// event, or every file under the sales directory when the event names none.
// Files already in the load ledger are skipped.
func (l *load) Run(ctx context.Context, ev *pipeline.Event) error {
	path, err := productsPath(ev, l.env)
	if err != nil {
		return err
	}
	products, err := catalog.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read products %s: %w", path, err)
	}

	targets := ev.SalesTargets
	if len(targets) == 0 {
		if targets, err = salesFiles(l.env.Cfg.SalesDir()); err != nil {
			return err
		}
	}

	if _, err := l.rec.Reconcile(ctx, products, nil, nil); err != nil {
		return fmt.Errorf("dimensions: %w", err)
	}

	for _, target := range targets {
		batch, err := warehouse.FileBatch(target)
		if err != nil {
			return err
		}
		tickets, err := sales.ReadFile(target)
		if err != nil {
			return fmt.Errorf("read sales %s: %w", target, err)
		}
		res, err := l.rec.Reconcile(ctx, products, tickets, &batch)
		if err != nil {
			return fmt.Errorf("load %s: %w", target, err)
		}
		ev.Loaded += res.Facts
		l.log.Info().Str("file", target).Int("facts", res.Facts).Bool("skipped", res.Skipped).Msg("sales file processed")
	}
	return nil
}
