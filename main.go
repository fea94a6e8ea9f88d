package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	conf "github.com/bartek5186/catalog2dw/internal/config"
	"github.com/bartek5186/catalog2dw/internal/httpapi"
	logs "github.com/bartek5186/catalog2dw/internal/logs"
	"github.com/bartek5186/catalog2dw/internal/pipeline"
	_ "github.com/bartek5186/catalog2dw/internal/pipeline/stages"
	"github.com/bartek5186/catalog2dw/internal/scheduler"
	"github.com/bartek5186/catalog2dw/internal/warehouse"
	"github.com/rs/zerolog"
)

var ver = "1.0.0"

func main() {
	var (
		mode     = flag.String("mode", "run", "run | scrape | generate | load | serve | shell")
		cfgPath  = flag.String("config", "", "config file (default: <user config dir>/catalog2dw/config.json)")
		maxPages = flag.Int("max_pages", 0, "pages per category (0: config)")
		dayCount = flag.Int("day_count", -1, "days of sales back from today, 0 = today only (-1: config)")
		minSales = flag.Int("min_sales", -1, "min tickets per product per day (-1: config)")
		maxSales = flag.Int("max_sales", -1, "max tickets per product per day (-1: config)")
		products = flag.String("products", "", "product snapshot for generate/load (default: latest)")
		salesCSV = flag.String("sales", "", "comma-separated sales files for load (default: all)")
	)
	flag.Parse()

	if *cfgPath == "" {
		*cfgPath = filepath.Join(mustAppDataDir("catalog2dw"), "config.json")
	}
	cfg, firstRun, err := conf.LoadOrCreate(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logs.New(cfg.Log.File, cfg.Log.Console, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log:", err)
		os.Exit(1)
	}
	if firstRun {
		log.Info().Msgf("default configuration written to %s", *cfgPath)
	}

	gdb, err := warehouse.Open(log, cfg.Warehouse)
	if err != nil {
		log.Fatal().Err(err).Msg("warehouse open error")
	}
	if err := warehouse.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("warehouse migrate error")
	}
	sqlDB, _ := gdb.DB()
	defer sqlDB.Close()
	log.Info().Str("driver", cfg.Warehouse.Driver).Msg("warehouse ready")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := pipeline.NewRunner(pipeline.Env{Log: log, Cfg: cfg, DB: gdb})

	ev := &pipeline.Event{MaxPages: *maxPages, ProductsTarget: *products}
	if *dayCount >= 0 {
		ev.DayCount = pipeline.Int(*dayCount)
	}
	if *minSales >= 0 {
		ev.MinSales = pipeline.Int(*minSales)
	}
	if *maxSales >= 0 {
		ev.MaxSales = pipeline.Int(*maxSales)
	}
	if *salesCSV != "" {
		ev.SalesTargets = strings.Split(*salesCSV, ",")
	}

	switch *mode {
	case "run":
		err = runner.Run(ctx, ev, pipeline.Full...)
	case "scrape", "generate", "load":
		err = runner.Run(ctx, ev, *mode)
	case "serve":
		err = serve(ctx, log, cfg, runner)
	case "shell":
		shell(ctx, log, cfg, *cfgPath, runner)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Error().Err(err).Str("mode", *mode).Msg("catalog2dw failed")
		cancel()
		os.Exit(1)
	}
	if *mode != "serve" && *mode != "shell" {
		log.Info().Str("run_id", ev.RunID).Str("products_target", ev.ProductsTarget).
			Strs("sales_targets", ev.SalesTargets).Int("loaded", ev.Loaded).Msg("done")
	}
}

// serve runs the HTTP trigger, and the scheduler when schedule.auto_start is set,
// until ctx is cancelled.
func serve(ctx context.Context, log zerolog.Logger, cfg *conf.Config, runner *pipeline.Runner) error {
	s := scheduler.New(log.With().Str("component", "scheduler").Logger(), runner, cfg.Schedule.Interval)
	if cfg.Schedule.AutoStart {
		if err := s.Start(ctx); err != nil {
			return err
		}
		defer s.Stop()
	}

	h := httpapi.NewHandler(log, runner, s, ver)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.SetupRouter(cfg.Server.GinMode, log, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msgf("catalog2dw %s listening", ver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// shell is an interactive console for the scheduler.
func shell(ctx context.Context, log zerolog.Logger, cfg *conf.Config, cfgPath string, runner *pipeline.Runner) {
	s := scheduler.New(log.With().Str("component", "scheduler").Logger(), runner, cfg.Schedule.Interval)
	if cfg.Schedule.AutoStart {
		if err := s.Start(ctx); err != nil {
			log.Error().Msgf("AutoStart failed: %v", err)
		}
	}
	defer s.Stop()

	fmt.Println("catalog2dw shell", ver)
	fmt.Println("Commands: start | stop | run | reload | status | paths | quit")
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		switch cmd := strings.TrimSpace(strings.ToLower(line)); cmd {
		case "start":
			if err := s.Start(ctx); err != nil {
				fmt.Println("Start error:", err)
				continue
			}
			fmt.Println("Scheduler started")
		case "stop":
			s.Stop()
			fmt.Println("Scheduler stopped")
		case "run":
			ev := &pipeline.Event{}
			if err := runner.Run(ctx, ev, pipeline.Full...); err != nil {
				fmt.Println("Run failed:", err)
				continue
			}
			fmt.Printf("Run %s loaded %d facts\n", ev.RunID, ev.Loaded)
		case "reload":
			newCfg, _, err := conf.LoadOrCreate(cfgPath)
			if err != nil {
				fmt.Println("Reload error:", err)
				continue
			}
			if err := s.UpdateInterval(ctx, newCfg.Schedule.Interval); err != nil {
				fmt.Println("Reload error:", err)
				continue
			}
			fmt.Println("Schedule interval reloaded")
		case "status":
			st := s.Status()
			fmt.Printf("Running: %v, interval: %s, ticks: %d, last error: %q\n", st.Running, st.Interval, st.Ticks, st.LastErr)
		case "paths":
			fmt.Println("Config:", cfgPath)
			fmt.Println("Logs:", cfg.Log.File)
			fmt.Println("Data:", cfg.Storage.DataDir)
		case "quit", "exit":
			return
		case "":
		default:
			fmt.Println("Unknown command. Use: start | stop | run | reload | status | paths | quit")
		}
	}
}

func mustAppDataDir(name string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}
