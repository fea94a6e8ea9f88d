// internal/config/config.go
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bartek5186/catalog2dw/internal/collector"
	"github.com/bartek5186/catalog2dw/internal/integrations/nike"
	"github.com/bartek5186/catalog2dw/internal/sales"
	"github.com/bartek5186/catalog2dw/internal/warehouse"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const EnvPrefix = "CATALOG2DW"

// Config is the application configuration, stored as config.json in the app
// directory and overridable with CATALOG2DW_* variables (CATALOG2DW_SALES_MAX_TICKETS).
type Config struct {
	Scraper   ScraperConfig    `json:"scraper"`
	Sales     SalesConfig      `json:"sales"`
	Storage   StorageConfig    `json:"storage"`
	Warehouse warehouse.Config `json:"warehouse"`
	Schedule  ScheduleConfig   `json:"schedule"`
	Server    ServerConfig     `json:"server"`
	Log       LogConfig        `json:"log"`
}

type ScraperConfig struct {
	API               nike.Config `json:"api"`
	Categories        []string    `json:"categories"`
	SingleCategory    string      `json:"single_category"` // overrides categories when set
	MaxPages          int         `json:"max_pages"`
	FetchDescription  bool        `json:"fetch_description"`
	DetailConcurrency int         `json:"detail_concurrency"`
	FilePrefix        string      `json:"file_prefix"`
}

type SalesConfig struct {
	MinTickets        int    `json:"min_tickets"`
	MaxTickets        int    `json:"max_tickets"`
	ChanceDenominator int    `json:"chance_denominator"`
	DayCount          int    `json:"day_count"` // days back from today, 0 = today only
	Seed              uint64 `json:"seed"`      // 0 = clock
	FilePrefix        string `json:"file_prefix"`
}

type StorageConfig struct {
	DataDir string `json:"data_dir"` // products/ and sales/ live below
}

type ScheduleConfig struct {
	AutoStart bool          `json:"auto_start"`
	Interval  time.Duration `json:"interval"`
}

type ServerConfig struct {
	Addr    string `json:"addr"`
	GinMode string `json:"gin_mode"`
}

type LogConfig struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
	File    string `json:"file"`
}

func (c *Config) ProductsDir() string { return filepath.Join(c.Storage.DataDir, "products") }
func (c *Config) SalesDir() string    { return filepath.Join(c.Storage.DataDir, "sales") }

// CategoryList is the single category when set, else the configured list.
func (c *Config) CategoryList() []string {
	if c.Scraper.SingleCategory != "" {
		return []string{c.Scraper.SingleCategory}
	}
	return c.Scraper.Categories
}

func (c *Config) Collector() collector.Config {
	return collector.Config{
		Dir:               c.ProductsDir(),
		FilePrefix:        c.Scraper.FilePrefix,
		DetailConcurrency: c.Scraper.DetailConcurrency,
	}
}

func (c *Config) Generator() sales.Config {
	return sales.Config{
		Dir:               c.SalesDir(),
		FilePrefix:        c.Sales.FilePrefix,
		MinTickets:        c.Sales.MinTickets,
		MaxTickets:        c.Sales.MaxTickets,
		ChanceDenominator: c.Sales.ChanceDenominator,
	}
}

func setDefaults(v *viper.Viper, appDir string) {
	v.SetDefault("scraper.api.browse_url", "https://api.nike.com/cic/browse/v2")
	v.SetDefault("scraper.api.site_url", "https://www.nike.com")
	v.SetDefault("scraper.api.country", "US")
	v.SetDefault("scraper.api.language", "en")
	v.SetDefault("scraper.api.page_size", 24)
	v.SetDefault("scraper.api.anonymous_id", "241B0FAA1AC3D3CB734EA4B24C8C910D")
	v.SetDefault("scraper.api.consumer_channel_id", "d9a5bc42-4b9c-4976-858a-f159cf99c647")
	v.SetDefault("scraper.api.connect_timeout", "5s")
	v.SetDefault("scraper.api.timeout", "15s")
	v.SetDefault("scraper.api.requests_per_second", 0)
	v.SetDefault("scraper.api.user_agent", "catalog2dw/1.0")
	v.SetDefault("scraper.categories", collector.DefaultCategories)
	v.SetDefault("scraper.single_category", "")
	v.SetDefault("scraper.max_pages", 1) // 200 covers the full catalog
	v.SetDefault("scraper.fetch_description", true)
	v.SetDefault("scraper.detail_concurrency", 1)
	v.SetDefault("scraper.file_prefix", "nike")

	v.SetDefault("sales.min_tickets", 1)
	v.SetDefault("sales.max_tickets", 1)
	v.SetDefault("sales.chance_denominator", 2)
	v.SetDefault("sales.day_count", 0)
	v.SetDefault("sales.seed", 0)
	v.SetDefault("sales.file_prefix", "nike_sales")

	v.SetDefault("storage.data_dir", filepath.Join(appDir, "data"))

	v.SetDefault("warehouse.driver", "sqlite")
	v.SetDefault("warehouse.dsn", filepath.Join(appDir, "warehouse.db"))
	v.SetDefault("warehouse.join_policy", string(warehouse.JoinInner))
	v.SetDefault("warehouse.batch_size", 500)
	v.SetDefault("warehouse.log_sql", false)

	v.SetDefault("schedule.auto_start", false)
	v.SetDefault("schedule.interval", "24h")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.gin_mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", filepath.Join(appDir, "app.log"))
}

// LoadOrCreate reads path, writing a file with the defaults first when it does
// not exist yet (firstRun). Environment variables override file values.
func LoadOrCreate(path string) (*Config, bool, error) {
	appDir := filepath.Dir(path)

	firstRun := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(appDir, 0o755); err != nil {
			return nil, false, err
		}
		d := viper.New()
		setDefaults(d, appDir)
		if err := d.WriteConfigAs(path); err != nil {
			return nil, false, fmt.Errorf("write default config: %w", err)
		}
		firstRun = true
	} else if err != nil {
		return nil, false, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, appDir)

	if err := v.ReadInConfig(); err != nil {
		return nil, false, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "json" }); err != nil {
		return nil, false, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, firstRun, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("scraper.max_pages must be at least 1")
	}
	if len(c.CategoryList()) == 0 {
		return fmt.Errorf("scraper: no categories configured")
	}
	if c.Scraper.API.BrowseURL == "" {
		return fmt.Errorf("scraper.api.browse_url is required")
	}
	if c.Sales.DayCount < 0 {
		return fmt.Errorf("sales.day_count must not be negative")
	}
	if err := c.Generator().Validate(); err != nil {
		return err
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if err := c.Warehouse.Validate(); err != nil {
		return err
	}
	switch c.Server.GinMode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("server.gin_mode %q is not debug, release or test", c.Server.GinMode)
	}
	if c.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
