package warehouse

import (
	"time"

	"github.com/bartek5186/catalog2dw/internal/money"
)

// DIM_CATEGORIES
type DimCategory struct {
	ID           uint   `gorm:"primaryKey;column:id"`
	CategoryName string `gorm:"column:category_name;size:128;not null;uniqueIndex"`
}

func (DimCategory) TableName() string { return "DIM_CATEGORIES" }

// DIM_PRODUCTS, keyed by the catalog product id.
type DimProduct struct {
	ID         string `gorm:"primaryKey;column:id;size:64"`
	CategoryID uint   `gorm:"column:category_id;index"`
	Title      string `gorm:"column:title"`
	Subtitle   string `gorm:"column:subtitle"`
}

func (DimProduct) TableName() string { return "DIM_PRODUCTS" }

// DIM_TIME
type DimTime struct {
	ID    uint `gorm:"primaryKey;column:id"`
	Year  int  `gorm:"column:year;uniqueIndex:uniq_dim_time_ymd"`
	Month int  `gorm:"column:month;uniqueIndex:uniq_dim_time_ymd"`
	Day   int  `gorm:"column:day;uniqueIndex:uniq_dim_time_ymd"`
}

func (DimTime) TableName() string { return "DIM_TIME" }

// FACT_SALES is append-only and has no key of its own.
type FactSales struct {
	TicketID  int64         `gorm:"column:ticket_id;index"`
	ProductID string        `gorm:"column:product_id;size:64;index"`
	Sales     money.Decimal `gorm:"column:sales"`
	Quantity  int           `gorm:"column:quantity"`
	DateID    uint          `gorm:"column:date_id;index"`
}

func (FactSales) TableName() string { return "FACT_SALES" }

// LOAD_BATCHES records every sales file already loaded into FACT_SALES.
type LoadBatch struct {
	ID       uint      `gorm:"primaryKey;column:id"`
	Source   string    `gorm:"column:source"`
	SHA256   string    `gorm:"column:sha256;size:64;uniqueIndex"`
	Rows     int       `gorm:"column:rows"`
	LoadedAt time.Time `gorm:"column:loaded_at;autoCreateTime"`
}

func (LoadBatch) TableName() string { return "LOAD_BATCHES" }
