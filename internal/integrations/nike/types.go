// internal/integrations/nike/types.go
package nike

import (
	"encoding/json"
	"strings"

	"github.com/bartek5186/catalog2dw/internal/money"
)

type browseResponse struct {
	Data struct {
		Products *struct {
			Products []Product `json:"products"`
		} `json:"products"`
	} `json:"data"`
}

type Price struct {
	Currency     string        `json:"currency"`
	FullPrice    money.Decimal `json:"fullPrice"`
	CurrentPrice money.Decimal `json:"currentPrice"`
	Discounted   bool          `json:"discounted"`
}

// Product is one entry of the browse feed.
type Product struct {
	ID                string     `json:"id"`
	CloudProductID    string     `json:"cloudProductId"`
	Title             string     `json:"title"`
	Subtitle          string     `json:"subtitle"`
	ProductType       string     `json:"productType"` // "FOOTWEAR", "APPAREL", ...
	ColorDescription  string     `json:"colorDescription"`
	SalesChannel      flexString `json:"salesChannel"`
	URL               string     `json:"url"` // contains {countryLang}
	Price             Price      `json:"price"`
	Customizable      bool       `json:"customizable"`
	HasExtendedSizing bool       `json:"hasExtendedSizing"`
	InStock           bool       `json:"inStock"`
	IsComingSoon      bool       `json:"isComingSoon"`
	IsBestSeller      bool       `json:"isBestSeller"`
	IsExcluded        bool       `json:"isExcluded"`
	IsGiftCard        bool       `json:"isGiftCard"`
	IsJersey          bool       `json:"isJersey"`
	IsLaunch          bool       `json:"isLaunch"`
	IsMemberExclusive bool       `json:"isMemberExclusive"`
	IsNBA             bool       `json:"isNBA"`
	IsNFL             bool       `json:"isNFL"`
	IsSustainable     bool       `json:"isSustainable"`
	Label             string     `json:"label"`
	PrebuildID        string     `json:"prebuildId"`
	Colorways         []Colorway `json:"colorways"`
}

type Colorway struct {
	CloudProductID   string `json:"cloudProductId"`
	ColorDescription string `json:"colorDescription"`
	Price            Price  `json:"price"`
	Images           struct {
		PortraitURL string `json:"portraitURL"`
	} `json:"images"`
	InStock           bool   `json:"inStock"`
	IsBestSeller      bool   `json:"isBestSeller"`
	IsMemberExclusive bool   `json:"isMemberExclusive"`
	IsNew             bool   `json:"isNew"`
	Label             string `json:"label"`
}

// Details is what the product page contributes to a row.
type Details struct {
	Description *string
	Rating      *float64
}

// flexString decodes a string or a list of strings (joined with "|").
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(strings.Join(list, "|"))
	return nil
}

func (f flexString) String() string { return string(f) }
