// Package catalog holds the scraped product/color-variant table and its CSV snapshot format.
package catalog

import "github.com/bartek5186/catalog2dw/internal/money"

// Variant is one product + colorway pair as scraped from the catalog.
type Variant struct {
	UID         string // CloudProdID + ColorID
	CloudProdID string
	ProductID   string
	ShortID     string
	ColorNum    int // 1-based colorway index

	Title    string
	Subtitle string
	Category string
	Type     string

	Currency     string
	FullPrice    money.Decimal
	CurrentPrice money.Decimal
	Sale         bool
	TopColor     string
	Channel      string

	// from the product page, absent when the page could not be read
	ShortDescription *string
	Rating           *float64

	Customizable    bool
	ExtendedSizing  bool
	InStock         bool
	ComingSoon      bool
	BestSeller      bool
	Excluded        bool
	GiftCard        bool
	Jersey          bool
	Launch          bool
	MemberExclusive bool
	NBA             bool
	NFL             bool
	Sustainable     bool
	Label           string
	PrebuildID      string
	ProdURL         string

	ColorID              string
	ColorDescription     string
	ColorFullPrice       money.Decimal
	ColorCurrentPrice    money.Decimal
	ColorDiscount        bool
	ColorBestSeller      bool
	ColorInStock         bool
	ColorMemberExclusive bool
	ColorNew             bool
	ColorLabel           string
	ColorImageURL        string
}

// MakeUID builds the variant key from the product and colorway cloud ids.
func MakeUID(productCloudID, colorCloudID string) string {
	return productCloudID + colorCloudID
}

// ShortID returns the trailing 12 characters of a product id.
func ShortID(productID string) string {
	if len(productID) <= 12 {
		return productID
	}
	return productID[len(productID)-12:]
}
