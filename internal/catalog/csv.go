package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bartek5186/catalog2dw/internal/money"
)

var ErrMissingUID = errors.New("catalog: csv has no UID column")

type column struct {
	name string
	get  func(v *Variant) string
	set  func(v *Variant, s string) error
}

func strCol(name string, f func(v *Variant) *string) column {
	return column{
		name: name,
		get:  func(v *Variant) string { return *f(v) },
		set:  func(v *Variant, s string) error { *f(v) = s; return nil },
	}
}

func boolCol(name string, f func(v *Variant) *bool) column {
	return column{
		name: name,
		get:  func(v *Variant) string { return strconv.FormatBool(*f(v)) },
		set: func(v *Variant, s string) error {
			if s == "" {
				*f(v) = false
				return nil
			}
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*f(v) = b
			return nil
		},
	}
}

func decCol(name string, f func(v *Variant) *money.Decimal) column {
	return column{
		name: name,
		get:  func(v *Variant) string { return f(v).String() },
		set: func(v *Variant, s string) error {
			if s == "" {
				*f(v) = money.Decimal{}
				return nil
			}
			d, err := money.Parse(s)
			if err != nil {
				return err
			}
			*f(v) = d
			return nil
		},
	}
}

// columns is the snapshot layout. Header names follow the dataset consumed downstream.
var columns = []column{
	strCol("UID", func(v *Variant) *string { return &v.UID }),
	strCol("cloudProdID", func(v *Variant) *string { return &v.CloudProdID }),
	strCol("productID", func(v *Variant) *string { return &v.ProductID }),
	strCol("shortID", func(v *Variant) *string { return &v.ShortID }),
	{
		name: "colorNum",
		get:  func(v *Variant) string { return strconv.Itoa(v.ColorNum) },
		set: func(v *Variant, s string) error {
			if s == "" {
				return nil
			}
			n, err := strconv.Atoi(s)
			v.ColorNum = n
			return err
		},
	},
	strCol("title", func(v *Variant) *string { return &v.Title }),
	strCol("subtitle", func(v *Variant) *string { return &v.Subtitle }),
	strCol("category", func(v *Variant) *string { return &v.Category }),
	strCol("type", func(v *Variant) *string { return &v.Type }),
	strCol("currency", func(v *Variant) *string { return &v.Currency }),
	decCol("fullPrice", func(v *Variant) *money.Decimal { return &v.FullPrice }),
	decCol("currentPrice", func(v *Variant) *money.Decimal { return &v.CurrentPrice }),
	boolCol("sale", func(v *Variant) *bool { return &v.Sale }),
	strCol("TopColor", func(v *Variant) *string { return &v.TopColor }),
	strCol("channel", func(v *Variant) *string { return &v.Channel }),
	{
		name: "short_description",
		get: func(v *Variant) string {
			if v.ShortDescription == nil {
				return ""
			}
			return *v.ShortDescription
		},
		set: func(v *Variant, s string) error {
			v.ShortDescription = nil
			if s != "" {
				v.ShortDescription = &s
			}
			return nil
		},
	},
	{
		name: "rating",
		get: func(v *Variant) string {
			if v.Rating == nil {
				return ""
			}
			return strconv.FormatFloat(*v.Rating, 'f', -1, 64)
		},
		set: func(v *Variant, s string) error {
			v.Rating = nil
			if s == "" {
				return nil
			}
			r, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			v.Rating = &r
			return nil
		},
	},
	boolCol("customizable", func(v *Variant) *bool { return &v.Customizable }),
	boolCol("ExtendedSizing", func(v *Variant) *bool { return &v.ExtendedSizing }),
	boolCol("inStock", func(v *Variant) *bool { return &v.InStock }),
	boolCol("ComingSoon", func(v *Variant) *bool { return &v.ComingSoon }),
	boolCol("BestSeller", func(v *Variant) *bool { return &v.BestSeller }),
	boolCol("Excluded", func(v *Variant) *bool { return &v.Excluded }),
	boolCol("GiftCard", func(v *Variant) *bool { return &v.GiftCard }),
	boolCol("Jersey", func(v *Variant) *bool { return &v.Jersey }),
	boolCol("Launch", func(v *Variant) *bool { return &v.Launch }),
	boolCol("MemberExclusive", func(v *Variant) *bool { return &v.MemberExclusive }),
	boolCol("NBA", func(v *Variant) *bool { return &v.NBA }),
	boolCol("NFL", func(v *Variant) *bool { return &v.NFL }),
	boolCol("Sustainable", func(v *Variant) *bool { return &v.Sustainable }),
	strCol("label", func(v *Variant) *string { return &v.Label }),
	strCol("prebuildId", func(v *Variant) *string { return &v.PrebuildID }),
	strCol("prod_url", func(v *Variant) *string { return &v.ProdURL }),
	strCol("color-ID", func(v *Variant) *string { return &v.ColorID }),
	strCol("color-Description", func(v *Variant) *string { return &v.ColorDescription }),
	decCol("color-FullPrice", func(v *Variant) *money.Decimal { return &v.ColorFullPrice }),
	decCol("color-CurrentPrice", func(v *Variant) *money.Decimal { return &v.ColorCurrentPrice }),
	boolCol("color-Discount", func(v *Variant) *bool { return &v.ColorDiscount }),
	boolCol("color-BestSeller", func(v *Variant) *bool { return &v.ColorBestSeller }),
	boolCol("color-InStock", func(v *Variant) *bool { return &v.ColorInStock }),
	boolCol("color-MemberExclusive", func(v *Variant) *bool { return &v.ColorMemberExclusive }),
	boolCol("color-New", func(v *Variant) *bool { return &v.ColorNew }),
	strCol("color-Label", func(v *Variant) *string { return &v.ColorLabel }),
	strCol("color-Image-url", func(v *Variant) *string { return &v.ColorImageURL }),
}

// Header returns the snapshot column names in file order.
func Header() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

func Write(w io.Writer, rows []Variant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	rec := make([]string, len(columns))
	for i := range rows {
		for j, c := range columns {
			rec[j] = c.get(&rows[i])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes a snapshot, creating parent directories.
func WriteFile(path string, rows []Variant) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Read parses a snapshot. Columns are matched by header name; unknown columns are ignored.
func Read(r io.Reader) ([]Variant, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	byName := make(map[string]column, len(columns))
	for _, c := range columns {
		byName[c.name] = c
	}
	idx := make([]*column, len(header))
	hasUID := false
	for i, h := range header {
		if c, ok := byName[h]; ok {
			idx[i] = &c
			if h == "UID" {
				hasUID = true
			}
		}
	}
	if !hasUID {
		return nil, ErrMissingUID
	}

	var out []Variant
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		var v Variant
		for i, val := range rec {
			if i >= len(idx) || idx[i] == nil {
				continue
			}
			if err := idx[i].set(&v, val); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, idx[i].name, err)
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func ReadFile(path string) ([]Variant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
