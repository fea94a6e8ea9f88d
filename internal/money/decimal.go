// Package money holds the exact decimal type used for prices and sales amounts.
package money

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

var arith = apd.BaseContext.WithPrecision(34)

// Decimal is an exact base-10 amount. The zero value is 0.
type Decimal struct {
	value apd.Decimal
}

func Parse(s string) (Decimal, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Decimal{value: d}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func FromInt(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d}
}

func (d Decimal) String() string { return d.value.Text('f') }

func (d Decimal) IsZero() bool { return d.value.IsZero() }

func (d Decimal) Cmp(other Decimal) int { return d.value.Cmp(&other.value) }

// Mul returns d × other.
func (d Decimal) Mul(other Decimal) Decimal {
	var result apd.Decimal
	_, _ = arith.Mul(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// MulInt returns d × n.
func (d Decimal) MulInt(n int64) Decimal {
	return d.Mul(FromInt(n))
}

// UnmarshalJSON accepts a JSON number, a quoted number or null. Numbers are read
// from their literal text, never through float64.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = Decimal{}
		return nil
	}
	b = bytes.Trim(b, `"`)
	if len(b) == 0 {
		*d = Decimal{}
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// Value stores the decimal as its text form so no driver rounds it through float64.
func (d Decimal) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Decimal) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Decimal{}
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	case int64:
		*d = FromInt(v)
		return nil
	case float64:
		return d.scanText(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
}

func (d *Decimal) scanText(s string) error {
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// GormDataType is the column type used by gorm migrations.
func (Decimal) GormDataType() string { return "decimal(12,2)" }
