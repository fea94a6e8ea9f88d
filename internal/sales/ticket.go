package sales

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bartek5186/catalog2dw/internal/money"
)

const DateLayout = "2006-01-02"

var header = []string{"ticket_id", "UID", "currency", "sales", "quantity", "date"}

var ErrBadHeader = errors.New("sales: unexpected csv header")

// Ticket is one synthetic sale. TicketID is not guaranteed unique.
type Ticket struct {
	TicketID int64
	UID      string
	Currency string
	Sales    money.Decimal // unit price × quantity
	Quantity int
	Date     string // YYYY-MM-DD
}

// Day parses the ticket date.
func (t Ticket) Day() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

func Write(w io.Writer, tickets []Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range tickets {
		rec := []string{
			strconv.FormatInt(t.TicketID, 10),
			t.UID,
			t.Currency,
			t.Sales.String(),
			strconv.Itoa(t.Quantity),
			t.Date,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteFile(path string, tickets []Ticket) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, tickets); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Read parses a day file. Columns are located by header name.
func Read(r io.Reader) ([]Ticket, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pos := map[string]int{}
	for i, h := range head {
		pos[h] = i
	}
	for _, h := range header {
		if _, ok := pos[h]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrBadHeader, h)
		}
	}

	var out []Ticket
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
		get := func(name string) string {
			if i := pos[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}

		id, err := strconv.ParseInt(get("ticket_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d ticket_id: %w", line, err)
		}
		amount, err := money.Parse(get("sales"))
		if err != nil {
			return nil, fmt.Errorf("line %d sales: %w", line, err)
		}
		qty, err := strconv.Atoi(get("quantity"))
		if err != nil {
			return nil, fmt.Errorf("line %d quantity: %w", line, err)
		}
		out = append(out, Ticket{
			TicketID: id,
			UID:      get("UID"),
			Currency: get("currency"),
			Sales:    amount,
			Quantity: qty,
			Date:     get("date"),
		})
	}
	return out, nil
}

func ReadFile(path string) ([]Ticket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
