package catalog

// Builder accumulates scraped rows for one collector run. Rows are kept per
// category so each category can be snapshotted (or built independently) and
// merged in the order categories were first seen.
type Builder struct {
	order []string
	rows  map[string][]Variant
}

func NewBuilder() *Builder {
	return &Builder{rows: map[string][]Variant{}}
}

func (b *Builder) Add(category string, rows ...Variant) {
	if _, ok := b.rows[category]; !ok {
		b.order = append(b.order, category)
		b.rows[category] = nil
	}
	b.rows[category] = append(b.rows[category], rows...)
}

// Category returns the rows collected so far for one category, in insertion order.
func (b *Builder) Category(category string) []Variant {
	return b.rows[category]
}

func (b *Builder) Categories() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// All returns every row, categories in first-seen order.
func (b *Builder) All() []Variant {
	out := make([]Variant, 0, b.Len())
	for _, c := range b.order {
		out = append(out, b.rows[c]...)
	}
	return out
}

func (b *Builder) Len() int {
	n := 0
	for _, r := range b.rows {
		n += len(r)
	}
	return n
}

// Merge appends another builder's rows, category by category.
func (b *Builder) Merge(other *Builder) {
	for _, c := range other.order {
		b.Add(c, other.rows[c]...)
	}
}

// Dedupe collapses rows sharing a UID. The surviving row sits where the UID
// first appeared and carries the values of the last occurrence.
func Dedupe(rows []Variant) []Variant {
	pos := make(map[string]int, len(rows))
	out := make([]Variant, 0, len(rows))
	for _, r := range rows {
		if i, ok := pos[r.UID]; ok {
			out[i] = r
			continue
		}
		pos[r.UID] = len(out)
		out = append(out, r)
	}
	return out
}
