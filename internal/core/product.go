package core

// product.go defines the typed shape of one import row and the rules for
// converting raw CSV cells into it.
//
// Conversion is strict so values fit the store's column types:
//   - price is a plain fixed-point decimal (no currency symbols, no exponent)
//   - quantity must fit the INT column
//   - manufacture_date treats "", "NULL" and "null" as absent
//   - is_active accepts exactly true/1/yes/Y and false/0/no/N

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Column identifiers recognised in the CSV header.
const (
	ColProductCode     = "product_code"
	ColProductName     = "product_name"
	ColCategory        = "category"
	ColPrice           = "price"
	ColQuantity        = "quantity"
	ColManufactureDate = "manufacture_date"
	ColIsActive        = "is_active"
)

// RequiredColumns lists the columns every row must be able to resolve.
// manufacture_date is the only optional column.
var RequiredColumns = []string{
	ColProductCode, ColProductName, ColCategory, ColPrice, ColQuantity, ColIsActive,
}

// Product is one validated input row.
type Product struct {
	Code            string
	Name            string
	Category        string
	Price           pgtype.Numeric
	Quantity        int32
	ManufactureDate pgtype.Date // Valid=false when absent
	Active          bool
}

// decimalRegex accepts plain fixed-point decimals only.
var decimalRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// nullDateTokens are the literal values that mean "no date".
var nullDateTokens = map[string]bool{"": true, "NULL": true, "null": true}

var (
	trueTokens  = map[string]bool{"true": true, "1": true, "yes": true, "Y": true}
	falseTokens = map[string]bool{"false": true, "0": true, "no": true, "N": true}
)

// dateLayouts are tried in order; ISO first since it is the documented format.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// ParseDecimal converts s to a fixed-point pgtype.Numeric.
func ParseDecimal(s string) (pgtype.Numeric, error) {
	s = strings.TrimSpace(s)
	if !decimalRegex.MatchString(s) {
		return pgtype.Numeric{}, fmt.Errorf("invalid decimal %q", s)
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return n, nil
}

// ParseQuantity converts s to a 32-bit integer.
func ParseQuantity(s string) (int32, error) {
	s = strings.TrimSpace(s)
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int32(i), nil
}

// ParseOptionalDate converts s to a pgtype.Date. Null tokens yield an
// invalid (absent) date and no error.
func ParseOptionalDate(s string) (pgtype.Date, error) {
	s = strings.TrimSpace(s)
	if nullDateTokens[s] {
		return pgtype.Date{Valid: false}, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}, nil
		}
	}
	return pgtype.Date{}, fmt.Errorf("invalid date %q", s)
}

// ParseActive converts s using the accepted boolean tokens (case-sensitive).
func ParseActive(s string) (bool, error) {
	s = strings.TrimSpace(s)
	switch {
	case trueTokens[s]:
		return true, nil
	case falseTokens[s]:
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// NumericString renders a pgtype.Numeric as plain decimal text.
// Returns "" for an invalid value.
func NumericString(n pgtype.Numeric) string {
	if !n.Valid {
		return ""
	}
	v, err := n.Value()
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// HeaderIndex maps lower-cased column names to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a CSV header row.
// Names are trimmed and lower-cased so lookups ignore case and padding.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; dup {
			continue // first occurrence wins
		}
		idx[key] = i
	}
	return idx
}

// Missing returns the required columns absent from the index.
func (h HeaderIndex) Missing(required []string) []string {
	var missing []string
	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// cell returns the trimmed value for col, or "" when the column is absent
// or the row is too short.
func (h HeaderIndex) cell(row []string, col string) string {
	pos, ok := h[col]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// BuildProduct converts one CSV row into a Product.
// The first conversion failure is returned, naming the offending column.
func BuildProduct(row []string, idx HeaderIndex) (Product, error) {
	if missing := idx.Missing(RequiredColumns); len(missing) > 0 {
		return Product{}, fmt.Errorf("missing required column %q", missing[0])
	}

	p := Product{
		Code:     idx.cell(row, ColProductCode),
		Name:     idx.cell(row, ColProductName),
		Category: idx.cell(row, ColCategory),
	}

	var err error
	if p.Price, err = ParseDecimal(idx.cell(row, ColPrice)); err != nil {
		return Product{}, fmt.Errorf("%s: %w", ColPrice, err)
	}
	if p.Quantity, err = ParseQuantity(idx.cell(row, ColQuantity)); err != nil {
		return Product{}, fmt.Errorf("%s: %w", ColQuantity, err)
	}
	if p.ManufactureDate, err = ParseOptionalDate(idx.cell(row, ColManufactureDate)); err != nil {
		return Product{}, fmt.Errorf("%s: %w", ColManufactureDate, err)
	}
	if p.Active, err = ParseActive(idx.cell(row, ColIsActive)); err != nil {
		return Product{}, fmt.Errorf("%s: %w", ColIsActive, err)
	}

	return p, nil
}
