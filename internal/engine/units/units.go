// Package units converts vendor quantity/price units to a canonical basis
// so that prices from different vendors can be compared directly.
package units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"quote-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Canonical base units.
const (
	Each     = "each"
	Kilogram = "kg"
	Litre    = "l"
	Metre    = "m"
)

// PricePrecision is the number of decimal places kept on normalized unit prices.
const PricePrecision = 6

type definition struct {
	canonical  string
	multiplier decimal.Decimal
	packLike   bool
}

func def(canonical, multiplier string) definition {
	return definition{canonical: canonical, multiplier: decimal.RequireFromString(multiplier)}
}

var packLike = definition{canonical: Each, multiplier: decimal.NewFromInt(1), packLike: true}

var defaultTable = map[string]definition{
	"":         def(Each, "1"),
	"each":     def(Each, "1"),
	"ea":       def(Each, "1"),
	"pc":       def(Each, "1"),
	"pcs":      def(Each, "1"),
	"piece":    def(Each, "1"),
	"unit":     def(Each, "1"),
	"item":     def(Each, "1"),
	"no":       def(Each, "1"),
	"nos":      def(Each, "1"),
	"pair":     def(Each, "2"),
	"pr":       def(Each, "2"),
	"dozen":    def(Each, "12"),
	"dz":       def(Each, "12"),
	"doz":      def(Each, "12"),
	"gross":    def(Each, "144"),
	"ream":     def(Each, "500"),
	"rm":       def(Each, "500"),
	"kg":       def(Kilogram, "1"),
	"kilo":     def(Kilogram, "1"),
	"kilogram": def(Kilogram, "1"),
	"g":        def(Kilogram, "0.001"),
	"gram":     def(Kilogram, "0.001"),
	"lb":       def(Kilogram, "0.453592"),
	"lbs":      def(Kilogram, "0.453592"),
	"pound":    def(Kilogram, "0.453592"),
	"oz":       def(Kilogram, "0.0283495"),
	"ounce":    def(Kilogram, "0.0283495"),
	"t":        def(Kilogram, "1000"),
	"tonne":    def(Kilogram, "1000"),
	"ton":      def(Kilogram, "1000"),
	"l":        def(Litre, "1"),
	"litre":    def(Litre, "1"),
	"liter":    def(Litre, "1"),
	"ml":       def(Litre, "0.001"),
	"gal":      def(Litre, "3.78541"),
	"gallon":   def(Litre, "3.78541"),
	"m":        def(Metre, "1"),
	"metre":    def(Metre, "1"),
	"meter":    def(Metre, "1"),
	"cm":       def(Metre, "0.01"),
	"mm":       def(Metre, "0.001"),
	"ft":       def(Metre, "0.3048"),
	"foot":     def(Metre, "0.3048"),
	"feet":     def(Metre, "0.3048"),
	"in":       def(Metre, "0.0254"),
	"inch":     def(Metre, "0.0254"),
	"yd":       def(Metre, "0.9144"),
	"yard":     def(Metre, "0.9144"),
	"case":     packLike,
	"cs":       packLike,
	"pack":     packLike,
	"pk":       packLike,
	"box":      packLike,
	"bx":       packLike,
	"carton":   packLike,
	"ctn":      packLike,
	"bag":      packLike,
	"bundle":   packLike,
	"set":      packLike,
}

var packSizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:pack|case|box|carton|bag|bundle|set)\s+of\s+(\d+)\b`),
	regexp.MustCompile(`\b(\d+)\s*(?:-|\s)?\s*(?:pack|pk|ct|count)\b`),
	regexp.MustCompile(`\b(\d+)\s*(?:/|per)\s*(?:case|box|pack|carton|bag|bundle|set)\b`),
	regexp.MustCompile(`\b(?:case|box|pack|carton)\s*/\s*(\d+)\b`),
}

// Result is the normalized view of one (quantity, unit, unitPrice) triple.
type Result struct {
	Unit                string          `json:"unit"`
	CanonicalUnit       string          `json:"canonicalUnit"`
	Multiplier          decimal.Decimal `json:"multiplier"`
	NormalizedQuantity  decimal.Decimal `json:"normalizedQuantity"`
	NormalizedUnitPrice decimal.Decimal `json:"normalizedUnitPrice"`
	PackSize            int             `json:"packSize,omitempty"`
	Known               bool            `json:"known"`
}

// Normalizer holds a read-only synonym table and is safe for concurrent use.
type Normalizer struct {
	table map[string]definition
}

func NewNormalizer() *Normalizer {
	return &Normalizer{table: defaultTable}
}

// Normalize converts quantity and unit price to the canonical unit. The
// description is consulted only for the pack size of case/pack/box units.
func (n *Normalizer) Normalize(quantity decimal.Decimal, unit string, unitPrice decimal.Decimal, description string) Result {
	key := cleanUnit(unit)
	d, ok := n.lookup(key)

	res := Result{Unit: unit, Known: ok}
	if !ok {
		// unknown units stay on their own basis with multiplier 1
		res.CanonicalUnit = key
		res.Multiplier = decimal.NewFromInt(1)
	} else {
		res.CanonicalUnit = d.canonical
		res.Multiplier = d.multiplier
		if d.packLike {
			if size := PackSize(description); size > 0 {
				res.PackSize = size
				res.Multiplier = decimal.NewFromInt(int64(size))
			}
		}
	}

	res.NormalizedQuantity = quantity.Mul(res.Multiplier)
	res.NormalizedUnitPrice = unitPrice.DivRound(res.Multiplier, PricePrecision)
	return res
}

func (n *Normalizer) lookup(key string) (definition, bool) {
	if d, ok := n.table[key]; ok {
		return d, true
	}
	if strings.HasSuffix(key, "es") {
		if d, ok := n.table[strings.TrimSuffix(key, "es")]; ok {
			return d, true
		}
	}
	if strings.HasSuffix(key, "s") {
		if d, ok := n.table[strings.TrimSuffix(key, "s")]; ok {
			return d, true
		}
	}
	return definition{}, false
}

// Known reports whether unit is in the synonym table.
func (n *Normalizer) Known(unit string) bool {
	_, ok := n.lookup(cleanUnit(unit))
	return ok
}

func cleanUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimPrefix(u, "per ")
	u = strings.TrimPrefix(u, "/")
	u = strings.TrimSuffix(u, ".")
	return strings.TrimSpace(u)
}

// PackSize extracts a pack count such as "24-pack" or "pack of 12" from a
// description, or 0 when none is stated.
func PackSize(description string) int {
	d := strings.ToLower(description)
	for _, re := range packSizePatterns {
		m := re.FindStringSubmatch(d)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// UnknownUnitIssue flags a line whose unit could not be normalized.
func UnknownUnitIssue(vendor string, index int, unit string) models.Issue {
	return models.Issue{
		Severity:    models.SeverityLow,
		Kind:        models.KindUnitMismatch,
		Vendor:      vendor,
		ItemIndex:   models.IntPtr(index),
		Description: fmt.Sprintf("unrecognized unit %q treated as its own basis with multiplier 1", unit),
		Details: map[string]interface{}{
			"unit": unit,
		},
	}
}
