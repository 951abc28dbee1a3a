// internal/engine/templates/paths.go
package templates

import (
	"strings"

	"quote-engine/internal/models"

	"github.com/shopspring/decimal"
)

// quote-level and item-level canonical paths a template field can name as
// its source
const (
	PathVendorName  = "vendorName"
	PathQuoteNumber = "terms.quoteNumber"
	PathQuoteDate   = "terms.quoteDate"
	PathValidUntil  = "terms.validUntil"
	PathPayment     = "terms.payment"
	PathWarranty    = "terms.warranty"
	PathCurrency    = "terms.currency"
	PathTotalCost   = "totalCost"
	PathFilename    = "source.filename"

	PathItemDescription = "items.description"
	PathItemSKU         = "items.sku"
	PathItemQuantity    = "items.quantity"
	PathItemUnit        = "items.unit"
	PathItemUnitPrice   = "items.unitPrice"
	PathItemTotal       = "items.total"
	PathItemFee         = "items.additionalFee"
	PathItemDelivery    = "items.deliveryTime"
)

type path struct {
	name    string
	aliases []string
}

// ordered so hint matching is deterministic
var quotePaths = []path{
	{PathVendorName, []string{"vendor", "vendor name", "company", "supplier", "business name"}},
	{PathQuoteNumber, []string{"quote number", "quote no", "quote id", "reference"}},
	{PathQuoteDate, []string{"quote date", "date", "issued", "submission date"}},
	{PathValidUntil, []string{"validity", "valid", "valid until", "expires", "expiry"}},
	{PathPayment, []string{"payment", "payment terms", "net"}},
	{PathWarranty, []string{"warranty", "guarantee"}},
	{PathCurrency, []string{"currency", "usd", "eur", "gbp", "inr"}},
	{PathTotalCost, []string{"total", "total amount", "grand total", "final amount", "sum"}},
	{PathFilename, []string{"file", "filename", "document"}},
}

var itemPaths = []path{
	{PathItemSKU, []string{"sku", "code", "item code", "part number", "product code"}},
	{PathItemDescription, []string{"description", "item", "item description", "product", "specification"}},
	{PathItemQuantity, []string{"quantity", "qty", "count", "units"}},
	{PathItemUnit, []string{"unit", "uom", "unit of measure"}},
	{PathItemUnitPrice, []string{"unit price", "price", "rate", "per unit", "cost"}},
	{PathItemTotal, []string{"line total", "total", "total price", "subtotal", "amount"}},
	{PathItemFee, []string{"fee", "additional fee", "surcharge"}},
	{PathItemDelivery, []string{"delivery", "delivery time", "lead time", "timeframe", "shipping"}},
}

func quoteValue(q models.VendorQuote, totalCost *decimal.Decimal, p string) string {
	switch p {
	case PathVendorName:
		return q.VendorName
	case PathQuoteNumber:
		return q.Terms.QuoteNumber
	case PathQuoteDate:
		return q.Terms.QuoteDate
	case PathValidUntil:
		return q.Terms.ValidUntil
	case PathPayment:
		return q.Terms.Payment
	case PathWarranty:
		return q.Terms.Warranty
	case PathCurrency:
		return q.Terms.Currency
	case PathFilename:
		return q.Source.Filename
	case PathTotalCost:
		if totalCost != nil {
			return totalCost.String()
		}
		if q.StatedTotal != nil {
			return q.StatedTotal.String()
		}
	}
	return ""
}

func itemValue(it models.QuoteItem, p string) string {
	switch p {
	case PathItemDescription:
		return it.Description
	case PathItemSKU:
		return it.SKU
	case PathItemQuantity:
		return it.Quantity.String()
	case PathItemUnit:
		return it.Unit
	case PathItemUnitPrice:
		return it.UnitPrice.String()
	case PathItemTotal:
		if it.Total == nil {
			return ""
		}
		return it.Total.String()
	case PathItemFee:
		if it.AdditionalFee.IsZero() {
			return ""
		}
		return it.AdditionalFee.String()
	case PathItemDelivery:
		return it.DeliveryTime
	}
	return ""
}

func knownPath(paths []path, name string) bool {
	for _, p := range paths {
		if p.name == name {
			return true
		}
	}
	return false
}

// byHint returns the paths whose aliases contain hint, in table order.
func byHint(paths []path, hint string) []string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	var out []string
	for _, p := range paths {
		for _, a := range p.aliases {
			if a == hint {
				out = append(out, p.name)
				break
			}
		}
	}
	return out
}

// fieldWords turns "unit_price" or "unitPrice" into "unit price".
func fieldWords(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteRune(' ')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
