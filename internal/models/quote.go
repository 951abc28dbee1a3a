// internal/models/quote.go
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// QuoteItem is one priced line as extracted from a vendor document.
// Total is vendor-supplied and never trusted for ranking; nil means the
// document left it blank.
type QuoteItem struct {
	Description   string           `json:"description"`
	SKU           string           `json:"sku,omitempty"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Unit          string           `json:"unit,omitempty"`
	UnitPrice     decimal.Decimal  `json:"unitPrice"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	AdditionalFee decimal.Decimal  `json:"additionalFee"`
	DeliveryTime  string           `json:"deliveryTime,omitempty"`
}

// QuoteTerms are free text and never feed pricing math.
type QuoteTerms struct {
	Payment     string `json:"payment,omitempty"`
	Warranty    string `json:"warranty,omitempty"`
	QuoteNumber string `json:"quoteNumber,omitempty"`
	QuoteDate   string `json:"quoteDate,omitempty"`
	ValidUntil  string `json:"validUntil,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// IsEmpty reports whether no term was supplied at all.
func (t QuoteTerms) IsEmpty() bool {
	return strings.TrimSpace(t.Payment) == "" &&
		strings.TrimSpace(t.Warranty) == "" &&
		strings.TrimSpace(t.QuoteNumber) == "" &&
		strings.TrimSpace(t.QuoteDate) == "" &&
		strings.TrimSpace(t.ValidUntil) == "" &&
		strings.TrimSpace(t.Currency) == ""
}

// CurrencyCode returns the upper-cased currency, USD when unset.
func (t QuoteTerms) CurrencyCode() string {
	c := strings.ToUpper(strings.TrimSpace(t.Currency))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

const DefaultCurrency = "USD"

// Provenance keeps the audit trail back to the source document.
type Provenance struct {
	Filename string `json:"filename,omitempty"`
	FileType string `json:"fileType,omitempty"`
	RawText  string `json:"rawText,omitempty"`
}

type VendorQuote struct {
	VendorName  string           `json:"vendorName"`
	Items       []QuoteItem      `json:"items"`
	Terms       QuoteTerms       `json:"terms"`
	StatedTotal *decimal.Decimal `json:"statedTotal,omitempty"`
	Source      Provenance       `json:"source"`
}

func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Clone returns a copy that shares no slices with q.
func (q VendorQuote) Clone() VendorQuote {
	out := q
	if q.Items != nil {
		out.Items = make([]QuoteItem, len(q.Items))
		copy(out.Items, q.Items)
		for i, it := range out.Items {
			if it.Total != nil {
				out.Items[i].Total = DecimalPtr(*it.Total)
			}
		}
	}
	if q.StatedTotal != nil {
		st := *q.StatedTotal
		out.StatedTotal = &st
	}
	return out
}
