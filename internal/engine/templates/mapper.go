// Package templates maps a canonical vendor quote onto an organization's
// quote template and scores how completely the template was filled.
package templates

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"quote-engine/internal/models"
	"quote-engine/pkg/registry"

	"github.com/shopspring/decimal"
)

const (
	MethodSource = "source"
	MethodHint   = "hint"
	MethodName   = "name"

	SectionHeader = "header"
	SectionItem   = "item"
	SectionTerms  = "terms"
)

const (
	confidenceSource   = 0.9
	confidenceHint     = 0.8
	confidenceName     = 0.7
	confidenceUnparsed = 0.5
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

type Config struct {
	// ReviewThreshold is the compliance percentage below which a mapping
	// needs manual review.
	ReviewThreshold float64
	MinConfidence   float64
}

func DefaultConfig() Config {
	return Config{ReviewThreshold: 70, MinConfidence: 0.6}
}

type FieldMapping struct {
	Field      string  `json:"field"`
	Section    string  `json:"section"`
	Required   bool    `json:"required"`
	Source     string  `json:"source,omitempty"`
	Method     string  `json:"method,omitempty"`
	Confidence float64 `json:"confidence"`
	Mapped     bool    `json:"mapped"`
}

type Result struct {
	TemplateID           string                   `json:"templateId"`
	VendorName           string                   `json:"vendorName"`
	Header               map[string]interface{}   `json:"header"`
	Items                []map[string]interface{} `json:"items"`
	Terms                map[string]interface{}   `json:"terms"`
	Mappings             []FieldMapping           `json:"mappings"`
	ComplianceScore      float64                  `json:"templateComplianceScore"`
	UnmappedRequired     []string                 `json:"unmappedRequired"`
	RequiresManualReview bool                     `json:"requiresManualReview"`
	Notes                []string                 `json:"notes"`
}

// Document is the mapped field set as a plain JSON value, suitable for
// schema validation.
func (r *Result) Document() map[string]interface{} {
	items := make([]interface{}, len(r.Items))
	for i, it := range r.Items {
		items[i] = it
	}
	return map[string]interface{}{
		"header": r.Header,
		"items":  items,
		"terms":  r.Terms,
	}
}

// FlagForReview forces manual review and records why.
func (r *Result) FlagForReview(reasons ...string) {
	r.RequiresManualReview = true
	r.Notes = append(r.Notes, reasons...)
}

// Mapper is stateless and safe for concurrent use.
type Mapper struct {
	cfg Config
}

func NewMapper(cfg Config) *Mapper {
	return &Mapper{cfg: cfg}
}

type candidate struct {
	path       string
	method     string
	confidence float64
}

// Map fills tmpl from quote. totalCost, when given, is the corrected total
// to report; otherwise the vendor's stated total is used.
func (m *Mapper) Map(tmpl *registry.OrganizationTemplate, quote models.VendorQuote, totalCost *decimal.Decimal) *Result {
	res := &Result{
		TemplateID:       tmpl.ID,
		VendorName:       quote.VendorName,
		Header:           map[string]interface{}{},
		Items:            make([]map[string]interface{}, len(quote.Items)),
		Terms:            map[string]interface{}{},
		Mappings:         []FieldMapping{},
		UnmappedRequired: []string{},
		Notes:            []string{},
	}
	for i := range res.Items {
		res.Items[i] = map[string]interface{}{}
	}

	for _, f := range tmpl.HeaderFields {
		m.mapQuoteField(res, res.Header, SectionHeader, f, quote, totalCost)
	}
	for _, f := range tmpl.ItemFields {
		m.mapItemField(res, f, quote.Items)
	}
	for _, f := range tmpl.TermsFields {
		m.mapQuoteField(res, res.Terms, SectionTerms, f, quote, totalCost)
	}

	m.score(res, tmpl.RequiredCount())
	return res
}

func (m *Mapper) mapQuoteField(res *Result, target map[string]interface{}, section string, f registry.TemplateField, q models.VendorQuote, totalCost *decimal.Decimal) {
	fm := FieldMapping{Field: f.Name, Section: section, Required: f.Required}

	for _, c := range m.candidates(res, f, quotePaths) {
		raw := strings.TrimSpace(quoteValue(q, totalCost, c.path))
		if raw == "" {
			continue
		}
		value, ok := convert(f.Type, raw)
		fm.Source, fm.Method, fm.Confidence, fm.Mapped = c.path, c.method, c.confidence, true
		if !ok {
			fm.Confidence = confidenceUnparsed
			res.Notes = append(res.Notes, fmt.Sprintf("%s: could not parse %q as %s", f.Name, raw, f.Type))
		}
		target[f.Name] = value
		res.Notes = append(res.Notes, fmt.Sprintf("mapped %s from %s by %s", f.Name, c.path, c.method))
		break
	}

	m.finish(res, fm)
}

// mapItemField maps an item field only when every line carries a value.
func (m *Mapper) mapItemField(res *Result, f registry.TemplateField, items []models.QuoteItem) {
	fm := FieldMapping{Field: f.Name, Section: SectionItem, Required: f.Required}

	if len(items) == 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%s: quote has no items", f.Name))
		m.finish(res, fm)
		return
	}

	for _, c := range m.candidates(res, f, itemPaths) {
		raws := make([]string, len(items))
		missing := 0
		for i, it := range items {
			raws[i] = strings.TrimSpace(itemValue(it, c.path))
			if raws[i] == "" {
				missing++
			}
		}
		if missing == len(items) {
			continue
		}
		if missing > 0 {
			res.Notes = append(res.Notes, fmt.Sprintf("%s: %s missing on %d of %d items", f.Name, c.path, missing, len(items)))
			continue
		}

		fm.Source, fm.Method, fm.Confidence, fm.Mapped = c.path, c.method, c.confidence, true
		for i, raw := range raws {
			value, ok := convert(f.Type, raw)
			if !ok {
				fm.Confidence = confidenceUnparsed
				res.Notes = append(res.Notes, fmt.Sprintf("%s: item %d value %q is not a valid %s", f.Name, i, raw, f.Type))
			}
			res.Items[i][f.Name] = value
		}
		res.Notes = append(res.Notes, fmt.Sprintf("mapped %s from %s by %s", f.Name, c.path, c.method))
		break
	}

	m.finish(res, fm)
}

func (m *Mapper) finish(res *Result, fm FieldMapping) {
	if !fm.Mapped {
		res.Notes = append(res.Notes, fmt.Sprintf("no value found for %s", fm.Field))
		if fm.Required {
			res.UnmappedRequired = append(res.UnmappedRequired, fm.Field)
		}
	}
	res.Mappings = append(res.Mappings, fm)
}

// candidates lists source paths in priority order: explicit source, then
// mapping hints, then the field's own name.
func (m *Mapper) candidates(res *Result, f registry.TemplateField, paths []path) []candidate {
	var out []candidate
	seen := make(map[string]struct{})
	add := func(p, method string, confidence float64) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, candidate{path: p, method: method, confidence: confidence})
	}

	if f.Source != "" {
		if knownPath(paths, f.Source) {
			add(f.Source, MethodSource, confidenceSource)
		} else {
			res.Notes = append(res.Notes, fmt.Sprintf("%s: unknown source %q", f.Name, f.Source))
		}
	}
	for _, hint := range f.MappingHints {
		for _, p := range byHint(paths, hint) {
			add(p, MethodHint, confidenceHint)
		}
	}
	for _, p := range byHint(paths, fieldWords(f.Name)) {
		add(p, MethodName, confidenceName)
	}
	return out
}

func (m *Mapper) score(res *Result, required int) {
	if required == 0 {
		res.ComplianceScore = 100
	} else {
		mapped := 0
		for _, fm := range res.Mappings {
			if fm.Required && fm.Mapped {
				mapped++
			}
		}
		res.ComplianceScore = math.Round(float64(mapped)/float64(required)*1000) / 10
	}

	if res.ComplianceScore < m.cfg.ReviewThreshold {
		res.FlagForReview(fmt.Sprintf("compliance score %.1f%% is below %.1f%%", res.ComplianceScore, m.cfg.ReviewThreshold))
	}
	if len(res.UnmappedRequired) > 0 {
		res.FlagForReview("required fields unmapped: " + strings.Join(res.UnmappedRequired, ", "))
	}
	for _, fm := range res.Mappings {
		if fm.Required && fm.Mapped && fm.Confidence < m.cfg.MinConfidence {
			res.FlagForReview(fmt.Sprintf("low confidence %.1f for %s", fm.Confidence, fm.Field))
		}
	}
}

// convert normalizes raw by field type. ok is false when raw cannot be
// parsed; raw is then kept as text.
func convert(fieldType, raw string) (interface{}, bool) {
	switch fieldType {
	case registry.FieldNumber, registry.FieldCurrency:
		cleaned := strings.Map(func(r rune) rune {
			if r == ',' || unicode.IsSpace(r) || unicode.IsLetter(r) || unicode.Is(unicode.Sc, r) {
				return -1
			}
			return r
		}, raw)
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return raw, false
		}
		return json.Number(d.String()), true
	case registry.FieldDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
		return raw, false
	default:
		return raw, true
	}
}
