package registrar

import (
	"regexp"
	"strconv"
)

// PriceExtractor recovers a one-year registration price from a pricing
// response. Extract reports false when nothing usable (> 0) was found.
type PriceExtractor interface {
	Name() string
	Extract(body string) (float64, bool)
}

// PriceMatch is the typed result of running the extractor chain.
type PriceMatch struct {
	Price    float64
	Strategy string
}

type patternExtractor struct {
	name    string
	pattern *regexp.Regexp
}

// NewPatternExtractor builds an extractor whose first capture group is the price.
func NewPatternExtractor(name, pattern string) PriceExtractor {
	return patternExtractor{name: name, pattern: regexp.MustCompile(pattern)}
}

func (e patternExtractor) Name() string { return e.name }

func (e patternExtractor) Extract(body string) (float64, bool) {
	for _, m := range e.pattern.FindAllStringSubmatch(body, -1) {
		price, err := strconv.ParseFloat(m[1], 64)
		if err == nil && price > 0 {
			return price, true
		}
	}
	return 0, false
}

// DefaultPriceExtractors run from most to least specific.
var DefaultPriceExtractors = []PriceExtractor{
	NewPatternExtractor("one_year_register", `(?i)<Price[^>]*Duration="1"[^>]*DurationType="YEAR"[^>]*\sPrice="([\d.]+)"`),
	NewPatternExtractor("price_element_attribute", `(?i)<Price\s[^>]*\bPrice="([\d.]+)"[^>]*>`),
	NewPatternExtractor("price_element_text", `(?i)<Price>\s*([\d.]+)\s*</Price>`),
	NewPatternExtractor("price_attribute", `(?i)\sPrice="([\d.]+)"`),
}

// ExtractPrice returns the first positive price found by extractors, in order.
func ExtractPrice(body string, extractors []PriceExtractor) (PriceMatch, bool) {
	for _, e := range extractors {
		if price, ok := e.Extract(body); ok {
			return PriceMatch{Price: price, Strategy: e.Name()}, true
		}
	}
	return PriceMatch{}, false
}
