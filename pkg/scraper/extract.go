package scraper

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

var digitsRegex = regexp.MustCompile(`^[0-9]+$`)

// Extractor reads prices and names out of product page markup.
//
// A price is always assembled from the "whole" element and the optional
// "fraction" element as <whole>.<fraction>. Period is the decimal separator
// and comma the thousands separator; currency symbols are not stripped.
type Extractor struct {
	sel Selectors
}

func NewExtractor(sel Selectors) Extractor {
	if sel.Whole == "" {
		sel.Whole = DefaultSelectors.Whole
	}
	if sel.Fraction == "" {
		sel.Fraction = DefaultSelectors.Fraction
	}
	if sel.Title == "" {
		sel.Title = DefaultSelectors.Title
	}
	return Extractor{sel: sel}
}

func (e Extractor) Price(markup []byte) (decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return decimal.Zero, &UnavailableError{Reason: ReasonParse, Err: err}
	}

	wholeSel := doc.Find(e.sel.Whole).First()
	if wholeSel.Length() == 0 {
		return decimal.Zero, &UnavailableError{Reason: ReasonNotFound}
	}
	whole := cleanNumber(wholeSel.Text())

	// "19." comes from pages that render the decimal point inside the whole element.
	whole = strings.TrimSuffix(whole, ".")

	var amount string
	if strings.Contains(whole, ".") {
		amount = whole
		intPart, fracPart, _ := strings.Cut(whole, ".")
		if !digitsRegex.MatchString(intPart) || !digitsRegex.MatchString(fracPart) {
			return decimal.Zero, &UnavailableError{Reason: ReasonParse}
		}
	} else {
		if !digitsRegex.MatchString(whole) {
			return decimal.Zero, &UnavailableError{Reason: ReasonParse}
		}
		fraction := "00"
		if f := cleanNumber(doc.Find(e.sel.Fraction).First().Text()); f != "" {
			fraction = f
		}
		if !digitsRegex.MatchString(fraction) {
			return decimal.Zero, &UnavailableError{Reason: ReasonParse}
		}
		amount = whole + "." + fraction
	}

	price, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, &UnavailableError{Reason: ReasonParse, Err: err}
	}
	return price.Round(2), nil
}

// Name returns the product title, or UnknownProductName when the page has none.
func (e Extractor) Name(markup []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return UnknownProductName
	}
	name := strings.Join(strings.Fields(doc.Find(e.sel.Title).First().Text()), " ")
	if name == "" {
		return UnknownProductName
	}
	return name
}

func cleanNumber(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), "")
}
