// Package format renders prices and product-share summaries.
package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vedran77/marketchat/internal/domain"
)

const (
	pesoSign       = "₱"
	fallbackTitle  = "this item"
	titleSeparator = " — "
)

var printer = message.NewPrinter(language.English)

// Peso renders an amount as pesos with grouping and two decimals, e.g. ₱1,250.00.
func Peso(amount float64) string {
	if amount < 0 {
		return "-" + pesoSign + printer.Sprintf("%.2f", -amount)
	}
	return pesoSign + printer.Sprintf("%.2f", amount)
}

// ProductShareSummary is the human readable part of a product-share message:
// "title — ₱price". A missing title reads "this item"; an unknown price is
// left out.
func ProductShareSummary(p *domain.Product) string {
	if p == nil {
		return fallbackTitle
	}

	title := p.Title
	if title == "" {
		title = fallbackTitle
	}
	price, ok := p.Price.Float64()
	if !ok {
		return title
	}
	return title + titleSeparator + Peso(price)
}
