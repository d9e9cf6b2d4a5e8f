package recommender

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brlPrinter = message.NewPrinter(language.BrazilianPortuguese)

// Summary is the cart recap shown next to the recommendations.
type Summary struct {
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
}

// Markdown renders the recap the way the desktop app displays it.
func (s Summary) Markdown() string {
	return fmt.Sprintf("**Itens no carrinho:** %d  \n**Subtotal:** %s", s.ItemCount, FormatBRL(s.Subtotal))
}

// FormatBRL formats v as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	return "R$ " + brlPrinter.Sprintf("%.2f", v)
}
