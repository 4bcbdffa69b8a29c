package listing

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/flow"
)

// Render produces the user-facing listing text for a product. Stock is shown
// only as a count; the key values themselves never appear. Title and
// description are operator input and get escaped before they enter the
// Markdown body.
func Render(p *catalog.Product) string {
	title, err := format.EscapeMarkdown(p.Title, format.MarkdownV1, "")
	if err != nil {
		title = p.Title
	}
	description, err := format.EscapeMarkdown(p.Description, format.MarkdownV1, "")
	if err != nil {
		description = p.Description
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", title)
	if description != "" {
		fmt.Fprintf(&b, "\n%s\n", description)
	}
	fmt.Fprintf(&b, "\nPrice: %s %s\n", p.Price, p.Currency)
	fmt.Fprintf(&b, "Keys available: %d", len(p.Stock))
	return b.String()
}

// BuyMarkup returns the buy button attached to every listing. The callback
// payload carries the stable product id, so the listing stays resolvable even
// if its rendered text changes.
func BuyMarkup(productID string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	btn := markup.Data("Buy", flow.ActionBuy, productID)
	markup.InlineKeyboard = [][]tele.InlineButton{{*btn.Inline()}}
	return markup
}
