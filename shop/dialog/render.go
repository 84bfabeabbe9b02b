package dialog

import (
	"fmt"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/shop/commerce"
)

const (
	msgChooseProduct   = "Choose a product"
	msgProductNotFound = "Product not found"
	msgAddedToCart     = "Product added to cart!"
	msgItemRemoved     = "✅ Item removed"
	msgRemoveFailed    = "Could not remove item"
	msgCartCleared     = "✅ Cart cleared"
	msgClearFailed     = "❌ Could not clear the cart"
	msgCartEmpty       = "🛒 *Your cart is empty*"
	msgCheckoutPrompt  = "*Checkout*\n\nPlease enter your email:\n(Example: example@email.com)"
	msgInvalidEmail    = "❌ Please enter a valid email address.\nExample: example@email.com"
	msgOrderFailed     = "❌ Could not place the order. Please try again later."
	msgCancelled       = "❌ Checkout cancelled."
	msgFailure         = "❌ Something went wrong. Please try again."

	labelMyCart     = "My cart"
	labelAddToCart  = "Add to cart"
	labelBack       = "Back"
	labelBackToMenu = "Back to menu"
	labelClearCart  = "Clear cart"
	labelCheckout   = "Checkout"
	labelCancel     = "Cancel"
)

func catalogueReply(products []commerce.Product) Reply {
	kb := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		kb = append(kb, row(btn(p.Title, ActProduct, p.ID)))
	}
	kb = append(kb, row(btn(labelMyCart, ActViewCart, "")))
	return Reply{Text: msgChooseProduct, Keyboard: kb}
}

func productReply(p commerce.Product, img []byte) Reply {
	return Reply{
		Text:  commerce.ProductCaption(p),
		Photo: img,
		Keyboard: [][]Button{
			row(btn(labelAddToCart, ActBuy, p.ID)),
			row(btn(labelMyCart, ActViewCart, "")),
			row(btn(labelBack, ActBackToMenu, "")),
		},
	}
}

// CartText renders the cart body in Markdown.
func CartText(details commerce.CartDetails) string {
	if details.Empty() {
		return msgCartEmpty
	}
	var b strings.Builder
	b.WriteString("🛒 *Your cart:*\n")
	for i, li := range details.Items {
		fmt.Fprintf(&b, "\n%d. *%s*\n   Quantity: %s × %s = %s",
			i+1,
			format.Escape(li.Title),
			commerce.FormatAmount(li.Quantity),
			commerce.FormatAmount(li.UnitPrice),
			commerce.FormatAmount(li.Total()),
		)
	}
	fmt.Fprintf(&b, "\n\n*Total:* %s", commerce.FormatAmount(details.Total()))
	return b.String()
}

func cartReply(details commerce.CartDetails) Reply {
	back := row(btn(labelBack, ActBackToMenu, ""))
	if details.Empty() {
		return Reply{Text: CartText(details), Markdown: true, Keyboard: [][]Button{back}}
	}
	kb := make([][]Button, 0, len(details.Items)+2)
	for _, li := range details.Items {
		kb = append(kb, row(btn("❌ Remove "+li.Title, ActRemove, li.ID)))
	}
	kb = append(kb,
		row(btn(labelClearCart, ActClearCart, ""), btn(labelCheckout, ActPay, "")),
		back,
	)
	return Reply{Text: CartText(details), Markdown: true, Keyboard: kb}
}

// ReceiptText renders the order confirmation in Markdown.
func ReceiptText(r commerce.Receipt) string {
	var b strings.Builder
	b.WriteString("✅ *Order placed!*\n\n")
	fmt.Fprintf(&b, "Your email: `%s`\n", codeSpan(r.Order.Email))
	fmt.Fprintf(&b, "Order number: `%s`\n", codeSpan(r.Order.ID))
	fmt.Fprintf(&b, "Order total: *%s*\n", commerce.FormatAmount(r.Total))
	fmt.Fprintf(&b, "Items in order: *%d*\n", len(r.Items))
	if len(r.Items) > 0 {
		b.WriteString("\n*Order items:*\n")
		for _, li := range r.Items {
			fmt.Fprintf(&b, "   • %s - %s pcs × %s\n",
				format.Escape(li.Title),
				commerce.FormatAmount(li.Quantity),
				commerce.FormatAmount(li.UnitPrice),
			)
		}
	}
	b.WriteString("\nThank you for your purchase!")
	return b.String()
}

// codeSpan makes s safe inside a legacy Markdown code span, which has no
// escape for a backtick.
func codeSpan(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

// ValidEmail keeps the deliberately loose check: the trimmed text must
// contain both "@" and ".".
func ValidEmail(text string) bool {
	text = strings.TrimSpace(text)
	return strings.Contains(text, "@") && strings.Contains(text, ".")
}
