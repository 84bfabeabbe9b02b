package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/metrics"
	"github.com/m3rciful/shopbot/shop/commerce"
)

// checkout places the order for the user's cart and empties it afterwards.
// Order creation and cleanup are separate backend calls with no rollback:
// a failed cleanup leaves items in the cart but the order stands and the
// confirmation is still shown. Checkout always ends in Start: once it has
// run, a retry from WaitingEmail could place a second order.
func (e *Engine) checkout(ctx context.Context, userID int64, rawEmail string, tr Transport) (State, error) {
	email := strings.TrimSpace(rawEmail)

	receipt, err := e.placeOrder(ctx, userID, email)
	if err != nil {
		e.metrics.Checkout(metrics.OutcomeFail)
		logger.Error(ctx, component, "checkout.failed", logger.Err(err))
		if err := tr.Send(Reply{Text: msgOrderFailed}); err != nil {
			logger.Warn(ctx, component, "checkout.reply_failed", logger.Err(err))
		}
		return e.leaveCheckout(ctx, tr), nil
	}
	e.metrics.Checkout(metrics.OutcomeOK)
	logger.Info(ctx, component, "checkout.order_created",
		slog.String("order_id", receipt.Order.ID),
		slog.String("cart_id", receipt.Order.CartID),
		slog.Int("items", len(receipt.Items)),
	)

	if err := e.cleanupCart(ctx, receipt.Items); err != nil {
		logger.Warn(ctx, component, "checkout.cleanup_failed",
			slog.String("order_id", receipt.Order.ID),
			logger.Err(err),
		)
	}

	if err := tr.Send(Reply{Text: ReceiptText(receipt), Markdown: true}); err != nil {
		logger.Warn(ctx, component, "checkout.reply_failed", logger.Err(err))
	}
	if err := e.notifier.OrderPlaced(ctx, receipt); err != nil {
		logger.Warn(ctx, component, "checkout.mail_failed",
			slog.String("order_id", receipt.Order.ID),
			logger.Err(err),
		)
	}
	return e.leaveCheckout(ctx, tr), nil
}

// leaveCheckout shows the catalogue on a best-effort basis and resets the
// conversation whether or not that worked.
func (e *Engine) leaveCheckout(ctx context.Context, tr Transport) State {
	if err := e.showCatalogue(ctx, tr); err != nil {
		logger.Warn(ctx, component, "checkout.catalogue_failed", logger.Err(err))
	}
	return Start
}

func (e *Engine) placeOrder(ctx context.Context, userID int64, email string) (commerce.Receipt, error) {
	cartID, err := e.shop.GetOrCreateCart(ctx, userID)
	if err != nil {
		return commerce.Receipt{}, fmt.Errorf("get cart: %w", err)
	}
	details, err := e.shop.GetCartDetails(ctx, cartID)
	if err != nil {
		return commerce.Receipt{}, fmt.Errorf("snapshot cart: %w", err)
	}
	order, err := e.shop.CreateOrder(ctx, cartID, email)
	if err != nil {
		return commerce.Receipt{}, fmt.Errorf("create order: %w", err)
	}
	return commerce.NewReceipt(order, details), nil
}

// cleanupCart deletes every snapshot line item, attempting all of them.
func (e *Engine) cleanupCart(ctx context.Context, items []commerce.LineItem) error {
	var result *multierror.Error
	for _, li := range items {
		if err := e.shop.DeleteLineItem(ctx, li.ID); err != nil {
			result = multierror.Append(result, fmt.Errorf("delete %s: %w", li.ID, err))
		}
	}
	return result.ErrorOrNil()
}
