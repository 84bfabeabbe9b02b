package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/metrics"
	"github.com/m3rciful/shopbot/shop/commerce"
)

// handleStart shows the catalogue. The catalogue is also on screen while the
// stored state is Start (after Back, /start or checkout), so its buttons are
// accepted here as well.
func (e *Engine) handleStart(ctx context.Context, ev Event, tr Transport) (State, error) {
	if ev.Tapped(ActProduct) || ev.Tapped(ActViewCart) {
		return e.handleMenu(ctx, ev, tr)
	}
	if err := e.showCatalogue(ctx, tr); err != nil {
		return Start, err
	}
	if ev.IsReset() {
		return Start, nil
	}
	return Menu, nil
}

func (e *Engine) handleMenu(ctx context.Context, ev Event, tr Transport) (State, error) {
	switch {
	case ev.Tapped(ActProduct):
		return e.showProduct(ctx, ev.Action.Arg, tr)
	case ev.Tapped(ActViewCart):
		e.deletePrevious(ctx, tr)
		return e.showCart(ctx, ev.UserID, tr, false)
	}
	if err := e.showCatalogue(ctx, tr); err != nil {
		return Menu, err
	}
	return Menu, nil
}

func (e *Engine) handleDescription(ctx context.Context, ev Event, tr Transport) (State, error) {
	switch {
	case ev.Tapped(ActBuy):
		cartID, err := e.shop.GetOrCreateCart(ctx, ev.UserID)
		if err != nil {
			return Description, fmt.Errorf("get cart: %w", err)
		}
		if err := e.shop.AddLineItem(ctx, cartID, ev.Action.Arg, 1); err != nil {
			return Description, fmt.Errorf("add line item: %w", err)
		}
		logger.Info(ctx, component, "cart.item_added",
			slog.String("cart_id", cartID),
			slog.String("product_id", ev.Action.Arg),
		)
		e.notify(ctx, tr, msgAddedToCart, false)
		return Description, nil
	case ev.Tapped(ActViewCart):
		e.deletePrevious(ctx, tr)
		return e.showCart(ctx, ev.UserID, tr, false)
	}
	return Description, nil
}

func (e *Engine) handleCart(ctx context.Context, ev Event, tr Transport) (State, error) {
	switch {
	case ev.Tapped(ActRemove):
		if err := e.shop.DeleteLineItem(ctx, ev.Action.Arg); err != nil {
			logger.Warn(ctx, component, "cart.remove_failed",
				slog.String("line_item_id", ev.Action.Arg),
				logger.Err(err),
			)
			e.notify(ctx, tr, msgRemoveFailed, true)
			return Cart, nil
		}
		e.notify(ctx, tr, msgItemRemoved, false)
		return e.showCart(ctx, ev.UserID, tr, true)
	case ev.Tapped(ActClearCart):
		if err := e.shop.ClearCart(ctx, ev.UserID); err != nil {
			logger.Warn(ctx, component, "cart.clear_failed", logger.Err(err))
			e.notify(ctx, tr, msgClearFailed, true)
			return Cart, nil
		}
		e.notify(ctx, tr, msgCartCleared, false)
		e.deletePrevious(ctx, tr)
		return e.showCart(ctx, ev.UserID, tr, false)
	case ev.Tapped(ActPay):
		e.deletePrevious(ctx, tr)
		err := tr.Send(Reply{
			Text:     msgCheckoutPrompt,
			Markdown: true,
			Keyboard: [][]Button{row(btn(labelCancel, ActCancel, ""))},
		})
		if err != nil {
			return Cart, fmt.Errorf("send checkout prompt: %w", err)
		}
		return WaitingEmail, nil
	}
	return Cart, nil
}

func (e *Engine) handleWaitingEmail(ctx context.Context, ev Event, tr Transport) (State, error) {
	if ev.Kind == KindAction {
		err := tr.Edit(Reply{
			Text:     msgCancelled,
			Keyboard: [][]Button{row(btn(labelBackToMenu, ActBackToMenu, ""))},
		})
		if err != nil {
			return WaitingEmail, fmt.Errorf("edit cancellation: %w", err)
		}
		e.metrics.Checkout(metrics.OutcomeCancelled)
		return Menu, nil
	}
	if !ValidEmail(ev.Text) {
		if err := tr.Send(Reply{Text: msgInvalidEmail}); err != nil {
			return WaitingEmail, fmt.Errorf("send reprompt: %w", err)
		}
		return WaitingEmail, nil
	}
	return e.checkout(ctx, ev.UserID, ev.Text, tr)
}

// toCatalogue renders the catalogue and resets the conversation.
func (e *Engine) toCatalogue(ctx context.Context, tr Transport) (State, error) {
	if err := e.showCatalogue(ctx, tr); err != nil {
		return Start, err
	}
	return Start, nil
}

func (e *Engine) showCatalogue(ctx context.Context, tr Transport) error {
	products, err := e.shop.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if err := tr.Send(catalogueReply(products)); err != nil {
		return fmt.Errorf("send catalogue: %w", err)
	}
	return nil
}

func (e *Engine) showProduct(ctx context.Context, productID string, tr Transport) (State, error) {
	p, err := e.shop.GetProduct(ctx, productID)
	if errors.Is(err, commerce.ErrNotFound) {
		e.notify(ctx, tr, msgProductNotFound, true)
		return Menu, nil
	}
	if err != nil {
		return Menu, fmt.Errorf("get product: %w", err)
	}
	e.deletePrevious(ctx, tr)

	img, ok, err := e.shop.GetProductImage(ctx, productID)
	if err != nil {
		logger.Warn(ctx, component, "product.image_failed",
			slog.String("product_id", productID),
			logger.Err(err),
		)
	}
	if !ok {
		img = nil
	}
	if err := tr.Send(productReply(p, img)); err != nil {
		return Menu, fmt.Errorf("send product: %w", err)
	}
	return Description, nil
}

// showCart renders the user's cart, editing the tapped message in place
// when edit is set.
func (e *Engine) showCart(ctx context.Context, userID int64, tr Transport, edit bool) (State, error) {
	cartID, err := e.shop.GetOrCreateCart(ctx, userID)
	if err != nil {
		return Cart, fmt.Errorf("get cart: %w", err)
	}
	details, err := e.shop.GetCartDetails(ctx, cartID)
	if err != nil {
		return Cart, fmt.Errorf("get cart details: %w", err)
	}
	reply := cartReply(details)
	if edit {
		err = tr.Edit(reply)
	} else {
		err = tr.Send(reply)
	}
	if err != nil {
		return Cart, fmt.Errorf("send cart: %w", err)
	}
	return Cart, nil
}

func (e *Engine) notify(ctx context.Context, tr Transport, text string, alert bool) {
	if err := tr.Notify(text, alert); err != nil {
		logger.Warn(ctx, component, "notify.failed", logger.Err(err))
	}
}
