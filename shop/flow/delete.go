package flow

import (
	"context"
	"errors"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/catalog"
)

// startDelete shows the product selection menu of the delete flow.
func (e *Engine) startDelete(ctx context.Context, key state.Key) error {
	e.sessions.Clear(key)

	options, err := e.productMenu(ctx)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return e.msg.Notify(ctx, key.ChatID, msgNoProducts)
	}

	ref, err := e.msg.Menu(ctx, key.ChatID, msgSelectDelete, MenuDeleteProduct, options)
	if err != nil {
		return err
	}
	e.sessions.SetTemp(key, tempPrompt, ref)
	e.sessions.Touch(key, e.timeout)
	return nil
}

// pickDeleteProduct removes the chosen product and its listing records.
func (e *Engine) pickDeleteProduct(ctx context.Context, key state.Key, productID string) error {
	e.discardPrompt(ctx, key)
	e.sessions.Clear(key)

	product, err := e.store.GetByID(ctx, productID)
	if err != nil {
		return e.msg.Notify(ctx, key.ChatID, msgDeleteGone)
	}
	if err := e.store.Delete(ctx, product.Title); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return e.msg.Notify(ctx, key.ChatID, msgDeleteGone)
		}
		return err
	}
	e.listings.Forget(product.ID)
	return e.msg.Notify(ctx, key.ChatID, msgDeleted)
}
