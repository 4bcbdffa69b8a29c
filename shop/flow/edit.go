package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/catalog"
)

var editableFields = []MenuOption{
	{Label: "Price", Value: string(catalog.FieldPrice)},
	{Label: "Description", Value: string(catalog.FieldDescription)},
	{Label: "Stock", Value: string(catalog.FieldStock)},
}

// startEdit shows the product selection menu.
func (e *Engine) startEdit(ctx context.Context, key state.Key) error {
	e.sessions.Clear(key)

	options, err := e.productMenu(ctx)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return e.msg.Notify(ctx, key.ChatID, msgNoProducts)
	}

	ref, err := e.msg.Menu(ctx, key.ChatID, msgSelectProduct, MenuEditProduct, options)
	if err != nil {
		return err
	}
	e.sessions.SetTemp(key, tempPrompt, ref)
	e.sessions.Touch(key, e.timeout)
	return nil
}

// pickEditProduct shows the field menu for the chosen product.
func (e *Engine) pickEditProduct(ctx context.Context, key state.Key, productID string) error {
	product, err := e.store.GetByID(ctx, productID)
	if err != nil {
		e.discardPrompt(ctx, key)
		return e.abort(ctx, key, msgGoneProduct)
	}
	e.discardPrompt(ctx, key)

	e.sessions.SetTemp(key, tempProductID, product.ID)
	ref, err := e.msg.Menu(ctx, key.ChatID,
		fmt.Sprintf("Editing %q. %s", product.Title, msgSelectField),
		MenuEditField, editableFields)
	if err != nil {
		return err
	}
	e.sessions.SetTemp(key, tempPrompt, ref)
	e.sessions.Touch(key, e.timeout)
	return nil
}

// pickEditField asks for the link of the published listing.
func (e *Engine) pickEditField(ctx context.Context, key state.Key, raw string) error {
	field, ok := catalog.ParseField(raw)
	if !ok {
		return nil
	}
	e.sessions.SetTemp(key, tempField, string(field))
	return e.prompt(ctx, key, StateEditLink, msgPromptLink)
}

// onEditLink resolves the pasted message link through the listing index. The
// link is authoritative for which product gets edited.
func (e *Engine) onEditLink(ctx context.Context, key state.Key, ev MessageReceived) error {
	e.consume(ctx, key, ev)

	productID, ref, err := e.listings.ResolveLink(strings.TrimSpace(ev.Text))
	if err != nil {
		return e.abort(ctx, key, msgBadLink)
	}
	product, err := e.store.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return e.abort(ctx, key, msgGoneProduct)
		}
		return e.abort(ctx, key, msgUpdateFailed)
	}

	e.sessions.SetTemp(key, tempProductID, product.ID)
	e.sessions.SetTemp(key, tempTitle, product.Title)
	e.sessions.SetTemp(key, tempListingRef, ref)
	return e.prompt(ctx, key, StateEditValue, msgPromptValue)
}

// onEditValue applies the field update and refreshes the listing in place.
func (e *Engine) onEditValue(ctx context.Context, key state.Key, ev MessageReceived) error {
	e.consume(ctx, key, ev)

	title, _ := e.sessions.GetTempString(key, tempTitle)
	rawField, _ := e.sessions.GetTempString(key, tempField)
	field, ok := catalog.ParseField(rawField)
	if !ok {
		return e.abort(ctx, key, msgUpdateFailed)
	}

	updated, err := e.store.UpdateField(ctx, title, field, ev.Text)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidValue) {
			// Same step again; the stored price is untouched.
			return e.prompt(ctx, key, StateEditValue, msgInvalidPrice)
		}
		if errors.Is(err, catalog.ErrNotFound) {
			return e.abort(ctx, key, msgGoneProduct)
		}
		return e.abort(ctx, key, msgUpdateFailed)
	}

	var ref MessageRef
	if v, ok := e.sessions.GetTemp(key, tempListingRef); ok {
		ref, _ = v.(MessageRef)
	}
	e.sessions.Clear(key)

	if err := e.pub.Republish(ctx, updated, ref); err != nil {
		return e.msg.Notify(ctx, key.ChatID, msgRefreshFailed)
	}
	return e.msg.Notify(ctx, key.ChatID, msgUpdated)
}
