package flow

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/catalog"

	"github.com/m3rciful/shopbot/core/logger"
	"log/slog"
)

// startAdd opens a fresh add-product conversation for the key. Any previous
// session of the same key is discarded first.
func (e *Engine) startAdd(ctx context.Context, key state.Key) error {
	e.sessions.Clear(key)
	return e.prompt(ctx, key, StateAddTitle, msgPromptTitle)
}

func (e *Engine) onAddTitle(ctx context.Context, key state.Key, ev MessageReceived) error {
	e.consume(ctx, key, ev)

	title := strings.TrimSpace(ev.Text)
	if title == "" {
		return e.prompt(ctx, key, StateAddTitle, msgPromptTitle)
	}
	if _, err := e.store.Get(ctx, title); err == nil {
		return e.prompt(ctx, key, StateAddTitle, msgDuplicateTitle)
	}

	e.sessions.SetTemp(key, tempTitle, title)
	return e.prompt(ctx, key, StateAddPrice, msgPromptPrice)
}

func (e *Engine) onAddPrice(ctx context.Context, key state.Key, ev MessageReceived) error {
	e.consume(ctx, key, ev)

	price := strings.TrimSpace(ev.Text)
	if err := catalog.ValidatePrice(price); err != nil {
		// Recover locally: same step, no state advance.
		return e.prompt(ctx, key, StateAddPrice, msgInvalidPrice)
	}

	e.sessions.SetTemp(key, tempPrice, price)
	return e.prompt(ctx, key, StateAddDescription, msgPromptDescription)
}

func (e *Engine) onAddDescription(ctx context.Context, key state.Key, ev MessageReceived) error {
	e.consume(ctx, key, ev)

	e.sessions.SetTemp(key, tempDescription, strings.TrimSpace(ev.Text))
	return e.prompt(ctx, key, StateAddStock, msgPromptStock)
}

func (e *Engine) onAddStock(ctx context.Context, key state.Key, ev MessageReceived) error {
	e.consume(ctx, key, ev)

	e.sessions.SetTemp(key, tempStock, catalog.SplitKeys(ev.Text))
	return e.prompt(ctx, key, StateAddChannel, msgPromptChannel)
}

// onAddChannel finishes the add flow: only here does the catalog mutate, so an
// aborted session never leaves a partial product behind.
func (e *Engine) onAddChannel(ctx context.Context, key state.Key, ev MessageReceived) error {
	e.consume(ctx, key, ev)

	chatID, err := e.msg.ResolveChannel(ctx, strings.TrimSpace(ev.Text))
	if err != nil {
		return e.prompt(ctx, key, StateAddChannel, msgBadChannel)
	}

	product := e.collectProduct(key)
	e.sessions.Clear(key)

	if err := e.store.Create(ctx, product); err != nil {
		if errors.Is(err, catalog.ErrDuplicateTitle) {
			return e.msg.Notify(ctx, key.ChatID, msgDuplicateTitle)
		}
		logger.Error(ctx, "service.flow", "flow.add",
			slog.String("status", "fail"),
			slog.String("title", logger.SanitizeLimit(product.Title, 64)),
			slog.String("err", err.Error()),
		)
		return e.msg.Notify(ctx, key.ChatID, msgCreateFailed)
	}

	if _, err := e.pub.Publish(ctx, product, chatID); err != nil {
		logger.Warn(ctx, "service.flow", "flow.publish",
			slog.String("status", "fail"),
			slog.String("product_id", product.ID),
			slog.String("err", err.Error()),
		)
		return e.msg.Notify(ctx, key.ChatID, msgPublishFailed)
	}
	return e.msg.Notify(ctx, key.ChatID, msgPublished)
}

// collectProduct assembles the product from the fields gathered so far.
func (e *Engine) collectProduct(key state.Key) *catalog.Product {
	title, _ := e.sessions.GetTempString(key, tempTitle)
	price, _ := e.sessions.GetTempString(key, tempPrice)
	description, _ := e.sessions.GetTempString(key, tempDescription)

	var stock []string
	if v, ok := e.sessions.GetTemp(key, tempStock); ok {
		if keys, ok := v.([]string); ok {
			stock = keys
		}
	}

	return &catalog.Product{
		Title:       title,
		Price:       price,
		Description: description,
		Stock:       stock,
		Currency:    e.currency,
	}
}
