package listing

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/flow"
)

// Sender posts and edits listing messages in a channel.
type Sender interface {
	Send(chatID int64, text string, markup *tele.ReplyMarkup) (flow.MessageRef, error)
	Edit(ref flow.MessageRef, text string, markup *tele.ReplyMarkup) error
}

// Publisher renders product listings and keeps the listing index in sync with
// what was posted.
type Publisher struct {
	sender Sender
	index  *Index
}

func NewPublisher(sender Sender, index *Index) *Publisher {
	return &Publisher{sender: sender, index: index}
}

// Publish posts a fresh listing for p into chatID and records it in the index.
func (pub *Publisher) Publish(ctx context.Context, p *catalog.Product, chatID int64) (flow.MessageRef, error) {
	ref, err := pub.sender.Send(chatID, Render(p), BuyMarkup(p.ID))
	if err != nil {
		logger.Warn(ctx, "service.listing", "listing.publish",
			slog.String("status", "fail"),
			slog.String("product_id", p.ID),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return flow.MessageRef{}, fmt.Errorf("%w: %v", flow.ErrChannelUnavailable, err)
	}
	if err := pub.index.Record(ref, p.ID); err != nil {
		logger.Warn(ctx, "service.listing", "listing.index",
			slog.String("status", "fail"),
			slog.String("product_id", p.ID),
			slog.String("err", err.Error()),
		)
	}
	logger.Info(ctx, "service.listing", "listing.publish",
		slog.String("product_id", p.ID),
		slog.Int64("chat_id", ref.ChatID),
		slog.Int("message_id", ref.MessageID),
	)
	return ref, nil
}

// Republish rewrites an existing listing message in place after p changed.
func (pub *Publisher) Republish(ctx context.Context, p *catalog.Product, ref flow.MessageRef) error {
	if err := pub.sender.Edit(ref, Render(p), BuyMarkup(p.ID)); err != nil {
		logger.Warn(ctx, "service.listing", "listing.republish",
			slog.String("status", "fail"),
			slog.String("product_id", p.ID),
			slog.Int64("chat_id", ref.ChatID),
			slog.Int("message_id", ref.MessageID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%w: %v", flow.ErrMessageUnavailable, err)
	}
	logger.Info(ctx, "service.listing", "listing.republish",
		slog.String("product_id", p.ID),
		slog.Int64("chat_id", ref.ChatID),
		slog.Int("message_id", ref.MessageID),
	)
	return nil
}
