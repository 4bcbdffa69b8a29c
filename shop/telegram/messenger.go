// Package telegram adapts the conversation engine and the listing publisher
// to telebot. It decodes updates into flow events and implements the outbound
// ports over the bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/shop/flow"
)

var errNotBound = errors.New("telegram: adapter not bound to a bot")

// Adapter implements flow.Messenger and listing.Sender over a telebot bot.
// The bot is bound at startup, after the runtime has built it; no update can
// reach the adapter before that.
type Adapter struct {
	bot atomic.Pointer[tele.Bot]
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// Bind attaches the running bot.
func (a *Adapter) Bind(bot *tele.Bot) {
	a.bot.Store(bot)
}

func (a *Adapter) current() (*tele.Bot, error) {
	bot := a.bot.Load()
	if bot == nil {
		return nil, errNotBound
	}
	return bot, nil
}

func refOf(msg *tele.Message) flow.MessageRef {
	if msg == nil {
		return flow.MessageRef{}
	}
	return flow.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
}

func stored(ref flow.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}
}

// Prompt sends a question to the operator and returns its reference so the
// conversation can discard it later. The force-reply markup surfaces the
// reply UI for the awaited answer.
func (a *Adapter) Prompt(ctx context.Context, chatID int64, text string) (flow.MessageRef, error) {
	bot, err := a.current()
	if err != nil {
		return flow.MessageRef{}, err
	}
	msg, err := bot.Send(tele.ChatID(chatID), text, keyboard.ForceReply())
	if err != nil {
		return flow.MessageRef{}, fmt.Errorf("telegram: send prompt: %w", err)
	}
	return refOf(msg), nil
}

// Menu sends a selection keyboard where each option presses back as
// (action, option value).
func (a *Adapter) Menu(ctx context.Context, chatID int64, text, action string, options []flow.MenuOption) (flow.MessageRef, error) {
	buttons := make([]keyboard.InlineBtn, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   opt.Label,
			Unique: action,
			Data:   opt.Value,
		})
	}
	bot, err := a.current()
	if err != nil {
		return flow.MessageRef{}, err
	}
	msg, err := bot.Send(tele.ChatID(chatID), text, keyboard.InlineButtons(buttons))
	if err != nil {
		return flow.MessageRef{}, fmt.Errorf("telegram: send menu: %w", err)
	}
	return refOf(msg), nil
}

// Notify sends a plain notice without tracking it.
func (a *Adapter) Notify(ctx context.Context, chatID int64, text string) error {
	bot, err := a.current()
	if err != nil {
		return err
	}
	if _, err := bot.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("telegram: send notice: %w", err)
	}
	return nil
}

// Delete removes a message from the conversation transcript. Telegram refuses
// deletes of old messages; callers treat failures as non-fatal.
func (a *Adapter) Delete(ctx context.Context, ref flow.MessageRef) error {
	if ref.Zero() {
		return nil
	}
	bot, err := a.current()
	if err != nil {
		return err
	}
	return bot.Delete(stored(ref))
}

// ResolveChannel maps operator input, a numeric chat id or an @username, to a
// chat the bot can post into.
func (a *Adapter) ResolveChannel(ctx context.Context, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, flow.ErrChannelUnavailable
	}

	bot, err := a.current()
	if err != nil {
		return 0, err
	}

	var chat *tele.Chat
	if id, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
		chat, err = bot.ChatByID(id)
	} else {
		if !strings.HasPrefix(raw, "@") {
			raw = "@" + raw
		}
		chat, err = bot.ChatByUsername(raw)
	}
	if err != nil || chat == nil {
		return 0, fmt.Errorf("%w: %s", flow.ErrChannelUnavailable, raw)
	}
	return chat.ID, nil
}

// Send posts a Markdown listing message. Part of listing.Sender.
func (a *Adapter) Send(chatID int64, text string, markup *tele.ReplyMarkup) (flow.MessageRef, error) {
	bot, err := a.current()
	if err != nil {
		return flow.MessageRef{}, err
	}
	msg, err := bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: markup,
	})
	if err != nil {
		return flow.MessageRef{}, err
	}
	return refOf(msg), nil
}

// Edit rewrites a published listing in place. Part of listing.Sender.
func (a *Adapter) Edit(ref flow.MessageRef, text string, markup *tele.ReplyMarkup) error {
	bot, err := a.current()
	if err != nil {
		return err
	}
	_, err = bot.Edit(stored(ref), text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: markup,
	})
	return err
}
