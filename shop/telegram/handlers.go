package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/flow"
)

const (
	menuText    = "Manage catalog:"
	buyResponse = "Contact the shop owner to complete the purchase."
)

// HandlerOptions tunes the registered handlers.
type HandlerOptions struct {
	// MenuTTL is how long the /shop menu stays on screen before it is
	// removed.
	MenuTTL time.Duration
}

// RegisterHandlers wires the /shop command, the inline callbacks and the
// conversation states into the registry. The /shop command is admin-only; the
// wrapping happens in the command router.
func RegisterHandlers(reg *tg.Registry, eng *flow.Engine, opts HandlerOptions) {
	if opts.MenuTTL <= 0 {
		opts.MenuTTL = 5 * time.Second
	}

	reg.RegisterCommand("/shop", commands.Command{
		Handler:     shopMenuHandler(opts.MenuTTL),
		Description: "Manage the product catalog",
		AdminOnly:   true,
	})

	// Action buttons of the /shop menu start conversations.
	for _, action := range []string{flow.ActionAdd, flow.ActionEdit, flow.ActionDelete} {
		action := action
		_ = reg.RegisterCallback(action, func(c tele.Context) error {
			_ = c.Delete()
			return eng.Dispatch(tghelpers.BuildContext(c), state.KeyFrom(c), flow.ButtonPressed{Action: action})
		})
	}

	// Option menus press back as (action, value).
	for _, action := range []string{flow.MenuEditProduct, flow.MenuEditField, flow.MenuDeleteProduct} {
		action := action
		_ = reg.RegisterCallback(action, func(c tele.Context) error {
			return eng.Dispatch(tghelpers.BuildContext(c), state.KeyFrom(c), flow.MenuSelected{
				Action: action,
				Value:  callbacks.CallbackPayload(c),
			})
		})
	}

	// Buy buttons on published listings are acknowledged only.
	_ = reg.RegisterCallback(flow.ActionBuy, func(c tele.Context) error {
		// The router already answered the query; a second answer is best
		// effort and may be rejected.
		_ = c.Respond(&tele.CallbackResponse{Text: buyResponse})
		return nil
	})

	// Plain text while a conversation is active feeds the current step.
	messageHandler := func(c tele.Context) error {
		msg := c.Message()
		if msg == nil {
			return nil
		}
		return eng.Dispatch(tghelpers.BuildContext(c), state.KeyFrom(c), flow.MessageReceived{
			Text: c.Text(),
			Ref:  flow.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID},
		})
	}
	for _, st := range []state.State{
		flow.StateAddTitle,
		flow.StateAddPrice,
		flow.StateAddDescription,
		flow.StateAddStock,
		flow.StateAddChannel,
		flow.StateEditLink,
		flow.StateEditValue,
	} {
		state.RegisterHandler(st, messageHandler)
	}
}

// shopMenuHandler deletes the invoking command, shows the action menu and
// removes the menu again after ttl so stale menus do not linger in the chat.
func shopMenuHandler(ttl time.Duration) tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = c.Delete()

		markup := keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "➕ Add product", Unique: flow.ActionAdd},
			{Text: "✏️ Edit product", Unique: flow.ActionEdit},
			{Text: "🗑 Delete product", Unique: flow.ActionDelete},
		})
		menu, err := c.Bot().Send(c.Chat(), menuText, markup)
		if err != nil {
			return err
		}

		bot := c.Bot()
		time.AfterFunc(ttl, func() {
			_ = bot.Delete(menu)
		})
		return nil
	}
}
