package flow

import (
	"context"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/catalog"
	"log/slog"
)

// Conversation states. Each one awaits exactly one more message from the
// session's (user, chat) key.
const (
	StateAddTitle       state.State = "add_title"
	StateAddPrice       state.State = "add_price"
	StateAddDescription state.State = "add_description"
	StateAddStock       state.State = "add_stock"
	StateAddChannel     state.State = "add_channel"
	StateEditLink       state.State = "edit_link"
	StateEditValue      state.State = "edit_value"
)

// Temp data slots of a session.
const (
	tempTitle       = "title"
	tempPrice       = "price"
	tempDescription = "description"
	tempStock       = "stock"
	tempProductID   = "product_id"
	tempField       = "field"
	tempListingRef  = "listing_ref"
	tempPrompt      = "prompt_ref"
)

const defaultSessionTimeout = 60 * time.Second

// Options tunes the engine.
type Options struct {
	// SessionTimeout bounds every awaiting step; expired sessions abort
	// without store mutations.
	SessionTimeout time.Duration
	// Currency is attached to every created product.
	Currency string
}

// Engine drives the shop conversations. A single Dispatch call advances (or
// starts) the session identified by key according to (current state, event);
// everything it touches besides the session map sits behind the collaborator
// ports.
type Engine struct {
	store    catalog.Store
	sessions state.Manager
	msg      Messenger
	pub      Publisher
	listings ListingResolver
	timeout  time.Duration
	currency string
}

// NewEngine wires the conversation engine.
func NewEngine(store catalog.Store, sessions state.Manager, msg Messenger, pub Publisher, listings ListingResolver, opts Options) *Engine {
	timeout := opts.SessionTimeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	currency := opts.Currency
	if currency == "" {
		currency = "BRL"
	}
	return &Engine{
		store:    store,
		sessions: sessions,
		msg:      msg,
		pub:      pub,
		listings: listings,
		timeout:  timeout,
		currency: currency,
	}
}

// Sessions exposes the session manager for routing decisions.
func (e *Engine) Sessions() state.Manager {
	return e.sessions
}

// Dispatch routes one inbound event to the session identified by key. Events
// the current state does not expect are ignored, not consumed.
func (e *Engine) Dispatch(ctx context.Context, key state.Key, ev Event) error {
	switch ev := ev.(type) {
	case ButtonPressed:
		switch ev.Action {
		case ActionAdd:
			return e.startAdd(ctx, key)
		case ActionEdit:
			return e.startEdit(ctx, key)
		case ActionDelete:
			return e.startDelete(ctx, key)
		}
	case MenuSelected:
		switch ev.Action {
		case MenuEditProduct:
			return e.pickEditProduct(ctx, key, ev.Value)
		case MenuEditField:
			return e.pickEditField(ctx, key, ev.Value)
		case MenuDeleteProduct:
			return e.pickDeleteProduct(ctx, key, ev.Value)
		}
	case MessageReceived:
		switch e.sessions.GetState(key) {
		case StateAddTitle:
			return e.onAddTitle(ctx, key, ev)
		case StateAddPrice:
			return e.onAddPrice(ctx, key, ev)
		case StateAddDescription:
			return e.onAddDescription(ctx, key, ev)
		case StateAddStock:
			return e.onAddStock(ctx, key, ev)
		case StateAddChannel:
			return e.onAddChannel(ctx, key, ev)
		case StateEditLink:
			return e.onEditLink(ctx, key, ev)
		case StateEditValue:
			return e.onEditValue(ctx, key, ev)
		}
	}

	logger.Debug(ctx, "service.flow", "flow.ignored",
		slog.Int64("user_id", key.UserID),
		slog.Int64("chat_id", key.ChatID),
		slog.String("state", string(e.sessions.GetState(key))),
	)
	return nil
}

// RunJanitor sweeps expired sessions until ctx is done. Aborted sessions have
// performed zero store mutations; the user is informed once.
func (e *Engine) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.SweepExpired(ctx, now)
		}
	}
}

// SweepExpired aborts every session whose deadline passed before now.
func (e *Engine) SweepExpired(ctx context.Context, now time.Time) {
	for _, key := range e.sessions.Expired(now) {
		st := e.sessions.GetState(key)
		e.discardPrompt(ctx, key)
		e.sessions.Clear(key)
		logger.Info(ctx, "service.flow", "flow.timeout",
			slog.Int64("user_id", key.UserID),
			slog.Int64("chat_id", key.ChatID),
			slog.String("state", string(st)),
		)
		if err := e.msg.Notify(ctx, key.ChatID, msgTimeout); err != nil {
			logger.Warn(ctx, "service.flow", "flow.timeout_notice",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}
}

// prompt sends a step prompt, remembers it for transcript cleanup, moves the
// session into st and re-arms the deadline.
func (e *Engine) prompt(ctx context.Context, key state.Key, st state.State, text string) error {
	ref, err := e.msg.Prompt(ctx, key.ChatID, text)
	if err != nil {
		return err
	}
	e.sessions.SetTemp(key, tempPrompt, ref)
	e.sessions.SetState(key, st)
	e.sessions.Touch(key, e.timeout)
	return nil
}

// consume removes the answered prompt and the user's reply from the
// transcript. Deletion failures are logged, never fatal.
func (e *Engine) consume(ctx context.Context, key state.Key, ev MessageReceived) {
	if !ev.Ref.Zero() {
		if err := e.msg.Delete(ctx, ev.Ref); err != nil {
			logger.Debug(ctx, "service.flow", "flow.cleanup",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}
	e.discardPrompt(ctx, key)
}

func (e *Engine) discardPrompt(ctx context.Context, key state.Key) {
	v, ok := e.sessions.GetTemp(key, tempPrompt)
	if !ok {
		return
	}
	e.sessions.ClearTemp(key, tempPrompt)
	ref, ok := v.(MessageRef)
	if !ok || ref.Zero() {
		return
	}
	if err := e.msg.Delete(ctx, ref); err != nil {
		logger.Debug(ctx, "service.flow", "flow.cleanup",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// abort clears the session and tells the user why.
func (e *Engine) abort(ctx context.Context, key state.Key, reason string) error {
	e.sessions.Clear(key)
	return e.msg.Notify(ctx, key.ChatID, reason)
}

// productMenu builds menu options labelled by title, carrying product ids.
func (e *Engine) productMenu(ctx context.Context) ([]MenuOption, error) {
	titles, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]MenuOption, 0, len(titles))
	for _, title := range titles {
		p, err := e.store.Get(ctx, title)
		if err != nil {
			continue
		}
		options = append(options, MenuOption{Label: p.Title, Value: p.ID})
	}
	return options, nil
}
