package flow

import (
	"context"
	"errors"

	"github.com/m3rciful/shopbot/shop/catalog"
)

var (
	// ErrChannelUnavailable is returned when a channel id does not resolve to a
	// chat the bot can post text into.
	ErrChannelUnavailable = errors.New("flow: channel unavailable")
	// ErrMessageUnavailable is returned when a previously published message can
	// no longer be edited.
	ErrMessageUnavailable = errors.New("flow: message unavailable")
	// ErrListingNotFound is returned when a message reference does not resolve
	// to a known listing.
	ErrListingNotFound = errors.New("flow: listing not found")
)

// MessageRef identifies one message in one chat.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Zero reports whether the reference is unset.
func (r MessageRef) Zero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// MenuOption is one selectable entry of an option menu.
type MenuOption struct {
	Label string
	Value string
}

// Messenger is the narrow surface of the chat platform used by conversations:
// prompting, selection menus, notices, transcript deletion and channel
// resolution. The telebot adapter implements it in production; tests use a
// fake.
type Messenger interface {
	Prompt(ctx context.Context, chatID int64, text string) (MessageRef, error)
	Menu(ctx context.Context, chatID int64, text, action string, options []MenuOption) (MessageRef, error)
	Notify(ctx context.Context, chatID int64, text string) error
	Delete(ctx context.Context, ref MessageRef) error

	// ResolveChannel maps raw operator input to a text-capable chat id,
	// returning ErrChannelUnavailable otherwise.
	ResolveChannel(ctx context.Context, raw string) (int64, error)
}

// Publisher renders and maintains the externally visible listings.
type Publisher interface {
	Publish(ctx context.Context, p *catalog.Product, chatID int64) (MessageRef, error)
	Republish(ctx context.Context, p *catalog.Product, ref MessageRef) error
}

// ListingResolver maps a pasted message link back to the product whose listing
// the message carries. Resolution goes through the persisted listing index,
// not through re-parsing rendered text.
type ListingResolver interface {
	// ResolveLink returns the product id and message reference for a link,
	// or ErrListingNotFound.
	ResolveLink(raw string) (string, MessageRef, error)
	// Forget drops all recorded listings of a product.
	Forget(productID string)
}
