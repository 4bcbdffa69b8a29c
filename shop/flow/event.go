package flow

// Actions carried by inline buttons and menus. The values double as telebot
// callback uniques, so they must stay within [A-Za-z0-9_].
const (
	// ActionAdd starts the add-product conversation.
	ActionAdd = "shop_add"
	// ActionEdit starts the edit-product conversation.
	ActionEdit = "shop_edit"
	// ActionDelete starts the delete-product conversation.
	ActionDelete = "shop_del"
	// ActionBuy is attached to published listings; purchases are out of scope
	// and the press is only acknowledged.
	ActionBuy = "shop_buy"

	// MenuEditProduct carries the chosen product id of the edit flow.
	MenuEditProduct = "shop_edit_pick"
	// MenuEditField carries the chosen field of the edit flow.
	MenuEditField = "shop_edit_field"
	// MenuDeleteProduct carries the chosen product id of the delete flow.
	MenuDeleteProduct = "shop_del_pick"
)

// Event is the tagged union of inbound UI events. Updates are decoded into
// exactly one of ButtonPressed, MenuSelected or MessageReceived at the
// platform boundary; Dispatch pattern-matches on (current state, event) and
// ignores shapes it does not expect.
type Event interface {
	isEvent()
}

// ButtonPressed reports a press on an action button.
type ButtonPressed struct {
	Action string
}

// MenuSelected reports a selection from an option menu.
type MenuSelected struct {
	Action string
	Value  string
}

// MessageReceived reports a plain text message from the session's user in the
// session's chat.
type MessageReceived struct {
	Text string
	Ref  MessageRef
}

func (ButtonPressed) isEvent()   {}
func (MenuSelected) isEvent()    {}
func (MessageReceived) isEvent() {}
