package listing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/shopbot/shop/flow"
)

// privateChatPrefix is what Telegram prepends to the internal channel id when
// forming the full chat id of a supergroup or channel.
const privateChatPrefix = int64(-1_000_000_000_000)

// ParseMessageLink extracts a message reference from a pasted t.me link of the
// form https://t.me/c/<internal>/<message>. The raw "<chat>/<message>" pair is
// accepted as well. Public @username links cannot be mapped to a chat id
// offline and are rejected.
func ParseMessageLink(raw string) (flow.MessageRef, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "telegram.me/")
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	switch {
	case len(parts) == 3 && parts[0] == "c":
		internal, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return flow.MessageRef{}, fmt.Errorf("%w: bad chat id", flow.ErrListingNotFound)
		}
		messageID, err := strconv.Atoi(parts[2])
		if err != nil {
			return flow.MessageRef{}, fmt.Errorf("%w: bad message id", flow.ErrListingNotFound)
		}
		return flow.MessageRef{ChatID: privateChatPrefix - internal, MessageID: messageID}, nil

	case len(parts) == 2:
		chatID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return flow.MessageRef{}, fmt.Errorf("%w: unsupported link", flow.ErrListingNotFound)
		}
		messageID, err := strconv.Atoi(parts[1])
		if err != nil {
			return flow.MessageRef{}, fmt.Errorf("%w: bad message id", flow.ErrListingNotFound)
		}
		return flow.MessageRef{ChatID: chatID, MessageID: messageID}, nil
	}

	return flow.MessageRef{}, fmt.Errorf("%w: unsupported link", flow.ErrListingNotFound)
}
