package listing

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/flow"
)

func TestRenderCountsStockWithoutExposingKeys(t *testing.T) {
	p := &catalog.Product{
		Title:       "Steam Key",
		Price:       "19.99",
		Description: "A fine game",
		Stock:       []string{"SECRET-AAA", "SECRET-BBB"},
		Currency:    "BRL",
	}
	text := Render(p)

	if !strings.Contains(text, "Steam Key") || !strings.Contains(text, "19.99") {
		t.Fatalf("render missing fields: %s", text)
	}
	if !strings.Contains(text, "2") {
		t.Fatalf("render missing stock count: %s", text)
	}
	if strings.Contains(text, "SECRET") {
		t.Fatalf("render leaked stock keys: %s", text)
	}
}

func TestBuyMarkupCarriesProductID(t *testing.T) {
	markup := BuyMarkup("prod-1")
	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("unexpected keyboard shape: %+v", markup.InlineKeyboard)
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.Unique != flow.ActionBuy || btn.Data != "prod-1" {
		t.Fatalf("button = %q %q", btn.Unique, btn.Data)
	}
}

func TestParseMessageLink(t *testing.T) {
	ref, err := ParseMessageLink("https://t.me/c/123456789/42")
	if err != nil {
		t.Fatalf("ParseMessageLink: %v", err)
	}
	if ref.ChatID != -1_000_123_456_789 || ref.MessageID != 42 {
		t.Fatalf("ref = %+v", ref)
	}

	ref, err = ParseMessageLink("-1000123456789/42")
	if err != nil {
		t.Fatalf("ParseMessageLink raw pair: %v", err)
	}
	if ref.ChatID != -1_000_123_456_789 || ref.MessageID != 42 {
		t.Fatalf("ref = %+v", ref)
	}

	for _, raw := range []string{"", "t.me/somechannel", "https://t.me/c/abc/42", "t.me/c/1/2/3/4"} {
		if _, err := ParseMessageLink(raw); !errors.Is(err, flow.ErrListingNotFound) {
			t.Fatalf("ParseMessageLink(%q) = %v, expected ErrListingNotFound", raw, err)
		}
	}
}

func TestIndexRecordResolveForget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	idx, err := NewIndex(path)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	ref := flow.MessageRef{ChatID: -1_000_123_456_789, MessageID: 42}
	if err := idx.Record(ref, "prod-1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	productID, gotRef, err := idx.ResolveLink("https://t.me/c/123456789/42")
	if err != nil {
		t.Fatalf("ResolveLink: %v", err)
	}
	if productID != "prod-1" || gotRef != ref {
		t.Fatalf("resolved %s %+v", productID, gotRef)
	}

	// The index survives a reload.
	idx, err = NewIndex(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, _, err := idx.ResolveLink("https://t.me/c/123456789/42"); err != nil {
		t.Fatalf("ResolveLink after reload: %v", err)
	}

	idx.Forget("prod-1")
	if _, _, err := idx.ResolveLink("https://t.me/c/123456789/42"); !errors.Is(err, flow.ErrListingNotFound) {
		t.Fatalf("ResolveLink after forget = %v", err)
	}
}

func TestIndexUnknownLink(t *testing.T) {
	idx, err := NewIndex(filepath.Join(t.TempDir(), "listings.json"))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if _, _, err := idx.ResolveLink("https://t.me/c/1/1"); !errors.Is(err, flow.ErrListingNotFound) {
		t.Fatalf("ResolveLink = %v", err)
	}
}

type fakeSender struct {
	sent    []string
	edited  []string
	refs    []flow.MessageRef
	sendErr error
	editErr error
}

func (s *fakeSender) Send(chatID int64, text string, markup *tele.ReplyMarkup) (flow.MessageRef, error) {
	if s.sendErr != nil {
		return flow.MessageRef{}, s.sendErr
	}
	s.sent = append(s.sent, text)
	return flow.MessageRef{ChatID: chatID, MessageID: len(s.sent)}, nil
}

func (s *fakeSender) Edit(ref flow.MessageRef, text string, markup *tele.ReplyMarkup) error {
	if s.editErr != nil {
		return s.editErr
	}
	s.edited = append(s.edited, text)
	s.refs = append(s.refs, ref)
	return nil
}

func TestPublisherRecordsListings(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "listings.json"))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	sender := &fakeSender{}
	pub := NewPublisher(sender, idx)

	p := &catalog.Product{ID: "prod-1", Title: "Game", Price: "5", Currency: "BRL"}
	ref, err := pub.Publish(ctx, p, -100555)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ref.ChatID != -100555 {
		t.Fatalf("ref = %+v", ref)
	}

	link := strconv.FormatInt(ref.ChatID, 10) + "/" + strconv.Itoa(ref.MessageID)
	productID, _, err := idx.ResolveLink(link)
	if err != nil || productID != "prod-1" {
		t.Fatalf("index lookup after publish: %s %v", productID, err)
	}

	if err := pub.Republish(ctx, p, ref); err != nil {
		t.Fatalf("Republish: %v", err)
	}
	if len(sender.edited) != 1 || sender.refs[0] != ref {
		t.Fatalf("edit calls: %v %v", sender.edited, sender.refs)
	}
}

func TestPublisherWrapsTransportErrors(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "listings.json"))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	sender := &fakeSender{sendErr: errors.New("telegram: 403"), editErr: errors.New("telegram: message to edit not found")}
	pub := NewPublisher(sender, idx)

	p := &catalog.Product{ID: "prod-1", Title: "Game"}
	if _, err := pub.Publish(ctx, p, -1); !errors.Is(err, flow.ErrChannelUnavailable) {
		t.Fatalf("Publish err = %v", err)
	}
	if err := pub.Republish(ctx, p, flow.MessageRef{ChatID: -1, MessageID: 1}); !errors.Is(err, flow.ErrMessageUnavailable) {
		t.Fatalf("Republish err = %v", err)
	}
}
