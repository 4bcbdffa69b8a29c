package flow

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/catalog"
)

type menuCall struct {
	text    string
	action  string
	options []MenuOption
}

type fakeMessenger struct {
	nextID   int
	lastSent MessageRef
	prompts  []string
	menus    []menuCall
	notices  []string
	deleted  []MessageRef
	channels map[string]int64
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{channels: map[string]int64{}}
}

func (m *fakeMessenger) ref() MessageRef {
	m.nextID++
	m.lastSent = MessageRef{ChatID: 1, MessageID: m.nextID}
	return m.lastSent
}

func (m *fakeMessenger) hasDeleted(ref MessageRef) bool {
	for _, d := range m.deleted {
		if d == ref {
			return true
		}
	}
	return false
}

func (m *fakeMessenger) Prompt(_ context.Context, chatID int64, text string) (MessageRef, error) {
	m.prompts = append(m.prompts, text)
	return m.ref(), nil
}

func (m *fakeMessenger) Menu(_ context.Context, chatID int64, text, action string, options []MenuOption) (MessageRef, error) {
	m.menus = append(m.menus, menuCall{text: text, action: action, options: options})
	return m.ref(), nil
}

func (m *fakeMessenger) Notify(_ context.Context, chatID int64, text string) error {
	m.notices = append(m.notices, text)
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, ref MessageRef) error {
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *fakeMessenger) ResolveChannel(_ context.Context, raw string) (int64, error) {
	id, ok := m.channels[raw]
	if !ok {
		return 0, ErrChannelUnavailable
	}
	return id, nil
}

func (m *fakeMessenger) lastPrompt(t *testing.T) string {
	t.Helper()
	if len(m.prompts) == 0 {
		t.Fatal("no prompts sent")
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *fakeMessenger) lastNotice(t *testing.T) string {
	t.Helper()
	if len(m.notices) == 0 {
		t.Fatal("no notices sent")
	}
	return m.notices[len(m.notices)-1]
}

type publishCall struct {
	product *catalog.Product
	chatID  int64
}

type fakePublisher struct {
	published   []publishCall
	republished []publishCall
	refs        []MessageRef
	publishErr  error
	editErr     error
}

func (p *fakePublisher) Publish(_ context.Context, product *catalog.Product, chatID int64) (MessageRef, error) {
	if p.publishErr != nil {
		return MessageRef{}, p.publishErr
	}
	p.published = append(p.published, publishCall{product: product.Clone(), chatID: chatID})
	return MessageRef{ChatID: chatID, MessageID: 900 + len(p.published)}, nil
}

func (p *fakePublisher) Republish(_ context.Context, product *catalog.Product, ref MessageRef) error {
	if p.editErr != nil {
		return p.editErr
	}
	p.republished = append(p.republished, publishCall{product: product.Clone(), chatID: ref.ChatID})
	p.refs = append(p.refs, ref)
	return nil
}

type resolverEntry struct {
	productID string
	ref       MessageRef
}

type fakeResolver struct {
	links     map[string]resolverEntry
	forgotten []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{links: map[string]resolverEntry{}}
}

func (r *fakeResolver) ResolveLink(raw string) (string, MessageRef, error) {
	entry, ok := r.links[raw]
	if !ok {
		return "", MessageRef{}, ErrListingNotFound
	}
	return entry.productID, entry.ref, nil
}

func (r *fakeResolver) Forget(productID string) {
	r.forgotten = append(r.forgotten, productID)
}

type fixture struct {
	engine   *Engine
	store    *catalog.FileStore
	msg      *fakeMessenger
	pub      *fakePublisher
	resolver *fakeResolver
	sessions state.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := catalog.NewFileStore(filepath.Join(t.TempDir(), "catalog.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	msg := newFakeMessenger()
	pub := &fakePublisher{}
	resolver := newFakeResolver()
	sessions := state.NewMemoryManager()
	engine := NewEngine(store, sessions, msg, pub, resolver, Options{Currency: "BRL"})
	return &fixture{engine: engine, store: store, msg: msg, pub: pub, resolver: resolver, sessions: sessions}
}

func (f *fixture) send(t *testing.T, key state.Key, text string) {
	t.Helper()
	if err := f.engine.Dispatch(context.Background(), key, MessageReceived{Text: text}); err != nil {
		t.Fatalf("Dispatch(%q): %v", text, err)
	}
}

func (f *fixture) press(t *testing.T, key state.Key, action string) {
	t.Helper()
	if err := f.engine.Dispatch(context.Background(), key, ButtonPressed{Action: action}); err != nil {
		t.Fatalf("Dispatch(press %s): %v", action, err)
	}
}

func (f *fixture) pick(t *testing.T, key state.Key, action, value string) {
	t.Helper()
	if err := f.engine.Dispatch(context.Background(), key, MenuSelected{Action: action, Value: value}); err != nil {
		t.Fatalf("Dispatch(pick %s=%s): %v", action, value, err)
	}
}

func (f *fixture) seed(t *testing.T, p *catalog.Product) *catalog.Product {
	t.Helper()
	if err := f.store.Create(context.Background(), p); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return p
}

var opKey = state.Key{UserID: 10, ChatID: 1}

func TestAddFlowPublishesProduct(t *testing.T) {
	f := newFixture(t)
	f.msg.channels["-100555"] = -100555

	f.press(t, opKey, ActionAdd)
	if got := f.msg.lastPrompt(t); got != msgPromptTitle {
		t.Fatalf("prompt = %q", got)
	}

	f.send(t, opKey, "Steam Key")
	f.send(t, opKey, "19.99")
	f.send(t, opKey, "A fine game")
	f.send(t, opKey, "AAA-1; BBB-2 ;")
	f.send(t, opKey, "-100555")

	p, err := f.store.Get(context.Background(), "Steam Key")
	if err != nil {
		t.Fatalf("product not created: %v", err)
	}
	if p.Price != "19.99" || p.Currency != "BRL" {
		t.Fatalf("unexpected product: %+v", p)
	}
	if want := []string{"AAA-1", "BBB-2"}; !reflect.DeepEqual(p.Stock, want) {
		t.Fatalf("stock = %v, want %v", p.Stock, want)
	}

	if len(f.pub.published) != 1 || f.pub.published[0].chatID != -100555 {
		t.Fatalf("publish calls: %+v", f.pub.published)
	}
	if got := f.msg.lastNotice(t); got != msgPublished {
		t.Fatalf("notice = %q", got)
	}
	if f.sessions.GetState(opKey) != state.StateIdle {
		t.Fatalf("session not cleared: %s", f.sessions.GetState(opKey))
	}
}

func TestAddFlowRejectsInvalidPrice(t *testing.T) {
	f := newFixture(t)

	f.press(t, opKey, ActionAdd)
	f.send(t, opKey, "Game")
	f.send(t, opKey, "not a price")

	if got := f.msg.lastPrompt(t); got != msgInvalidPrice {
		t.Fatalf("prompt = %q", got)
	}
	if f.sessions.GetState(opKey) != StateAddPrice {
		t.Fatalf("state = %s, expected still %s", f.sessions.GetState(opKey), StateAddPrice)
	}

	// The step recovers once valid input arrives.
	f.send(t, opKey, "9.99")
	if f.sessions.GetState(opKey) != StateAddDescription {
		t.Fatalf("state = %s after valid price", f.sessions.GetState(opKey))
	}
}

func TestAddFlowRejectsDuplicateTitle(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &catalog.Product{Title: "Game", Price: "1"})

	f.press(t, opKey, ActionAdd)
	f.send(t, opKey, "Game")

	if got := f.msg.lastPrompt(t); got != msgDuplicateTitle {
		t.Fatalf("prompt = %q", got)
	}
	if f.sessions.GetState(opKey) != StateAddTitle {
		t.Fatalf("state = %s", f.sessions.GetState(opKey))
	}
}

func TestAddFlowRepromptsOnBadChannel(t *testing.T) {
	f := newFixture(t)
	f.msg.channels["-100777"] = -100777

	f.press(t, opKey, ActionAdd)
	f.send(t, opKey, "Game")
	f.send(t, opKey, "5")
	f.send(t, opKey, "desc")
	f.send(t, opKey, "k1")
	f.send(t, opKey, "nope")

	if got := f.msg.lastPrompt(t); got != msgBadChannel {
		t.Fatalf("prompt = %q", got)
	}
	if _, err := f.store.Get(context.Background(), "Game"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("product created before channel resolved: %v", err)
	}

	f.send(t, opKey, "-100777")
	if _, err := f.store.Get(context.Background(), "Game"); err != nil {
		t.Fatalf("product missing after valid channel: %v", err)
	}
}

func TestSessionsAreIndependentPerUserAndChat(t *testing.T) {
	f := newFixture(t)
	other := state.Key{UserID: 10, ChatID: 2}

	f.press(t, opKey, ActionAdd)
	f.press(t, other, ActionAdd)

	f.send(t, opKey, "First")
	if f.sessions.GetState(opKey) != StateAddPrice {
		t.Fatalf("opKey state = %s", f.sessions.GetState(opKey))
	}
	// The same user in another chat is still on the title step.
	if f.sessions.GetState(other) != StateAddTitle {
		t.Fatalf("other state = %s", f.sessions.GetState(other))
	}

	f.send(t, other, "Second")
	title, _ := f.sessions.GetTempString(opKey, tempTitle)
	if title != "First" {
		t.Fatalf("opKey title = %q, sessions leaked", title)
	}
}

func TestExpiredSessionAbortsWithoutMutations(t *testing.T) {
	f := newFixture(t)

	f.press(t, opKey, ActionAdd)
	f.send(t, opKey, "Game")
	f.send(t, opKey, "5")

	f.engine.SweepExpired(context.Background(), time.Now().Add(2*time.Minute))

	if f.sessions.GetState(opKey) != state.StateIdle {
		t.Fatalf("session survived sweep: %s", f.sessions.GetState(opKey))
	}
	if got := f.msg.lastNotice(t); got != msgTimeout {
		t.Fatalf("notice = %q", got)
	}
	if titles, _ := f.store.List(context.Background()); len(titles) != 0 {
		t.Fatalf("timed-out session mutated catalog: %v", titles)
	}

	// Late input after the sweep is ignored.
	f.send(t, opKey, "desc")
	if f.sessions.GetState(opKey) != state.StateIdle {
		t.Fatalf("late input revived session: %s", f.sessions.GetState(opKey))
	}
}

func TestEditFlowUpdatesPriceAndRepublishes(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, &catalog.Product{Title: "Game", Price: "19.99", Stock: []string{"k1", "k2"}, Currency: "BRL"})
	listingRef := MessageRef{ChatID: -100555, MessageID: 42}
	f.resolver.links["https://t.me/c/555/42"] = resolverEntry{productID: p.ID, ref: listingRef}

	f.press(t, opKey, ActionEdit)
	if len(f.msg.menus) != 1 || f.msg.menus[0].action != MenuEditProduct {
		t.Fatalf("menus: %+v", f.msg.menus)
	}
	if opts := f.msg.menus[0].options; len(opts) != 1 || opts[0].Label != "Game" || opts[0].Value != p.ID {
		t.Fatalf("menu options: %+v", f.msg.menus[0].options)
	}

	f.pick(t, opKey, MenuEditProduct, p.ID)
	if f.msg.menus[len(f.msg.menus)-1].action != MenuEditField {
		t.Fatalf("expected field menu, got %+v", f.msg.menus)
	}

	f.pick(t, opKey, MenuEditField, "price")
	if got := f.msg.lastPrompt(t); got != msgPromptLink {
		t.Fatalf("prompt = %q", got)
	}

	f.send(t, opKey, "https://t.me/c/555/42")
	if got := f.msg.lastPrompt(t); got != msgPromptValue {
		t.Fatalf("prompt = %q", got)
	}

	f.send(t, opKey, "9.99")

	got, err := f.store.Get(context.Background(), "Game")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Price != "9.99" {
		t.Fatalf("price = %q", got.Price)
	}
	if len(got.Stock) != 2 {
		t.Fatalf("stock changed: %v", got.Stock)
	}

	if len(f.pub.republished) != 1 {
		t.Fatalf("republish calls: %+v", f.pub.republished)
	}
	if f.pub.refs[0] != listingRef {
		t.Fatalf("republished to %+v, expected %+v", f.pub.refs[0], listingRef)
	}
	if f.pub.republished[0].product.Price != "9.99" {
		t.Fatalf("republished stale product: %+v", f.pub.republished[0].product)
	}
	if got := f.msg.lastNotice(t); got != msgUpdated {
		t.Fatalf("notice = %q", got)
	}
}

func TestEditFlowRepromptsOnInvalidValue(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, &catalog.Product{Title: "Game", Price: "19.99"})
	f.resolver.links["link"] = resolverEntry{productID: p.ID, ref: MessageRef{ChatID: -1, MessageID: 1}}

	f.press(t, opKey, ActionEdit)
	f.pick(t, opKey, MenuEditProduct, p.ID)
	f.pick(t, opKey, MenuEditField, "price")
	f.send(t, opKey, "link")
	f.send(t, opKey, "banana")

	if got := f.msg.lastPrompt(t); got != msgInvalidPrice {
		t.Fatalf("prompt = %q", got)
	}
	if f.sessions.GetState(opKey) != StateEditValue {
		t.Fatalf("state = %s", f.sessions.GetState(opKey))
	}
	got, _ := f.store.Get(context.Background(), "Game")
	if got.Price != "19.99" {
		t.Fatalf("stored price mutated: %q", got.Price)
	}
}

func TestEditFlowAbortsOnUnknownLink(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, &catalog.Product{Title: "Game", Price: "1"})

	f.press(t, opKey, ActionEdit)
	f.pick(t, opKey, MenuEditProduct, p.ID)
	f.pick(t, opKey, MenuEditField, "description")
	f.send(t, opKey, "https://t.me/c/999/999")

	if got := f.msg.lastNotice(t); got != msgBadLink {
		t.Fatalf("notice = %q", got)
	}
	if f.sessions.GetState(opKey) != state.StateIdle {
		t.Fatalf("session survived abort: %s", f.sessions.GetState(opKey))
	}
}

func TestEditLinkIsAuthoritativeOverMenuChoice(t *testing.T) {
	f := newFixture(t)
	first := f.seed(t, &catalog.Product{Title: "First", Price: "1"})
	second := f.seed(t, &catalog.Product{Title: "Second", Price: "2"})
	f.resolver.links["link"] = resolverEntry{productID: second.ID, ref: MessageRef{ChatID: -1, MessageID: 7}}

	f.press(t, opKey, ActionEdit)
	f.pick(t, opKey, MenuEditProduct, first.ID)
	f.pick(t, opKey, MenuEditField, "price")
	f.send(t, opKey, "link")
	f.send(t, opKey, "5")

	// The pasted link pointed at the second product; that one changes.
	got, _ := f.store.Get(context.Background(), "Second")
	if got.Price != "5" {
		t.Fatalf("Second.Price = %q", got.Price)
	}
	got, _ = f.store.Get(context.Background(), "First")
	if got.Price != "1" {
		t.Fatalf("First.Price = %q, expected untouched", got.Price)
	}
}

func TestDeleteFlowRemovesProduct(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t, &catalog.Product{Title: "Game", Price: "1"})

	f.press(t, opKey, ActionDelete)
	if f.msg.menus[0].action != MenuDeleteProduct {
		t.Fatalf("menus: %+v", f.msg.menus)
	}

	f.pick(t, opKey, MenuDeleteProduct, p.ID)

	if _, err := f.store.Get(context.Background(), "Game"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("product still present: %v", err)
	}
	if len(f.resolver.forgotten) != 1 || f.resolver.forgotten[0] != p.ID {
		t.Fatalf("forgotten: %v", f.resolver.forgotten)
	}
	if got := f.msg.lastNotice(t); got != msgDeleted {
		t.Fatalf("notice = %q", got)
	}
}

func TestDeleteFlowReportsUnknownProduct(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &catalog.Product{Title: "Game", Price: "1"})

	f.press(t, opKey, ActionDelete)
	f.pick(t, opKey, MenuDeleteProduct, "no-such-id")

	if got := f.msg.lastNotice(t); got != msgDeleteGone {
		t.Fatalf("notice = %q", got)
	}
	if _, err := f.store.Get(context.Background(), "Game"); err != nil {
		t.Fatalf("unrelated product removed: %v", err)
	}
}

func TestMenusWithoutProductsNotify(t *testing.T) {
	f := newFixture(t)

	f.press(t, opKey, ActionEdit)
	if got := f.msg.lastNotice(t); got != msgNoProducts {
		t.Fatalf("notice = %q", got)
	}
	if len(f.msg.menus) != 0 {
		t.Fatalf("empty catalog produced a menu: %+v", f.msg.menus)
	}
}

func TestUnexpectedEventsAreIgnored(t *testing.T) {
	f := newFixture(t)

	// No session: plain text does nothing.
	f.send(t, opKey, "hello")
	if len(f.msg.prompts)+len(f.msg.notices) != 0 {
		t.Fatalf("idle dispatch produced output: %v %v", f.msg.prompts, f.msg.notices)
	}

	// Unknown actions do nothing either.
	f.press(t, opKey, "bogus_action")
	f.pick(t, opKey, "bogus_menu", "x")
	if f.sessions.GetState(opKey) != state.StateIdle {
		t.Fatalf("state = %s", f.sessions.GetState(opKey))
	}
}

func TestConsumedRepliesAndPromptsAreDeleted(t *testing.T) {
	f := newFixture(t)

	f.press(t, opKey, ActionAdd)
	titlePrompt := f.msg.lastSent

	reply := MessageRef{ChatID: 1, MessageID: 501}
	if err := f.engine.Dispatch(context.Background(), opKey, MessageReceived{Text: "Game", Ref: reply}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// Both the user's reply and the prompt it answered leave the transcript.
	if !f.msg.hasDeleted(reply) {
		t.Fatalf("reply not deleted: %v", f.msg.deleted)
	}
	if !f.msg.hasDeleted(titlePrompt) {
		t.Fatalf("answered prompt not deleted: %v", f.msg.deleted)
	}

	pricePrompt := f.msg.lastSent
	if f.msg.hasDeleted(pricePrompt) {
		t.Fatalf("open prompt deleted early: %v", f.msg.deleted)
	}
}

func TestSweepDeletesPendingPrompt(t *testing.T) {
	f := newFixture(t)

	f.press(t, opKey, ActionAdd)
	prompt := f.msg.lastSent

	f.engine.SweepExpired(context.Background(), time.Now().Add(2*time.Minute))

	if !f.msg.hasDeleted(prompt) {
		t.Fatalf("expired session left its prompt behind: %v", f.msg.deleted)
	}
}

func TestPublishFailureKeepsProduct(t *testing.T) {
	f := newFixture(t)
	f.msg.channels["-100555"] = -100555
	f.pub.publishErr = ErrChannelUnavailable

	f.press(t, opKey, ActionAdd)
	f.send(t, opKey, "Game")
	f.send(t, opKey, "5")
	f.send(t, opKey, "desc")
	f.send(t, opKey, "k1")
	f.send(t, opKey, "-100555")

	// The catalog write already happened; only the listing failed.
	if _, err := f.store.Get(context.Background(), "Game"); err != nil {
		t.Fatalf("product missing: %v", err)
	}
	if got := f.msg.lastNotice(t); got != msgPublishFailed {
		t.Fatalf("notice = %q", got)
	}
}
