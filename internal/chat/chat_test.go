package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopdesk/shopdesk/internal/api"
	"github.com/shopdesk/shopdesk/internal/domain"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/internal/push"
)

type staticSelf string

func (s staticSelf) UserID() string { return string(s) }

var (
	u1 = domain.UserProfile{ID: "u1", Name: "Ada"}
	u2 = domain.UserProfile{ID: "u2", Name: "Bo"}
	u3 = domain.UserProfile{ID: "u3", Name: "Cy"}
)

func msg(id string, from, to domain.UserProfile) domain.Message {
	return domain.Message{ID: id, Sender: from, Receiver: to, Body: id}
}

func ids(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type fakeLister struct {
	mu      sync.Mutex
	calls   []string
	limits  []int
	respond func(counterpart string, call int) (*api.Page[domain.Message], error)
}

func (f *fakeLister) List(ctx context.Context, counterpart string, page, limit int) (*api.Page[domain.Message], error) {
	f.mu.Lock()
	f.calls = append(f.calls, counterpart)
	f.limits = append(f.limits, limit)
	n := len(f.calls)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return &api.Page[domain.Message]{}, nil
	}
	return respond(counterpart, n)
}

func (f *fakeLister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSub struct {
	mu       sync.Mutex
	connects int
	err      error
	handlers map[string][]push.Handler
	active   map[string]int

	// subscribed counts the live handlers at the most recent Connect.
	subscribed int
}

func newFakeSub() *fakeSub {
	return &fakeSub{handlers: map[string][]push.Handler{}, active: map[string]int{}}
}

func (f *fakeSub) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.subscribed = 0
	for _, n := range f.active {
		f.subscribed += n
	}
	return f.err
}

func (f *fakeSub) On(event string, h push.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], h)
	f.active[event]++
	idx := len(f.handlers[event]) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.handlers[event][idx] != nil {
			f.handlers[event][idx] = nil
			f.active[event]--
		}
	}
}

func (f *fakeSub) fire(event string, payload interface{}) {
	frame, _ := push.NewFrame(event, payload)
	f.mu.Lock()
	hs := append([]push.Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(frame)
		}
	}
}

func newSync(lister MessageLister, sub Subscriber) (*Store, *Selector, *Synchronizer) {
	store := NewStore()
	self := staticSelf("u1")
	return store, NewSelector(store, self), NewSynchronizer(store, lister, sub, self, WithLogger(log.Nop()))
}

func TestRefreshWithoutCounterpart(t *testing.T) {
	lister := &fakeLister{}
	store, _, syncer := newSync(lister, newFakeSub())
	before := store.Snapshot()

	if err := syncer.Refresh(context.Background()); !errors.Is(err, ErrNoActiveCounterpart) {
		t.Fatalf("expected ErrNoActiveCounterpart, got %v", err)
	}
	if lister.count() != 0 {
		t.Error("no request should be made")
	}
	if after := store.Snapshot(); after.Version != before.Version {
		t.Error("state should not change")
	}
}

func TestRefreshShowsOldestFirst(t *testing.T) {
	lister := &fakeLister{respond: func(string, int) (*api.Page[domain.Message], error) {
		return &api.Page[domain.Message]{
			Items:      []domain.Message{msg("m2", u2, u1), msg("m1", u1, u2)},
			Pagination: domain.Pagination{Page: 1, Limit: 100, Total: 2},
		}, nil
	}}
	store, sel, syncer := newSync(lister, newFakeSub())

	if err := sel.Select(u2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := syncer.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ids(store.Messages()); !equal(got, []string{"m1", "m2"}) {
		t.Errorf("got %v, want [m1 m2]", got)
	}
	if p := store.Pagination(); p.Total != 2 || p.Limit != 100 {
		t.Errorf("unexpected pagination %+v", p)
	}
	lister.mu.Lock()
	if lister.limits[0] != DefaultPageSize {
		t.Errorf("expected limit %d, got %d", DefaultPageSize, lister.limits[0])
	}
	lister.mu.Unlock()
}

func TestRefreshDropsForeignMessages(t *testing.T) {
	lister := &fakeLister{respond: func(string, int) (*api.Page[domain.Message], error) {
		return &api.Page[domain.Message]{Items: []domain.Message{msg("m3", u2, u3), msg("m1", u2, u1)}}, nil
	}}
	store, sel, syncer := newSync(lister, newFakeSub())
	_ = sel.Select(u2)
	if err := syncer.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ids(store.Messages()); !equal(got, []string{"m1"}) {
		t.Errorf("got %v, want [m1]", got)
	}
}

func TestRefreshErrorKeepsList(t *testing.T) {
	boom := errors.New("boom")
	lister := &fakeLister{respond: func(_ string, call int) (*api.Page[domain.Message], error) {
		if call == 1 {
			return &api.Page[domain.Message]{Items: []domain.Message{msg("m1", u1, u2)}}, nil
		}
		return nil, boom
	}}
	store, sel, syncer := newSync(lister, newFakeSub())
	_ = sel.Select(u2)
	if err := syncer.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	err := syncer.Refresh(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := ids(store.Messages()); !equal(got, []string{"m1"}) {
		t.Errorf("list should be kept, got %v", got)
	}
	if !errors.Is(store.LastError(), boom) {
		t.Errorf("expected LastError boom, got %v", store.LastError())
	}
}

func TestSelectClearsPreviousConversation(t *testing.T) {
	lister := &fakeLister{respond: func(string, int) (*api.Page[domain.Message], error) {
		return &api.Page[domain.Message]{Items: []domain.Message{msg("m1", u1, u2)}, Pagination: domain.Pagination{Total: 1}}, nil
	}}
	store, sel, syncer := newSync(lister, newFakeSub())
	_ = sel.Select(u2)
	_ = syncer.Refresh(context.Background())

	if err := sel.Select(u3); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := store.Snapshot()
	if len(snap.Messages) != 0 || snap.Pagination.Total != 0 {
		t.Errorf("list should be empty right after selection, got %v", ids(snap.Messages))
	}
	if snap.Active.ID != "u3" {
		t.Errorf("expected u3 active, got %q", snap.Active.ID)
	}
}

func TestSelectRejectsSelf(t *testing.T) {
	store, sel, _ := newSync(&fakeLister{}, newFakeSub())
	if err := sel.Select(u1); !errors.Is(err, ErrSelfConversation) {
		t.Fatalf("expected ErrSelfConversation, got %v", err)
	}
	if _, ok := store.Active(); ok {
		t.Error("nothing should be selected")
	}
}

func TestLatestRefreshWins(t *testing.T) {
	release := make(chan struct{})
	lister := &fakeLister{respond: func(_ string, call int) (*api.Page[domain.Message], error) {
		if call == 1 {
			<-release
			return &api.Page[domain.Message]{Items: []domain.Message{msg("old", u2, u1)}}, nil
		}
		return &api.Page[domain.Message]{Items: []domain.Message{msg("new", u2, u1)}}, nil
	}}
	store, sel, syncer := newSync(lister, newFakeSub())
	_ = sel.Select(u2)

	first := make(chan error, 1)
	go func() { first <- syncer.Refresh(context.Background()) }()
	eventually(t, func() bool { return lister.count() == 1 })

	if err := syncer.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(release)
	if err := <-first; !errors.Is(err, ErrStaleResponse) {
		t.Fatalf("expected first refresh to be stale, got %v", err)
	}
	if got := ids(store.Messages()); !equal(got, []string{"new"}) {
		t.Errorf("got %v, want [new]", got)
	}
}

func TestResponseForPreviousCounterpartIsDropped(t *testing.T) {
	release := make(chan struct{})
	lister := &fakeLister{respond: func(counterpart string, _ int) (*api.Page[domain.Message], error) {
		<-release
		return &api.Page[domain.Message]{Items: []domain.Message{msg("from-"+counterpart, u2, u1)}}, nil
	}}
	store, sel, syncer := newSync(lister, newFakeSub())
	_ = sel.Select(u2)

	done := make(chan error, 1)
	go func() { done <- syncer.Refresh(context.Background()) }()
	eventually(t, func() bool { return lister.count() == 1 })

	_ = sel.Select(u3)
	close(release)

	if err := <-done; !errors.Is(err, ErrStaleResponse) {
		t.Fatalf("expected stale, got %v", err)
	}
	snap := store.Snapshot()
	if snap.Active.ID != "u3" || len(snap.Messages) != 0 {
		t.Errorf("u2 messages leaked into u3 conversation: %v", ids(snap.Messages))
	}
}

func TestMountFollowsSelectionAndEvents(t *testing.T) {
	lister := &fakeLister{}
	sub := newFakeSub()
	_, sel, syncer := newSync(lister, sub)

	if err := syncer.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer syncer.Unmount()
	if err := syncer.Mount(context.Background()); err != nil {
		t.Fatalf("second mount: %v", err)
	}
	sub.mu.Lock()
	if sub.connects != 1 {
		t.Errorf("expected one connect, got %d", sub.connects)
	}
	sub.mu.Unlock()

	_ = sel.Select(u2)
	eventually(t, func() bool { return lister.count() == 1 })

	// another conversation's traffic is ignored
	sub.fire(push.EventMessageReceived, push.MessageEvent{Sender: "u3", Receiver: "u1"})
	time.Sleep(20 * time.Millisecond)
	if n := lister.count(); n != 1 {
		t.Fatalf("unrelated event triggered a refresh (%d calls)", n)
	}

	sub.fire(push.EventMessageReceived, push.MessageEvent{Sender: "u2", Receiver: "u1"})
	eventually(t, func() bool { return lister.count() == 2 })

	sub.fire(push.EventSelfMessageReceived, push.MessageEvent{Sender: "u1", Receiver: "u2"})
	eventually(t, func() bool { return lister.count() == 3 })

	sub.fire(push.EventMessageReceived, nil)
	eventually(t, func() bool { return lister.count() == 4 })
}

func TestMountSubscribesBeforeConnecting(t *testing.T) {
	sub := newFakeSub()
	_, _, syncer := newSync(&fakeLister{}, sub)
	if err := syncer.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer syncer.Unmount()

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.connects != 1 || sub.subscribed != 2 {
		t.Errorf("expected both handlers registered before the one dial, got %d handlers over %d dials", sub.subscribed, sub.connects)
	}
}

func TestMountReportsPushFailure(t *testing.T) {
	lister := &fakeLister{}
	sub := newFakeSub()
	sub.err = errors.New("refused")
	_, sel, syncer := newSync(lister, sub)

	if err := syncer.Mount(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	defer syncer.Unmount()

	_ = sel.Select(u2)
	eventually(t, func() bool { return lister.count() == 1 })
}

func TestUnmountStopsListening(t *testing.T) {
	lister := &fakeLister{}
	sub := newFakeSub()
	_, sel, syncer := newSync(lister, sub)
	_ = sel.Select(u2)

	if err := syncer.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	eventually(t, func() bool { return lister.count() == 1 })
	syncer.Unmount()

	sub.mu.Lock()
	for event, n := range sub.active {
		if n != 0 {
			t.Errorf("%s still has %d handlers", event, n)
		}
	}
	sub.mu.Unlock()

	_ = sel.Select(u3)
	time.Sleep(20 * time.Millisecond)
	if n := lister.count(); n != 1 {
		t.Errorf("unmounted synchronizer refreshed (%d calls)", n)
	}
}

type fakeSender struct {
	mu    sync.Mutex
	calls []string
	err   error
	hook  func()
}

func (f *fakeSender) Send(ctx context.Context, receiver, text string) (*domain.Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, receiver+":"+text)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Message{ID: "m", Sender: u1, Receiver: domain.UserProfile{ID: receiver}, Body: text}, nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []push.MessageEvent
	err    error
}

func (f *fakeEmitter) Emit(ctx context.Context, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == push.EventNewMessageSent {
		f.events = append(f.events, payload.(push.MessageEvent))
	}
	return f.err
}

type countingRefresher struct{ n int }

func (c *countingRefresher) Refresh(context.Context) error {
	c.n++
	return nil
}

func newSubmitter(sender MessageSender, emitter Emitter, fallback Refresher) (*Store, *Selector, *Submitter) {
	store := NewStore()
	self := staticSelf("u1")
	return store, NewSelector(store, self), NewSubmitter(store, sender, emitter, self, fallback, WithLogger(log.Nop()))
}

func TestSubmitWithoutCounterpart(t *testing.T) {
	sender := &fakeSender{}
	emitter := &fakeEmitter{}
	_, _, sub := newSubmitter(sender, emitter, nil)
	sub.SetDraft("hello")

	if _, err := sub.Submit(context.Background()); !errors.Is(err, ErrNoActiveCounterpart) {
		t.Fatalf("expected ErrNoActiveCounterpart, got %v", err)
	}
	if len(sender.calls) != 0 || len(emitter.events) != 0 {
		t.Error("nothing should be sent")
	}
	if sub.Draft() != "hello" {
		t.Error("draft should be kept")
	}
}

func TestSubmitClearsDraftAndNotifies(t *testing.T) {
	sender := &fakeSender{}
	emitter := &fakeEmitter{}
	fallback := &countingRefresher{}
	_, sel, sub := newSubmitter(sender, emitter, fallback)
	_ = sel.Select(u2)
	sub.SetDraft("hi")

	m, err := sub.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.Body != "hi" {
		t.Errorf("unexpected message %+v", m)
	}
	if sub.Draft() != "" {
		t.Errorf("draft should be cleared, got %q", sub.Draft())
	}
	if len(sender.calls) != 1 || sender.calls[0] != "u2:hi" {
		t.Errorf("unexpected sends %v", sender.calls)
	}
	if len(emitter.events) != 1 || emitter.events[0] != (push.MessageEvent{Sender: "u1", Receiver: "u2"}) {
		t.Errorf("unexpected events %v", emitter.events)
	}
	if fallback.n != 0 {
		t.Error("no local refresh expected when the event went out")
	}
}

func TestSubmitAllowsEmptyText(t *testing.T) {
	sender := &fakeSender{}
	_, sel, sub := newSubmitter(sender, &fakeEmitter{}, nil)
	_ = sel.Select(u2)

	if _, err := sub.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(sender.calls) != 1 || sender.calls[0] != "u2:" {
		t.Errorf("unexpected sends %v", sender.calls)
	}
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	boom := errors.New("boom")
	sender := &fakeSender{err: boom}
	emitter := &fakeEmitter{}
	_, sel, sub := newSubmitter(sender, emitter, nil)
	_ = sel.Select(u2)
	sub.SetDraft("retry me")

	if _, err := sub.Submit(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if sub.Draft() != "retry me" {
		t.Errorf("draft should survive, got %q", sub.Draft())
	}
	if len(emitter.events) != 0 {
		t.Error("no event after a failed send")
	}
}

func TestSubmitKeepsDraftEditedInFlight(t *testing.T) {
	sender := &fakeSender{}
	_, sel, sub := newSubmitter(sender, &fakeEmitter{}, nil)
	_ = sel.Select(u2)
	sub.SetDraft("first")
	sender.hook = func() { sub.SetDraft("second") }

	if _, err := sub.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Draft() != "second" {
		t.Errorf("newer draft should be kept, got %q", sub.Draft())
	}
}

func TestSubmitRefreshesWhenNotifyFails(t *testing.T) {
	emitter := &fakeEmitter{err: push.ErrNotConnected}
	fallback := &countingRefresher{}
	_, sel, sub := newSubmitter(&fakeSender{}, emitter, fallback)
	_ = sel.Select(u2)
	sub.SetDraft("hi")

	if _, err := sub.Submit(context.Background()); err != nil {
		t.Fatalf("submit should succeed even if notify fails: %v", err)
	}
	if fallback.n != 1 {
		t.Errorf("expected one local refresh, got %d", fallback.n)
	}
	if sub.Draft() != "" {
		t.Error("draft should be cleared")
	}
}

type fakeUsers struct{ items []domain.UserProfile }

func (f fakeUsers) List(ctx context.Context, p api.ListParams) (*api.Page[domain.UserProfile], error) {
	return &api.Page[domain.UserProfile]{Items: f.items}, nil
}

func TestRosterSelection(t *testing.T) {
	store, sel, _ := newSync(&fakeLister{}, newFakeSub())
	users := fakeUsers{items: []domain.UserProfile{
		u1,
		{ID: "u2", Name: "Bo", Email: "bo@shop.test"},
		u3,
	}}

	roster, err := sel.LoadRoster(context.Background(), users, 50)
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("self should be excluded, got %d entries", len(roster))
	}

	for _, key := range []string{"1", "u2", "BO@shop.test", "bo"} {
		p, err := sel.SelectKey(key)
		if err != nil || p.ID != "u2" {
			t.Errorf("key %q: got %q, %v", key, p.ID, err)
		}
	}
	if _, err := sel.SelectKey("9"); !errors.Is(err, ErrUnknownCounterpart) {
		t.Errorf("expected ErrUnknownCounterpart, got %v", err)
	}
	if a, _ := store.Active(); a.ID != "u2" {
		t.Errorf("failed lookup should not change selection, active %q", a.ID)
	}
}

func TestWatchCoalesces(t *testing.T) {
	store := NewStore()
	ch, stop := store.Watch()
	defer stop()

	store.selectCounterpart(u2)
	store.selectCounterpart(u3)

	select {
	case <-ch:
	default:
		t.Fatal("expected a notification")
	}
	select {
	case <-ch:
		t.Fatal("bursts should coalesce")
	default:
	}
	if a, _ := store.Active(); a.ID != "u3" {
		t.Errorf("expected u3, got %q", a.ID)
	}
}
