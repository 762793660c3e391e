package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shopdesk/shopdesk/internal/log"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// echoServer answers every newMessageSent frame with a selfMessageReceived
// frame carrying the same payload, and records the token it was dialed with.
type echoServer struct {
	*httptest.Server
	mu     sync.Mutex
	tokens []string
	conns  []*websocket.Conn
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	es := &echoServer{}
	upgrader := websocket.Upgrader{}
	es.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		es.mu.Lock()
		es.tokens = append(es.tokens, r.URL.Query().Get("token"))
		es.conns = append(es.conns, conn)
		es.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f Frame
			if json.Unmarshal(data, &f) != nil {
				continue
			}
			if f.Event == EventNewMessageSent {
				reply, _ := json.Marshal(Frame{Event: EventSelfMessageReceived, Data: f.Data})
				_ = conn.WriteMessage(websocket.TextMessage, reply)
			}
		}
	}))
	t.Cleanup(es.Close)
	return es
}

func (es *echoServer) wsURL() string {
	return "ws" + strings.TrimPrefix(es.URL, "http") + "/ws"
}

func (es *echoServer) dropAll() {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, c := range es.conns {
		_ = c.Close()
	}
}

func (es *echoServer) dials() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.tokens)
}

func newTestBridge(url string) *Bridge {
	return NewBridge(Config{URL: url}, WithTokenSource(staticToken("tok")), WithLogger(log.Nop()))
}

func TestBridgeConnectIsIdempotent(t *testing.T) {
	es := newEchoServer(t)
	b := newTestBridge(es.wsURL())
	defer b.Close()

	ctx := context.Background()
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if b.State() != StateConnected {
		t.Fatalf("expected connected, got %s", b.State())
	}
	if n := es.dials(); n != 1 {
		t.Errorf("expected one dial, got %d", n)
	}
	es.mu.Lock()
	if es.tokens[0] != "tok" {
		t.Errorf("expected token in query, got %q", es.tokens[0])
	}
	es.mu.Unlock()
}

func TestBridgeEmitAndReceive(t *testing.T) {
	es := newEchoServer(t)
	b := newTestBridge(es.wsURL())
	defer b.Close()

	got := make(chan MessageEvent, 1)
	b.On(EventSelfMessageReceived, func(f Frame) {
		ev, ok := DecodeMessageEvent(f)
		if ok {
			got <- ev
		}
	})

	ctx := context.Background()
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := b.Emit(ctx, EventNewMessageSent, MessageEvent{Sender: "u1", Receiver: "u2"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	select {
	case ev := <-got:
		if ev.Sender != "u1" || ev.Receiver != "u2" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

func TestBridgeUnsubscribe(t *testing.T) {
	es := newEchoServer(t)
	b := newTestBridge(es.wsURL())
	defer b.Close()

	var mu sync.Mutex
	calls := 0
	unsub := b.On(EventSelfMessageReceived, func(Frame) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	unsub()
	unsub()

	seen := make(chan struct{}, 1)
	b.On(EventSelfMessageReceived, func(Frame) { seen <- struct{}{} })

	ctx := context.Background()
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := b.Emit(ctx, EventNewMessageSent, MessageEvent{Sender: "a", Receiver: "b"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	select {
	case <-seen:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("removed handler called %d times", calls)
	}
}

func TestBridgeEmitRequiresConnection(t *testing.T) {
	b := newTestBridge("ws://127.0.0.1:1/ws")
	err := b.Emit(context.Background(), EventNewMessageSent, nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestBridgeEmitReportsFrameLostInTeardown(t *testing.T) {
	b := newTestBridge("ws://127.0.0.1:1/ws")
	send := make(chan outbound, 1)
	done := make(chan struct{})
	b.mu.Lock()
	b.state, b.send, b.done = StateConnected, send, done
	b.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		errc <- b.Emit(context.Background(), EventNewMessageSent, MessageEvent{Sender: "u1", Receiver: "u2"})
	}()

	select {
	case <-send:
	case <-time.After(2 * time.Second):
		t.Fatal("frame never queued")
	}
	select {
	case err := <-errc:
		t.Fatalf("emit returned %v before the frame was written", err)
	default:
	}
	close(done)

	select {
	case err := <-errc:
		if !errors.Is(err, ErrNotConnected) {
			t.Fatalf("expected ErrNotConnected, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("emit did not return after teardown")
	}
}

func TestBridgeDropReturnsToDisconnected(t *testing.T) {
	es := newEchoServer(t)
	b := newTestBridge(es.wsURL())
	defer b.Close()

	ctx := context.Background()
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	es.dropAll()

	deadline := time.Now().Add(2 * time.Second)
	for b.State() != StateDisconnected {
		if time.Now().After(deadline) {
			t.Fatal("bridge never noticed the drop")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := b.Connect(ctx); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if n := es.dials(); n != 2 {
		t.Errorf("expected a fresh dial, got %d dials", n)
	}
}

func TestBridgeClosedRejectsConnect(t *testing.T) {
	es := newEchoServer(t)
	b := newTestBridge(es.wsURL())
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if b.State() != StateDisconnected {
		t.Errorf("expected disconnected after close")
	}
	if err := b.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMessageEventConcerns(t *testing.T) {
	tests := []struct {
		name        string
		ev          MessageEvent
		self, other string
		want        bool
	}{
		{"outgoing", MessageEvent{"me", "them"}, "me", "them", true},
		{"incoming", MessageEvent{"them", "me"}, "me", "them", true},
		{"other conversation", MessageEvent{"x", "me"}, "me", "them", false},
		{"unknown self", MessageEvent{"x", "them"}, "", "them", true},
		{"no counterpart", MessageEvent{"me", "them"}, "me", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Concerns(tt.self, tt.other); got != tt.want {
				t.Errorf("Concerns = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeMessageEventWithoutPayload(t *testing.T) {
	if _, ok := DecodeMessageEvent(Frame{Event: EventMessageReceived}); ok {
		t.Error("empty frame should carry no event")
	}
	if _, ok := DecodeMessageEvent(Frame{Event: EventMessageReceived, Data: json.RawMessage(`"hi"`)}); ok {
		t.Error("string payload should carry no event")
	}
}
