package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shopdesk/shopdesk/internal/log"
)

var (
	ErrNotConnected = errors.New("push channel not connected")
	ErrClosed       = errors.New("push channel closed")
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives inbound frames. Handlers run on the connection's read
// goroutine and must not block.
type Handler func(Frame)

// TokenSource supplies the credential presented when dialing.
type TokenSource interface {
	Token() string
}

// Bridge is the application's single push connection. Construct it once and
// hand it to every component that needs realtime events. Reconnection is not
// attempted; after a drop the state returns to disconnected and the next
// Connect dials again.
type Bridge struct {
	cfg    Config
	dialer *websocket.Dialer
	tokens TokenSource
	logger zerolog.Logger

	connectMu sync.Mutex

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	send   chan outbound
	done   chan struct{}
	closed bool

	hmu      sync.RWMutex
	handlers map[string]map[uint64]Handler
	nextID   uint64
}

// outbound is a frame waiting for the write pump. written receives the
// result of the socket write.
type outbound struct {
	data    []byte
	written chan error
}

type Option func(*Bridge)

func WithDialer(d *websocket.Dialer) Option {
	return func(b *Bridge) { b.dialer = d }
}

func WithTokenSource(ts TokenSource) Option {
	return func(b *Bridge) { b.tokens = ts }
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

func NewBridge(cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:      cfg.withDefaults(),
		dialer:   websocket.DefaultDialer,
		logger:   log.L(),
		handlers: make(map[string]map[uint64]Handler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Connect dials the push endpoint unless a connection is already open.
func (b *Bridge) Connect(ctx context.Context) error {
	b.connectMu.Lock()
	defer b.connectMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.state == StateConnected {
		b.mu.Unlock()
		return nil
	}
	b.state = StateConnecting
	b.mu.Unlock()

	target, header, err := b.target()
	if err != nil {
		b.setState(StateDisconnected)
		return err
	}

	conn, resp, err := b.dialer.DialContext(ctx, target, header)
	if err != nil {
		b.setState(StateDisconnected)
		if resp != nil {
			return fmt.Errorf("dial push channel: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial push channel: %w", err)
	}

	send := make(chan outbound, 256)
	done := make(chan struct{})

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	b.conn = conn
	b.send = send
	b.done = done
	b.state = StateConnected
	b.mu.Unlock()

	go b.readPump(conn)
	go b.writePump(conn, send, done)

	b.logger.Debug().Str("url", b.cfg.URL).Msg("push channel connected")
	return nil
}

// On registers h for event and returns a function that removes it.
func (b *Bridge) On(event string, h Handler) func() {
	b.hmu.Lock()
	b.nextID++
	id := b.nextID
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[uint64]Handler)
	}
	b.handlers[event][id] = h
	b.hmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.hmu.Lock()
			delete(b.handlers[event], id)
			if len(b.handlers[event]) == 0 {
				delete(b.handlers, event)
			}
			b.hmu.Unlock()
		})
	}
}

// Emit sends a frame and returns once it has been written to the socket. A
// frame still queued when the connection goes away yields ErrNotConnected.
func (b *Bridge) Emit(ctx context.Context, event string, payload interface{}) error {
	frame, err := NewFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	b.mu.Lock()
	if b.state != StateConnected {
		b.mu.Unlock()
		return ErrNotConnected
	}
	send, done := b.send, b.done
	b.mu.Unlock()

	out := outbound{data: data, written: make(chan error, 1)}
	select {
	case send <- out:
	case <-done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-out.written:
		return err
	case <-done:
		select {
		case err := <-out.written:
			return err
		default:
			return ErrNotConnected
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the connection down for good. Later Connect calls fail.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(b.cfg.WriteWait))
	b.teardown(conn)
	return nil
}

func (b *Bridge) target() (string, http.Header, error) {
	u, err := url.Parse(b.cfg.URL)
	if err != nil || u.Host == "" {
		return "", nil, fmt.Errorf("invalid push url %q", b.cfg.URL)
	}
	header := http.Header{}
	if b.tokens != nil {
		if token := b.tokens.Token(); token != "" {
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()
			header.Set("Authorization", "Bearer "+token)
		}
	}
	return u.String(), header, nil
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// teardown retires conn if it is still the current connection.
func (b *Bridge) teardown(conn *websocket.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
		b.state = StateDisconnected
		close(b.done)
	}
	b.mu.Unlock()
	_ = conn.Close()
}

func (b *Bridge) readPump(conn *websocket.Conn) {
	defer b.teardown(conn)

	conn.SetReadLimit(b.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				b.logger.Warn().Err(err).Msg("push channel read failed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Event == "" {
			b.logger.Debug().Err(err).Msg("ignoring malformed push frame")
			continue
		}
		b.dispatch(frame)
	}
}

func (b *Bridge) dispatch(frame Frame) {
	b.hmu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[frame.Event]))
	for _, h := range b.handlers[frame.Event] {
		handlers = append(handlers, h)
	}
	b.hmu.RUnlock()

	for _, h := range handlers {
		h(frame)
	}
}

func (b *Bridge) writePump(conn *websocket.Conn, send <-chan outbound, done <-chan struct{}) {
	ticker := time.NewTicker(b.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case out := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, out.data); err != nil {
				b.logger.Warn().Err(err).Msg("push channel write failed")
				out.written <- fmt.Errorf("%w: %v", ErrNotConnected, err)
				b.teardown(conn)
				return
			}
			out.written <- nil
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.teardown(conn)
				return
			}
		case <-done:
			return
		}
	}
}
