package push

import (
	"encoding/json"
	"time"
)

// Event names shared with the platform's realtime gateway.
const (
	// EventMessageReceived tells a receiver that a message addressed to it exists.
	EventMessageReceived = "messageReceived"
	// EventSelfMessageReceived echoes a sent message back to the sender's sessions.
	EventSelfMessageReceived = "selfMessageReceived"
	// EventNewMessageSent is emitted by a sender after the message was stored.
	EventNewMessageSent = "newMessageSent"
)

// Frame is one text message on the push channel.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewFrame(event string, payload interface{}) (Frame, error) {
	f := Frame{Event: event}
	if payload == nil {
		return f, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	f.Data = data
	return f, nil
}

// MessageEvent names the two sides of a message that changed.
type MessageEvent struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

// DecodeMessageEvent extracts the payload of a message event. It reports
// false when the frame carries no usable payload.
func DecodeMessageEvent(f Frame) (MessageEvent, bool) {
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return MessageEvent{}, false
	}
	var ev MessageEvent
	if err := json.Unmarshal(f.Data, &ev); err != nil {
		return MessageEvent{}, false
	}
	if ev.Sender == "" && ev.Receiver == "" {
		return MessageEvent{}, false
	}
	return ev, true
}

// Concerns reports whether the event is about the conversation between self
// and counterpart, in either direction. An empty self matches any event that
// touches counterpart.
func (e MessageEvent) Concerns(self, counterpart string) bool {
	if counterpart == "" {
		return false
	}
	if self == "" {
		return e.Sender == counterpart || e.Receiver == counterpart
	}
	return (e.Sender == self && e.Receiver == counterpart) ||
		(e.Sender == counterpart && e.Receiver == self)
}

// Config holds connection keepalive settings.
type Config struct {
	URL            string        `mapstructure:"url"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

func (c Config) withDefaults() Config {
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	return c
}
