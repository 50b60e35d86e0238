// Package hub provides a thread-safe websocket broadcast hub
// using the channel-based fan-out pattern. It carries the monitor's
// cycle events to however many observers are attached, dropping
// messages for consumers that cannot keep up.
package hub

// Message is one JSON-encoded payload to broadcast to clients.
type Message struct {
	Data []byte
}

// NewMessage creates a message from pre-encoded bytes.
func NewMessage(data []byte) Message {
	return Message{Data: data}
}
