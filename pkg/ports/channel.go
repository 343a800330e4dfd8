package ports

// Subscription identifies a registered inbound handler.
type Subscription uint64

// Channel is a message-framed duplex transport.
type Channel interface {
	// Send transmits one message. It does not wait for remote acknowledgement.
	Send(msg []byte) error

	// Subscribe registers a handler for inbound messages.
	Subscribe(handler func(msg []byte)) Subscription

	// Unsubscribe removes a handler. Unknown subscriptions are ignored.
	Unsubscribe(sub Subscription)
}
