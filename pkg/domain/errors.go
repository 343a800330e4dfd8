package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is returned when packet bytes are not well-formed framed markup.
	ErrParse = errors.New("malformed packet")

	// ErrProtocolViolation is returned for structurally valid but semantically invalid entries.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnsupportedOperation is returned for entries reserved for future protocol versions.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrChannelSend is returned when a channel fails to accept an outbound packet.
	ErrChannelSend = errors.New("channel send failed")

	// ErrUnregisteredHandle is reported when a message arrives on a handle that is no longer connected.
	ErrUnregisteredHandle = errors.New("unregistered handle")

	// ErrForeignNode is returned when a tree is handed a node it did not create.
	ErrForeignNode = errors.New("node does not belong to this tree")
)

// ParseError describes why a packet could not be decoded.
// The whole packet is discarded.
type ParseError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%v at offset %d: %s", ErrParse, e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// ProtocolViolation describes a single rejected packet entry.
// Sibling entries of the same packet are still applied.
type ProtocolViolation struct {
	Tag    string
	ID     string
	Reason string
	Err    error
}

func (e *ProtocolViolation) Error() string {
	msg := fmt.Sprintf("%v: <%s uuid=%q>: %s", ErrProtocolViolation, e.Tag, e.ID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolViolation) Is(target error) bool { return target == ErrProtocolViolation }

func (e *ProtocolViolation) Unwrap() error { return e.Err }

// ChannelSendFailure records a failed delivery to one connection.
// It never aborts delivery to the remaining connections.
type ChannelSendFailure struct {
	Handle uint64
	Err    error
}

func (e *ChannelSendFailure) Error() string {
	return fmt.Sprintf("%v (connection %d): %v", ErrChannelSend, e.Handle, e.Err)
}

func (e *ChannelSendFailure) Is(target error) bool { return target == ErrChannelSend }

func (e *ChannelSendFailure) Unwrap() error { return e.Err }
