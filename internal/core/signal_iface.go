package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is a raw text payload.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block: a full outbound queue is reported as ErrBackpressure.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
