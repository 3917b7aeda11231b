package interfaces

import "market-stream/src/models"

// -----------------------------------------------------------------------------
// ITransport delivers stream messages to live client connections.
// -----------------------------------------------------------------------------

type ITransport interface {

	// IsOpen reports whether the connection is still live.
	IsOpen(connID string) bool

	// -----------------------------------------------------------------------------

	// Send enqueues a message; it must not block on a slow client.
	Send(connID string, msg *models.MStreamMessage) error

	// -----------------------------------------------------------------------------

	// Close terminates the connection with a normal-closure reason.
	Close(connID string, reason string) error
}
