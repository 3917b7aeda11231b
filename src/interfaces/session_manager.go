package interfaces

import "market-stream/src/models"

// -----------------------------------------------------------------------------
// ISessionManager is what the transports and the control plane drive.
// -----------------------------------------------------------------------------

type ISessionManager interface {
	// OnConnect starts streaming stockCode to connID; it must not block on I/O.
	OnConnect(connID, stockCode string) error

	// OnDisconnect stops the session for connID without sending anything.
	OnDisconnect(connID string)

	// Sessions lists the live sessions.
	Sessions() []models.MSessionInfo

	// CloseSession ends connID's session and closes its connection with reason.
	CloseSession(connID, reason string) bool
}
