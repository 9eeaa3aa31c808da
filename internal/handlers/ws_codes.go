// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes. They give clients a more specific reason for
// closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client requested a subprotocol other than Subprotocol.
	InvalidAuthTokenError = 3001 // Missing, invalid or expired session token.
	InvalidUserIDError    = 3002 // Token subject does not name a known user.
	SessionReplacedError  = 3004 // The seat was taken over by a newer connection.
	SlowConsumerError     = 3005 // Client fell too far behind to receive its hand; reconnect to resync.
)

// Subprotocol is the optional websocket subprotocol spoken on /ws.
const Subprotocol = "guandan"
