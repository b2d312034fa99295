// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the realtime handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Connection was not authenticated.
	InvalidTopicError     = 3003 // Topic is malformed or not visible to the caller.
	SubscribeFailedError  = 3004 // The realtime bus refused the subscription.
	TransportLostError    = 3005 // The bus dropped the subscription; the client should resubscribe.
)
