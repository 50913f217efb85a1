// internal/handlers/ws_codes.go
package handlers

// Application close codes sent on the table socket.
const (
	BadSubprotocolError = 3000 // client did not negotiate the "holdem" subprotocol
	TableClosedError    = 3004 // table was closed by an operator or reaped
)
