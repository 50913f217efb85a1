package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/ledger"
	"github.com/jason-s-yu/holdem/internal/poker"
	"github.com/jason-s-yu/holdem/internal/table"
)

// wsError is the only message the handlers write that does not come from a table.
type wsError struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendWsError queues an error for one session only.
func sendWsError(hub *Hub, sessionID uuid.UUID, request string, err error) {
	data, mErr := json.Marshal(wsError{Type: "error", Request: request, Code: errorCode(err), Message: err.Error()})
	if mErr != nil {
		return
	}
	hub.sendRaw(sessionID, data)
}

// errorCode maps the error taxonomy to stable client codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, table.ErrLedgerFailure):
		return "ledger_failure"
	case errors.Is(err, poker.ErrTableFull):
		return "table_full"
	case errors.Is(err, poker.ErrSeatTaken):
		return "seat_taken"
	case errors.Is(err, table.ErrTableClosed):
		return "table_closed"
	case errors.Is(err, poker.ErrNotYourTurn), errors.Is(err, poker.ErrInvalidAction):
		return "invalid_action"
	}
	return "bad_request"
}

func writeJSON(w http.ResponseWriter, logger *logrus.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Warn("failed to write response")
	}
}
