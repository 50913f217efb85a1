package table

import "github.com/jason-s-yu/holdem/internal/models"

// EventType names a message pushed to clients.
type EventType string

const (
	EventTableState     EventType = "table_state"
	EventFairnessReveal EventType = "fairness_reveal"
	EventBalanceUpdate  EventType = "balance_update"
	EventTableClosed    EventType = "table_closed"
)

// Event is the envelope for everything the host sends out.
type Event struct {
	Type    EventType              `json:"type"`
	TableID string                 `json:"tableId,omitempty"`
	State   *models.TableState     `json:"state,omitempty"`
	Reveal  *models.FairnessReveal `json:"reveal,omitempty"`
	Balance *float64               `json:"balance,omitempty"`
	Message string                 `json:"message,omitempty"`
}
