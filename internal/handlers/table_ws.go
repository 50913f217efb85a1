// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/middleware"
	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
	"github.com/jason-s-yu/holdem/internal/table"
)

const subprotocol = "holdem"

// TableMessage is a client request on the table socket.
type TableMessage struct {
	Type string `json:"type"`

	// sit
	Seat  *int    `json:"seat,omitempty"`
	BuyIn float64 `json:"buyIn,omitempty"`

	// action
	Action models.ActionType `json:"action,omitempty"`
	Amount float64           `json:"amount,omitempty"`

	// client_seed
	Value string `json:"value,omitempty"`
}

var errUnknownMessage = errors.New("unknown message type")

// TableWSHandler serves GET /table/ws/{tableID}. The connection joins the table as a spectator
// session; seating is a separate "sit" request.
func (ts *TableServer) TableWSHandler(w http.ResponseWriter, r *http.Request) {
	tableID := r.PathValue("tableID")
	h, ok := ts.lookup(tableID)
	if !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}

	who, err := ensureGuest(w, r)
	if err != nil {
		ts.Logger.WithError(err).Error("failed to identify player")
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		ts.Logger.WithError(err).WithField("table", tableID).Warn("websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "internal server error")

	if c.Subprotocol() != subprotocol {
		c.Close(BadSubprotocolError, "client must use the 'holdem' subprotocol")
		return
	}
	middleware.LogWebSocketConnect(ts.Logger, r.RemoteAddr, r.URL.Path)

	sessionID := uuid.New()
	log := ts.Logger.WithFields(logrus.Fields{"table": tableID, "session": sessionID, "user": who.UserID})
	unregister := ts.Hub.Register(tableID, sessionID, c)
	defer unregister()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if _, err := h.Join(ctx, sessionID, who.UserID, who.Name); err != nil {
		log.WithError(err).Warn("join failed")
		c.Close(websocket.StatusTryAgainLater, "could not join table")
		return
	}

	go func() {
		select {
		case <-h.Done():
			c.Close(TableClosedError, "table closed")
		case <-ctx.Done():
		}
	}()

	err = ts.readLoop(ctx, c, h, sessionID, who.UserID, log)
	middleware.LogWebSocketDisconnect(ts.Logger, r.RemoteAddr, r.URL.Path, err)

	// the request context is gone by now
	if dErr := h.Disconnect(context.Background(), sessionID); dErr != nil && !errors.Is(dErr, table.ErrTableClosed) {
		log.WithError(dErr).Error("disconnect failed")
	}
	c.Close(websocket.StatusNormalClosure, "")
}

func (ts *TableServer) readLoop(ctx context.Context, c *websocket.Conn, h *table.Host, sessionID, userID uuid.UUID, log *logrus.Entry) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg TableMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ts.Hub, sessionID, "", fmt.Errorf("invalid message: %w", err))
			continue
		}
		if err := ts.route(ctx, h, sessionID, userID, msg); err != nil {
			log.WithError(err).WithField("request", msg.Type).Debug("request rejected")
			sendWsError(ts.Hub, sessionID, msg.Type, err)
			if errors.Is(err, table.ErrTableClosed) {
				return nil
			}
		}
	}
}

func (ts *TableServer) route(ctx context.Context, h *table.Host, sessionID, userID uuid.UUID, msg TableMessage) error {
	switch msg.Type {
	case "sit":
		seat := poker.AnySeat
		if msg.Seat != nil {
			seat = *msg.Seat
		}
		return h.Sit(ctx, sessionID, seat, msg.BuyIn)
	case "action":
		return h.Act(ctx, sessionID, msg.Action, msg.Amount)
	case "leave":
		return h.Leave(ctx, sessionID)
	case "sit_out":
		return h.ToggleSitOut(ctx, sessionID)
	case "rebuy":
		return h.Rebuy(ctx, sessionID, msg.BuyIn)
	case "client_seed":
		return h.SetClientSeed(ctx, sessionID, msg.Value)
	case "sync":
		state, err := h.Snapshot(ctx, userID)
		if err != nil {
			return err
		}
		ts.Hub.SendTo(sessionID, table.Event{Type: table.EventTableState, TableID: h.ID(), State: state})
		return nil
	}
	return fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
}
