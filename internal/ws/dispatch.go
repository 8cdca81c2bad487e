// internal/ws/dispatch.go
package ws

import (
	"encoding/json"
	"runtime/debug"

	"github.com/jason-s-yu/bluff/internal/game"
	"github.com/jason-s-yu/bluff/internal/models"
	"github.com/sirupsen/logrus"
)

// Client actions.
const (
	ActionCreateRoom         = "createRoom"
	ActionJoinRoom           = "joinRoom"
	ActionStartGame          = "startGame"
	ActionEndTurn            = "endTurn"
	ActionDistributeCards    = "distributeCards"
	ActionDiscardPile        = "discardPile"
	ActionBullshitPress      = "bullshitPress"
	ActionUpdateCardCount    = "updateCardCount"
	ActionLeaveRoom          = "leaveRoom"
	ActionRequestActiveRooms = "requestActiveRooms"
	ActionGetRoomInfo        = "getRoomInfo"
)

var (
	errUnknownAction    = &game.Error{Kind: game.KindValidation, Message: "Unknown event"}
	errMalformedPayload = &game.Error{Kind: game.KindValidation, Message: "Malformed payload"}
)

// frame is an inbound client message.
type frame struct {
	Event string          `json:"event"`
	ID    *int64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// ack answers a frame. Event is the action name with an ":ack" suffix.
type ack struct {
	Event   string      `json:"event"`
	ID      *int64      `json:"id,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type roomRequest struct {
	RoomName string `json:"roomName"`
}

type seatRequest struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type distributeRequest struct {
	RoomName string          `json:"roomName"`
	Hands    [][]models.Card `json:"hands"`
}

type discardRequest struct {
	RoomName       string        `json:"roomName"`
	DiscardedCards []models.Card `json:"discardedCards"`
}

type challengeRequest struct {
	RoomName           string `json:"roomName"`
	ChallengerUsername string `json:"challengerUsername"`
}

type cardCountRequest struct {
	RoomName  string `json:"roomName"`
	CardCount *int   `json:"cardCount"`
}

// handle runs one client action and answers it. A panic inside an action is
// reported to the client as an internal error and never reaches the read loop.
func (h *Hub) handle(c *client, f frame) {
	logger := h.log.WithFields(logrus.Fields{"conn": c.id, "event": f.Event})
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Errorf("Action panicked.\n%s", debug.Stack())
			h.reply(c, f, nil, game.ErrInternal)
		}
	}()

	data, err := h.dispatch(c, f)
	switch {
	case f.Event == ActionRequestActiveRooms:
		// Answered by the directory push alone.
	case f.Event == ActionDistributeCards && err == nil:
		// Fire-and-forget: only failures are reported.
	default:
		if err != nil {
			logger.WithField("kind", game.KindOf(err)).Debugf("Action failed: %v", err)
		}
		h.reply(c, f, data, err)
	}
}

func (h *Hub) dispatch(c *client, f frame) (interface{}, error) {
	coord := h.coord
	switch f.Event {
	case ActionCreateRoom, ActionJoinRoom:
		var req seatRequest
		if err := h.decode(c, f, &req); err != nil {
			return nil, err
		}
		id := c.resolveIdentity(req.Username, req.Avatar)
		if f.Event == ActionCreateRoom {
			return nil, coord.CreateRoom(c.id, req.RoomName, req.Password, id)
		}
		return nil, coord.JoinRoom(c.id, req.RoomName, req.Password, id)

	case ActionStartGame, ActionEndTurn, ActionLeaveRoom, ActionGetRoomInfo:
		var req roomRequest
		if err := h.decode(c, f, &req); err != nil {
			return nil, err
		}
		switch f.Event {
		case ActionStartGame:
			return nil, coord.StartGame(c.id, req.RoomName)
		case ActionEndTurn:
			return nil, coord.EndTurn(c.id, req.RoomName)
		case ActionLeaveRoom:
			return nil, coord.LeaveRoom(c.id, req.RoomName)
		default:
			info, err := coord.GetRoomInfo(req.RoomName)
			if err != nil {
				return nil, err
			}
			return info, nil
		}

	case ActionDistributeCards:
		var req distributeRequest
		if err := h.decode(c, f, &req); err != nil {
			return nil, err
		}
		if req.Hands == nil {
			return nil, coord.DealShuffled(c.id, req.RoomName)
		}
		return nil, coord.DistributeCards(c.id, req.RoomName, req.Hands)

	case ActionDiscardPile:
		var req discardRequest
		if err := h.decode(c, f, &req); err != nil {
			return nil, game.ErrInvalidPayload
		}
		return nil, coord.DiscardPlay(c.id, req.RoomName, req.DiscardedCards)

	case ActionBullshitPress:
		var req challengeRequest
		if err := h.decode(c, f, &req); err != nil {
			return nil, err
		}
		return nil, coord.Challenge(req.RoomName, req.ChallengerUsername)

	case ActionUpdateCardCount:
		var req cardCountRequest
		if err := h.decode(c, f, &req); err != nil {
			return nil, err
		}
		if req.CardCount == nil {
			return nil, game.ErrInvalidCardCount
		}
		return nil, coord.UpdateCardCount(c.id, req.RoomName, *req.CardCount)

	case ActionRequestActiveRooms:
		h.sendTo(c.id, game.Event{Type: game.EventActiveRooms, Payload: coord.ListRooms()})
		return nil, nil

	default:
		return nil, errUnknownAction
	}
}

func (h *Hub) reply(c *client, f frame, data interface{}, err error) {
	a := ack{Event: f.Event + ":ack", ID: f.ID, Success: err == nil, Data: data}
	if err != nil {
		a.Message = game.Message(err)
		a.Data = nil
	}
	h.sendTo(c.id, a)
}

// resolveIdentity prefers the verified token identity over payload fields.
func (c *client) resolveIdentity(username, avatar string) models.Identity {
	id := models.Identity{Username: username, Avatar: avatar}
	if c.identity != nil {
		if c.identity.Username != "" {
			id.Username = c.identity.Username
		}
		if c.identity.Avatar != "" {
			id.Avatar = c.identity.Avatar
		}
	}
	return id
}

// decode unmarshals an action payload. A missing payload decodes as empty.
// Decoder detail stays in the log; the client only sees errMalformedPayload.
func (h *Hub) decode(c *client, f frame, v interface{}) error {
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		h.log.WithFields(logrus.Fields{"conn": c.id, "event": f.Event}).WithError(err).Debug("Malformed payload.")
		return errMalformedPayload
	}
	return nil
}
