// internal/game/turns.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/models"
	"github.com/sirupsen/logrus"
)

// StartGame moves a waiting room to ACTIVE with the first seat to play.
func (c *Coordinator) StartGame(connID uuid.UUID, roomName string) error {
	room, err := c.lockSeatedRoom(connID, roomName)
	if err != nil {
		return err
	}
	defer room.Mu.Unlock()

	if room.IsGameStarted {
		return ErrGameAlreadyStarted
	}
	if room.PlayerCount < MinPlayersToStart {
		c.log.WithFields(logrus.Fields{"room": room.Name, "players": room.PlayerCount}).Info("Start rejected: not enough players.")
		return ErrInsufficientPlayers
	}

	room.IsGameStarted = true
	room.CurrentTurnIndex = 0
	room.CurrentCard = models.RankAce
	room.DiscardPile = nil
	room.LastPlayedCards = nil
	room.IsBullshit = false
	room.TurnID++

	c.log.WithFields(logrus.Fields{"room": room.Name, "players": room.PlayerCount}).Info("Game started.")
	c.logAction(room, room.Players[0].ConnectionID, "game_start", map[string]interface{}{"players": room.PlayerCount})
	c.scheduleTurnTimer(room)
	c.broadcastTurn(room, "")
	return nil
}

// EndTurn hands the turn to the next seat and draws a new required rank.
func (c *Coordinator) EndTurn(connID uuid.UUID, roomName string) error {
	room, err := c.lockSeatedRoom(connID, roomName)
	if err != nil {
		return err
	}
	defer room.Mu.Unlock()

	if !room.active() {
		return ErrGameNotActive
	}
	c.advanceTurn(room)
	return nil
}

// advanceTurn records the mover, rotates the index and draws the next rank.
// Assumes lock is held by caller and the room is active.
func (c *Coordinator) advanceTurn(room *Room) {
	mover := room.currentPlayer()
	if mover == nil {
		// Index drifted out of range; clamp instead of failing the turn.
		room.CurrentTurnIndex = 0
		mover = room.Players[0]
	}
	c.setLastMover(room.Name, mover.ConnectionID)

	room.CurrentTurnIndex = (room.CurrentTurnIndex + 1) % len(room.Players)
	room.CurrentCard = c.drawRank()
	room.TurnID++

	c.log.WithFields(logrus.Fields{
		"room":  room.Name,
		"turn":  room.TurnID,
		"next":  room.Players[room.CurrentTurnIndex].Username,
		"prior": mover.Username,
		"rank":  room.CurrentCard,
	}).Debug("Turn advanced.")
	c.logAction(room, mover.ConnectionID, "turn_end", map[string]interface{}{"turn": room.TurnID, "currentCard": room.CurrentCard})

	c.scheduleTurnTimer(room)
	c.broadcastTurn(room, mover.Username)
	c.fireRoom(room, EventCardToPlay, CardToPlayPayload{RoomName: room.Name, CurrentCard: room.CurrentCard})
}

// broadcastTurn announces the current player. prior names the last mover, if any.
// Assumes lock is held by caller.
func (c *Coordinator) broadcastTurn(room *Room, prior string) {
	cur := room.currentPlayer()
	if cur == nil {
		return
	}
	c.fireRoom(room, EventTurnUpdate, TurnUpdatePayload{
		RoomName:         room.Name,
		TurnID:           room.TurnID,
		CurrentTurnIndex: room.CurrentTurnIndex,
		CurrentPlayer:    cur.Username,
		CurrentConnID:    cur.ConnectionID,
		PreviousPlayer:   prior,
		CurrentCard:      room.CurrentCard,
	})
}

// scheduleTurnTimer (re)arms the turn timeout for the current turn.
// Assumes lock is held by caller.
func (c *Coordinator) scheduleTurnTimer(room *Room) {
	room.stopTurnTimer()
	if c.turnTimeout <= 0 || !room.active() {
		return
	}
	expected := room.TurnID
	room.turnTimer = time.AfterFunc(c.turnTimeout, func() {
		c.handleTurnTimeout(room, expected)
	})
}

// handleTurnTimeout ends the turn on the player's behalf if it is still the
// turn the timer was armed for.
func (c *Coordinator) handleTurnTimeout(room *Room, expectedTurnID int) {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.closed || !room.active() || room.TurnID != expectedTurnID {
		return
	}
	c.log.WithFields(logrus.Fields{"room": room.Name, "turn": room.TurnID}).Info("Turn timed out.")
	c.logAction(room, room.Players[room.CurrentTurnIndex].ConnectionID, "turn_timeout", map[string]interface{}{"turn": room.TurnID})
	c.advanceTurn(room)
}
