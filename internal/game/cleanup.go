// internal/game/cleanup.go
package game

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LeaveRoom removes the connection's seat from the named room. Leaving a room
// the connection is not seated in is a no-op.
func (c *Coordinator) LeaveRoom(connID uuid.UUID, roomName string) error {
	room, err := c.lockRoom(roomName)
	if err != nil {
		return err
	}
	removed := c.removePlayer(room, connID)
	room.Mu.Unlock()

	if removed {
		c.broadcastDirectory()
	}
	return nil
}

// Disconnect cleans the connection out of every room it sits in. It is safe
// to call more than once for the same connection.
func (c *Coordinator) Disconnect(connID uuid.UUID) {
	removedAny := false
	for _, room := range c.rooms.Rooms() {
		room.Mu.Lock()
		if !room.closed && c.removePlayer(room, connID) {
			removedAny = true
		}
		room.Mu.Unlock()
	}
	if removedAny {
		c.log.WithField("conn", connID).Info("Disconnected player removed from rooms.")
		c.broadcastDirectory()
	}
}

// removePlayer splices the connection out of the roster, repairs the turn
// index and deletes the room once empty. It reports whether a seat was freed.
// Assumes lock is held by caller.
func (c *Coordinator) removePlayer(room *Room, connID uuid.UUID) bool {
	idx := room.indexOfConn(connID)
	if idx < 0 {
		return false
	}
	departed := room.Players[idx]
	wasActive := room.active()

	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	room.PlayerCount--
	c.bc.LeaveGroup(connID, room.Name)

	logger := c.log.WithFields(logrus.Fields{"room": room.Name, "conn": connID, "player": departed.Username})
	logger.WithField("players", room.PlayerCount).Info("Player left room.")
	c.logAction(room, connID, "player_leave", map[string]interface{}{"username": departed.Username, "seat": idx})

	if room.PlayerCount == 0 {
		room.closed = true
		room.stopTurnTimer()
		c.rooms.Remove(room.Name, room)
		c.clearLastMover(room.Name)
		logger.Info("Room deleted: no players left.")
	} else if room.IsGameStarted && idx <= room.CurrentTurnIndex {
		if idx == room.CurrentTurnIndex {
			// The current player left; the next seat slides into this index.
			room.CurrentTurnIndex %= len(room.Players)
			if wasActive {
				room.TurnID++
				c.scheduleTurnTimer(room)
				c.broadcastTurn(room, "")
			}
		} else {
			room.CurrentTurnIndex--
		}
	}

	c.fireRoom(room, EventPlayerLeft, PlayerLeftPayload{RoomName: room.Name, Players: room.roster(), ConnectionID: connID})
	return true
}
