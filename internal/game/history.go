// internal/game/history.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/cache"
	"github.com/jason-s-yu/bluff/internal/database"
	"github.com/sirupsen/logrus"
)

// logAction publishes a history record for a room mutation. Publishing is
// asynchronous and never blocks the handler.
// Assumes lock is held by caller.
func (c *Coordinator) logAction(room *Room, actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	room.actionIndex++
	if c.publisher == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoomActionRecord{
		ID:            uuid.New(),
		RoomName:      room.Name,
		ActionIndex:   room.actionIndex,
		ActorConnID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}

	go func(rec cache.RoomActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.publisher.PublishRoomAction(ctx, rec); err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{"room": rec.RoomName, "action": rec.ActionType}).
				Warn("Failed publishing room action.")
		}
	}(record)
}

// recordResult stores the outcome of a finished game.
// Assumes lock is held by caller.
func (c *Coordinator) recordResult(room *Room) {
	if c.results == nil {
		return
	}
	res := database.GameResult{
		RoomName:   room.Name,
		Winner:     room.Winner,
		TurnCount:  room.TurnID,
		FinishedAt: time.Now(),
	}
	for _, p := range room.Players {
		res.Players = append(res.Players, p.Username)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.results.StoreGameResult(ctx, res); err != nil {
			c.log.WithError(err).WithField("room", res.RoomName).Error("Failed storing game result.")
		}
	}()
}
