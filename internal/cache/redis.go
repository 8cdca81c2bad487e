// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultQueue is the list every room action record is appended to.
	DefaultQueue = "bluff:room_actions"
	// RoomHistoryLen caps each room's own list.
	RoomHistoryLen = 500
)

// RoomActionRecord is one entry in the room action history.
type RoomActionRecord struct {
	ID            uuid.UUID              `json:"id"`
	RoomName      string                 `json:"roomName"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorConnID   uuid.UUID              `json:"actorConnectionId"` // Nil for server-driven actions.
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"` // Unix millis.
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// Historian appends room action records to a Redis list for offline consumers.
type Historian struct {
	rdb   redis.UniversalClient
	queue string
}

// NewHistorian wraps an existing client.
func NewHistorian(rdb redis.UniversalClient, queue string) *Historian {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Historian{rdb: rdb, queue: queue}
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, opts Options) (*Historian, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewHistorian(rdb, opts.Queue), nil
}

// PublishRoomAction appends rec to the shared queue and to its room's list.
// Both pushes and the room list trim run in one transaction.
func (h *Historian) PublishRoomAction(ctx context.Context, rec RoomActionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal room action: %w", err)
	}
	roomKey := h.roomKey(rec.RoomName)
	_, err = h.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, h.queue, b)
		pipe.RPush(ctx, roomKey, b)
		pipe.LTrim(ctx, roomKey, -RoomHistoryLen, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rpush %s: %w", h.queue, err)
	}
	return nil
}

// RecentActions returns up to limit of the newest records for roomName,
// oldest first.
func (h *Historian) RecentActions(ctx context.Context, roomName string, limit int) ([]RoomActionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > RoomHistoryLen {
		limit = RoomHistoryLen
	}
	roomKey := h.roomKey(roomName)
	raw, err := h.rdb.LRange(ctx, roomKey, -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", roomKey, err)
	}
	return decodeRecords(raw), nil
}

func (h *Historian) roomKey(roomName string) string {
	return h.queue + ":" + roomName
}

// decodeRecords skips entries that are not valid records.
func decodeRecords(raw []string) []RoomActionRecord {
	out := make([]RoomActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec RoomActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Close releases the client.
func (h *Historian) Close() error {
	return h.rdb.Close()
}
