// internal/game/room.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/models"
)

// MaxPlayers is the fixed room capacity.
const MaxPlayers = 4

// MinPlayersToStart is the roster size required by StartGame.
const MinPlayersToStart = 2

// Phase is the room's position in the game state machine.
type Phase string

const (
	PhaseWaiting  Phase = "WAITING"  // Not started.
	PhaseActive   Phase = "ACTIVE"   // Started, no winner yet.
	PhaseFinished Phase = "FINISHED" // Winner set. Terminal.
)

// Room is a named game session with its own roster and phase.
// All fields are protected by Mu.
type Room struct {
	Name         string
	IsPrivate    bool
	passwordHash []byte

	PlayerCount int
	Players     []*models.Player

	CurrentTurnIndex int
	IsGameStarted    bool
	TurnID           int // Increments on every turn change; stale timers compare against it.

	DiscardPile     []models.Card
	CurrentCard     string // Required rank for the current turn.
	LastPlayedCards []models.Card
	IsBullshit      bool
	Winner          string

	CreatedAt time.Time

	Mu sync.Mutex

	closed      bool        // Set when the room is removed from the directory.
	turnTimer   *time.Timer // Auto-ends the current turn when a timeout is configured.
	actionIndex int         // Sequence number for history records.
}

// RoomSummary is a directory entry. It never carries the password.
type RoomSummary struct {
	RoomName      string `json:"roomName"`
	IsPrivate     bool   `json:"isPrivate"`
	PlayerCount   int    `json:"playerCount"`
	MaxPlayers    int    `json:"maxPlayers"`
	IsGameStarted bool   `json:"isGameStarted"`
}

// RoomSnapshot is the full state of a room as reported by getRoomInfo.
type RoomSnapshot struct {
	RoomName         string          `json:"roomName"`
	IsPrivate        bool            `json:"isPrivate"`
	PlayerCount      int             `json:"playerCount"`
	Players          []models.Player `json:"players"`
	CurrentTurnIndex int             `json:"currentTurnIndex"`
	IsGameStarted    bool            `json:"isGameStarted"`
	Phase            Phase           `json:"phase"`
	TurnID           int             `json:"turnId"`
	DiscardPile      []models.Card   `json:"discardPile"`
	CurrentCard      string          `json:"currentCard"`
	LastPlayedCards  []models.Card   `json:"lastPlayedCards"`
	IsBullshit       bool            `json:"isBullshit"`
	Winner           string          `json:"winner,omitempty"`
}

func newRoom(name string, passwordHash []byte) *Room {
	return &Room{
		Name:         name,
		IsPrivate:    len(passwordHash) > 0,
		passwordHash: passwordHash,
		Players:      []*models.Player{},
		CreatedAt:    time.Now(),
	}
}

// Phase reports the state machine position.
// Assumes lock is held by caller.
func (r *Room) Phase() Phase {
	switch {
	case r.Winner != "":
		return PhaseFinished
	case r.IsGameStarted:
		return PhaseActive
	default:
		return PhaseWaiting
	}
}

// active reports whether turns may be played.
// Assumes lock is held by caller.
func (r *Room) active() bool {
	return r.Phase() == PhaseActive && len(r.Players) > 0
}

// indexOfConn returns the roster index of the connection, or -1.
// Assumes lock is held by caller.
func (r *Room) indexOfConn(connID uuid.UUID) int {
	for i, p := range r.Players {
		if p.ConnectionID == connID {
			return i
		}
	}
	return -1
}

// playerByUsername returns the first seated player with the username.
// Assumes lock is held by caller.
func (r *Room) playerByUsername(username string) *models.Player {
	for _, p := range r.Players {
		if p.Username == username {
			return p
		}
	}
	return nil
}

// currentPlayer returns the player whose turn it is, or nil.
// Assumes lock is held by caller.
func (r *Room) currentPlayer() *models.Player {
	if r.CurrentTurnIndex < 0 || r.CurrentTurnIndex >= len(r.Players) {
		return nil
	}
	return r.Players[r.CurrentTurnIndex]
}

// roster returns a deep copy of the players safe to hand to broadcasters.
// Assumes lock is held by caller.
func (r *Room) roster() []models.Player {
	out := make([]models.Player, len(r.Players))
	for i, p := range r.Players {
		out[i] = *p
		out[i].Hand = append([]models.Card{}, p.Hand...)
	}
	return out
}

// summary builds the directory entry.
// Assumes lock is held by caller.
func (r *Room) summary() RoomSummary {
	return RoomSummary{
		RoomName:      r.Name,
		IsPrivate:     r.IsPrivate,
		PlayerCount:   r.PlayerCount,
		MaxPlayers:    MaxPlayers,
		IsGameStarted: r.IsGameStarted,
	}
}

// snapshot copies the full room state.
// Assumes lock is held by caller.
func (r *Room) snapshot() RoomSnapshot {
	return RoomSnapshot{
		RoomName:         r.Name,
		IsPrivate:        r.IsPrivate,
		PlayerCount:      r.PlayerCount,
		Players:          r.roster(),
		CurrentTurnIndex: r.CurrentTurnIndex,
		IsGameStarted:    r.IsGameStarted,
		Phase:            r.Phase(),
		TurnID:           r.TurnID,
		DiscardPile:      append([]models.Card{}, r.DiscardPile...),
		CurrentCard:      r.CurrentCard,
		LastPlayedCards:  append([]models.Card{}, r.LastPlayedCards...),
		IsBullshit:       r.IsBullshit,
		Winner:           r.Winner,
	}
}

// stopTurnTimer cancels a pending turn timeout.
// Assumes lock is held by caller.
func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}
