// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/models"
)

// EventType names an event pushed to clients.
type EventType string

const (
	EventActiveRooms        EventType = "activeRooms"        // All: directory snapshot.
	EventPlayerJoined       EventType = "playerJoined"       // Room: roster after a join.
	EventPlayerLeft         EventType = "playerLeft"         // Room: roster after a leave or disconnect.
	EventTurnUpdate         EventType = "turnUpdate"         // Room: whose turn it is.
	EventCardToPlay         EventType = "cardToPlay"         // Room: the newly required rank.
	EventCardsDealt         EventType = "cardsDealt"         // Room: hands after distribution.
	EventDiscardPileUpdated EventType = "discardPileUpdated" // Room: pile after a play.
	EventGameWon            EventType = "gameWon"            // Room: a player emptied their hand.
	EventPlayerStatsUpdated EventType = "playerStatsUpdated" // Room: roster after a challenge or count update.
)

// Event is a server push. Payload is one of the *Payload types below or a
// directory listing.
type Event struct {
	Type    EventType   `json:"event"`
	Payload interface{} `json:"data,omitempty"`
}

// PlayerJoinedPayload is the roster after a seat is taken, with the joining connection.
type PlayerJoinedPayload struct {
	RoomName     string          `json:"roomName"`
	Players      []models.Player `json:"players"`
	ConnectionID uuid.UUID       `json:"connectionId"`
}

// PlayerLeftPayload is the roster left behind and the departed connection.
type PlayerLeftPayload struct {
	RoomName     string          `json:"roomName"`
	Players      []models.Player `json:"players"`
	ConnectionID uuid.UUID       `json:"connectionId"`
}

// TurnUpdatePayload names the player to move and the rank they must play.
type TurnUpdatePayload struct {
	RoomName         string    `json:"roomName"`
	TurnID           int       `json:"turnId"`
	CurrentTurnIndex int       `json:"currentTurnIndex"`
	CurrentPlayer    string    `json:"currentPlayer"`
	CurrentConnID    uuid.UUID `json:"currentConnectionId"`
	PreviousPlayer   string    `json:"previousPlayer,omitempty"`
	CurrentCard      string    `json:"currentCard"`
}

// CardToPlayPayload carries the rank drawn for the new turn.
type CardToPlayPayload struct {
	RoomName    string `json:"roomName"`
	CurrentCard string `json:"currentCard"`
}

// DealtHand is one player's entry in a cardsDealt event.
type DealtHand struct {
	Username  string        `json:"username"`
	CardCount int           `json:"cardCount"`
	Hand      []models.Card `json:"hand"`
}

// CardsDealtPayload lists every seat's hand after distribution.
type CardsDealtPayload struct {
	RoomName string      `json:"roomName"`
	Players  []DealtHand `json:"players"`
}

// DiscardPileUpdatedPayload is the pile after a play and whether that play was a bluff.
type DiscardPileUpdatedPayload struct {
	RoomName        string        `json:"roomName"`
	DiscardPile     []models.Card `json:"discardPile"`
	LastPlayedCards []models.Card `json:"lastPlayedCards"`
	IsBullshit      bool          `json:"isBullshit"`
}

// GameWonPayload names the first player to empty their hand.
type GameWonPayload struct {
	RoomName string `json:"roomName"`
	Winner   string `json:"winner"`
}

// PlayerStatsPayload is the full roster after hands or card counts change.
type PlayerStatsPayload struct {
	RoomName string          `json:"roomName"`
	Players  []models.Player `json:"players"`
}

// Broadcaster delivers events to connections. Implementations must not block
// and must not call back into the Coordinator.
type Broadcaster interface {
	// JoinGroup adds a connection to a room's broadcast group. It returns
	// once membership is in effect.
	JoinGroup(connID uuid.UUID, roomName string)
	LeaveGroup(connID uuid.UUID, roomName string)
	BroadcastAll(ev Event)
	BroadcastRoom(roomName string, ev Event)
}
