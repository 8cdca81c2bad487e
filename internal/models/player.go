// internal/models/player.go
package models

import "github.com/google/uuid"

// Identity is the user identity the connection layer hands to the coordinator.
type Identity struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Player is a seat in a room, bound to the connection that occupies it.
// ConnectionID is not a durable identity; a reconnecting user gets a new one.
type Player struct {
	ConnectionID uuid.UUID `json:"connectionId"`
	Username     string    `json:"username"`
	Avatar       string    `json:"avatar"`

	// CardCount mirrors len(Hand) as last reported by the client. Game logic
	// uses Hand.
	CardCount int    `json:"cardCount"`
	Hand      []Card `json:"hand"`
}

// NewPlayer seats an identity on the given connection.
func NewPlayer(connID uuid.UUID, id Identity) *Player {
	return &Player{
		ConnectionID: connID,
		Username:     id.Username,
		Avatar:       id.Avatar,
		Hand:         []Card{},
	}
}

// SetHand replaces the hand and resyncs CardCount.
func (p *Player) SetHand(hand []Card) {
	p.Hand = append([]Card{}, hand...)
	p.CardCount = len(p.Hand)
}
