// internal/game/plays.go
package game

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/models"
	"github.com/sirupsen/logrus"
)

// DistributeCards assigns hands[i] to the player in roster seat i. The caller
// must be seated in the room. The number of hands must equal the roster size;
// otherwise nothing changes.
func (c *Coordinator) DistributeCards(connID uuid.UUID, roomName string, hands [][]models.Card) error {
	room, err := c.lockSeatedRoom(connID, roomName)
	if err != nil {
		return err
	}
	defer room.Mu.Unlock()

	if len(hands) != len(room.Players) {
		c.log.WithFields(logrus.Fields{"room": room.Name, "hands": len(hands), "players": len(room.Players)}).
			Warn("Distribution rejected: hand count does not match roster.")
		return ErrHandsMismatch
	}
	c.assignHands(room, hands, "cards_dealt")
	return nil
}

// DealShuffled shuffles a full deck and deals it round-robin across the
// roster, for clients that leave dealing to the server.
func (c *Coordinator) DealShuffled(connID uuid.UUID, roomName string) error {
	room, err := c.lockSeatedRoom(connID, roomName)
	if err != nil {
		return err
	}
	defer room.Mu.Unlock()

	deck := models.NewDeck()
	c.rngMu.Lock()
	models.ShuffleDeck(c.rng, deck)
	c.rngMu.Unlock()
	c.assignHands(room, models.DealHands(deck, len(room.Players)), "cards_shuffled")
	return nil
}

// assignHands stores hands by seat and announces them.
// Assumes lock is held by caller and len(hands) == len(room.Players).
func (c *Coordinator) assignHands(room *Room, hands [][]models.Card, action string) {
	dealt := make([]DealtHand, len(room.Players))
	counts := make([]int, len(room.Players))
	for i, p := range room.Players {
		p.SetHand(hands[i])
		dealt[i] = DealtHand{Username: p.Username, CardCount: p.CardCount, Hand: append([]models.Card{}, p.Hand...)}
		counts[i] = p.CardCount
	}

	c.log.WithFields(logrus.Fields{"room": room.Name, "counts": counts}).Info("Cards distributed.")
	c.logAction(room, uuid.Nil, action, map[string]interface{}{"counts": counts})
	c.fireRoom(room, EventCardsDealt, CardsDealtPayload{RoomName: room.Name, Players: dealt})
}

// DiscardPlay puts cards from the current player's hand onto the discard pile.
// The play is flagged as a bluff if any card differs from the required rank.
// A nil slice means the client did not send a card array. The caller must be
// seated in the room.
func (c *Coordinator) DiscardPlay(connID uuid.UUID, roomName string, discarded []models.Card) error {
	room, err := c.lockSeatedRoom(connID, roomName)
	if err != nil {
		return err
	}
	defer room.Mu.Unlock()

	if !room.active() {
		return ErrGameNotActive
	}
	if discarded == nil {
		return ErrInvalidPayload
	}

	player := room.currentPlayer()
	heldBefore := len(player.Hand)
	player.Hand = models.RemoveFaces(player.Hand, discarded)
	player.CardCount = len(player.Hand)

	played := append([]models.Card{}, discarded...)
	room.LastPlayedCards = played
	room.DiscardPile = append(room.DiscardPile, played...)
	room.IsBullshit = false
	for _, card := range played {
		if !card.IsRank(room.CurrentCard) {
			room.IsBullshit = true
			break
		}
	}

	logger := c.log.WithFields(logrus.Fields{"room": room.Name, "player": player.Username, "cards": len(played)})
	logger.WithField("bluff", room.IsBullshit).Debug("Cards discarded.")
	c.logAction(room, player.ConnectionID, "discard", map[string]interface{}{
		"count":       len(played),
		"currentCard": room.CurrentCard,
		"isBullshit":  room.IsBullshit,
	})

	// A player who was never dealt cards cannot win by playing nothing.
	if heldBefore > 0 && len(player.Hand) == 0 && room.Winner == "" {
		room.Winner = player.Username
		room.stopTurnTimer()
		logger.Info("Game won.")
		c.logAction(room, player.ConnectionID, "game_won", map[string]interface{}{"winner": player.Username})
		c.recordResult(room)
		c.fireRoom(room, EventGameWon, GameWonPayload{RoomName: room.Name, Winner: player.Username})
	}

	c.fireRoom(room, EventDiscardPileUpdated, DiscardPileUpdatedPayload{
		RoomName:        room.Name,
		DiscardPile:     append([]models.Card{}, room.DiscardPile...),
		LastPlayedCards: append([]models.Card{}, room.LastPlayedCards...),
		IsBullshit:      room.IsBullshit,
	})
	return nil
}

// Challenge resolves a bluff call against the last mover. If the last play
// was a bluff the last mover takes the pile, otherwise the challenger does.
// Cards already in the liable hand (same suit and value) are not added twice.
func (c *Coordinator) Challenge(roomName, challengerUsername string) error {
	challengerUsername = strings.TrimSpace(challengerUsername)
	if challengerUsername == "" {
		return ErrChallengerNeeded
	}
	room, err := c.lockRoom(roomName)
	if err != nil {
		return err
	}
	defer room.Mu.Unlock()

	if !room.IsGameStarted {
		return ErrGameNotStarted
	}
	moverID, ok := c.LastMover(room.Name)
	if !ok {
		return ErrNoPriorMove
	}
	challenger := room.playerByUsername(challengerUsername)
	moverIdx := room.indexOfConn(moverID)
	if challenger == nil || moverIdx < 0 {
		return ErrPlayersNotFound
	}
	mover := room.Players[moverIdx]

	liable := challenger
	if room.IsBullshit {
		liable = mover
	}

	added := 0
	for _, card := range room.DiscardPile {
		if models.ContainsFace(liable.Hand, card) {
			continue
		}
		liable.Hand = append(liable.Hand, card)
		added++
	}
	liable.CardCount = len(liable.Hand)

	c.log.WithFields(logrus.Fields{
		"room":       room.Name,
		"challenger": challenger.Username,
		"lastMover":  mover.Username,
		"bluff":      room.IsBullshit,
		"liable":     liable.Username,
		"taken":      added,
	}).Info("Challenge resolved.")
	c.logAction(room, challenger.ConnectionID, "challenge", map[string]interface{}{
		"lastMover":  mover.Username,
		"isBullshit": room.IsBullshit,
		"liable":     liable.Username,
		"taken":      added,
	})

	room.DiscardPile = nil
	room.LastPlayedCards = nil
	room.IsBullshit = false

	c.fireRoom(room, EventPlayerStatsUpdated, PlayerStatsPayload{RoomName: room.Name, Players: room.roster()})
	return nil
}

// UpdateCardCount stores the client-reported hand size of the caller.
func (c *Coordinator) UpdateCardCount(connID uuid.UUID, roomName string, count int) error {
	if count < 0 {
		return ErrInvalidCardCount
	}
	room, err := c.lockRoom(roomName)
	if err != nil {
		return err
	}
	defer room.Mu.Unlock()

	idx := room.indexOfConn(connID)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	room.Players[idx].CardCount = count
	c.fireRoom(room, EventPlayerStatsUpdated, PlayerStatsPayload{RoomName: room.Name, Players: room.roster()})
	return nil
}
