// internal/models/card.go
package models

import (
	"fmt"
	"math/rand"
	"strings"
)

// Suit constants use the naming of the card images the web client renders.
const (
	SuitSpades   = "SPADES"
	SuitHearts   = "HEARTS"
	SuitDiamonds = "DIAMONDS"
	SuitClubs    = "CLUBS"
)

// Rank constants, in their fixed total order.
const (
	RankAce   = "ACE"
	RankTwo   = "2"
	RankThree = "3"
	RankFour  = "4"
	RankFive  = "5"
	RankSix   = "6"
	RankSeven = "7"
	RankEight = "8"
	RankNine  = "9"
	RankTen   = "10"
	RankJack  = "JACK"
	RankQueen = "QUEEN"
	RankKing  = "KING"
)

// Ranks lists the 13 ranks in order. Index in this slice is the rank's position.
var Ranks = [13]string{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

// Suits lists the four suits.
var Suits = [4]string{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

const cardImageBase = "https://deckofcardsapi.com/static/img/"

// Card is a single playing card as exchanged with clients.
type Card struct {
	Code  string `json:"code"`
	Image string `json:"image"`
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// RankIndex returns the position of rank in Ranks, or -1 if it is not a rank.
func RankIndex(rank string) int {
	for i, r := range Ranks {
		if r == rank {
			return i
		}
	}
	return -1
}

// IsRank reports whether s names one of the 13 ranks.
func IsRank(s string) bool { return RankIndex(s) >= 0 }

// RandomRank draws a rank uniformly. Draws are independent (with replacement).
func RandomRank(rng *rand.Rand) string {
	return Ranks[rng.Intn(len(Ranks))]
}

// NewCard builds a card with its code and image derived from suit and value.
func NewCard(suit, value string) Card {
	code := cardCode(suit, value)
	return Card{
		Code:  code,
		Image: cardImageBase + code + ".png",
		Suit:  suit,
		Value: value,
	}
}

// cardCode follows the two-character code scheme: rank letter (0 for ten) + suit letter.
func cardCode(suit, value string) string {
	r := value
	switch value {
	case RankAce, RankJack, RankQueen, RankKing:
		r = value[:1]
	case RankTen:
		r = "0"
	}
	if suit == "" {
		return r
	}
	return r + suit[:1]
}

// SameFace reports whether two cards share suit and value. Codes and image
// refs are ignored since clients may send them in different forms.
func (c Card) SameFace(o Card) bool {
	return strings.EqualFold(c.Suit, o.Suit) && strings.EqualFold(c.Value, o.Value)
}

// IsRank reports whether the card's value is the given rank.
func (c Card) IsRank(rank string) bool {
	return strings.EqualFold(c.Value, rank)
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Value, c.Suit)
}

// NewDeck returns the 52 cards of a standard deck in suit-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, NewCard(s, r))
		}
	}
	return deck
}

// ShuffleDeck shuffles the deck in place.
func ShuffleDeck(rng *rand.Rand, deck []Card) {
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// DealHands splits deck round-robin into n hands. Leftover cards are dealt
// to the first hands, so hand sizes differ by at most one.
func DealHands(deck []Card, n int) [][]Card {
	if n <= 0 {
		return nil
	}
	hands := make([][]Card, n)
	for i, c := range deck {
		hands[i%n] = append(hands[i%n], c)
	}
	return hands
}

// ContainsFace reports whether hand holds a card with the same face as c.
func ContainsFace(hand []Card, c Card) bool {
	for _, h := range hand {
		if h.SameFace(c) {
			return true
		}
	}
	return false
}

// RemoveFaces removes one matching card from hand for each card in played.
// Cards not held are ignored. It returns the new hand.
func RemoveFaces(hand []Card, played []Card) []Card {
	out := append([]Card(nil), hand...)
	for _, p := range played {
		for i := range out {
			if out[i].SameFace(p) {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return out
}
