package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrder(t *testing.T) {
	assert.Equal(t, 0, RankIndex(RankAce))
	assert.Equal(t, 9, RankIndex(RankTen))
	assert.Equal(t, 12, RankIndex(RankKing))
	assert.Equal(t, -1, RankIndex("JOKER"))
	assert.True(t, IsRank("QUEEN"))
	assert.False(t, IsRank("queen"), "rank lookup is exact")
}

func TestNewCardCodes(t *testing.T) {
	c := NewCard(SuitSpades, RankAce)
	assert.Equal(t, "AS", c.Code)
	assert.Equal(t, "https://deckofcardsapi.com/static/img/AS.png", c.Image)

	assert.Equal(t, "0H", NewCard(SuitHearts, RankTen).Code)
	assert.Equal(t, "7C", NewCard(SuitClubs, RankSeven).Code)
	assert.Equal(t, "KD", NewCard(SuitDiamonds, RankKing).Code)
}

func TestSameFaceIgnoresCodeAndImage(t *testing.T) {
	a := NewCard(SuitHearts, RankFive)
	b := Card{Suit: "hearts", Value: "5"}
	assert.True(t, a.SameFace(b))
	assert.False(t, a.SameFace(NewCard(SuitClubs, RankFive)))
	assert.True(t, b.IsRank(RankFive))
}

func TestNewDeckIsComplete(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, 52)
	seen := map[string]bool{}
	for _, c := range deck {
		require.False(t, seen[c.Code], "duplicate card %s", c.Code)
		seen[c.Code] = true
	}
}

func TestShuffleAndDeal(t *testing.T) {
	deck := NewDeck()
	ShuffleDeck(rand.New(rand.NewSource(7)), deck)
	hands := DealHands(deck, 3)
	require.Len(t, hands, 3)
	assert.Len(t, hands[0], 18)
	assert.Len(t, hands[1], 17)
	assert.Len(t, hands[2], 17)
	assert.Nil(t, DealHands(deck, 0))
}

func TestRandomRankStaysInSet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		assert.True(t, IsRank(RandomRank(rng)))
	}
}

func TestRemoveFaces(t *testing.T) {
	hand := []Card{NewCard(SuitSpades, RankTwo), NewCard(SuitHearts, RankTwo), NewCard(SuitClubs, RankNine)}
	out := RemoveFaces(hand, []Card{{Suit: SuitHearts, Value: RankTwo}, {Suit: SuitDiamonds, Value: RankKing}})
	require.Len(t, out, 2)
	assert.False(t, ContainsFace(out, NewCard(SuitHearts, RankTwo)))
	assert.True(t, ContainsFace(out, NewCard(SuitSpades, RankTwo)))
	assert.Len(t, hand, 3, "input hand is not modified")
}
