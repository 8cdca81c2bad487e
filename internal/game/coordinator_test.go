// internal/game/coordinator_test.go
package game

import (
	"io"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// broadcastOp is one call made on the mock broadcaster.
type broadcastOp struct {
	kind string // "join", "leave", "all", "room"
	conn uuid.UUID
	room string
	ev   Event
}

// mockBroadcaster records every call for assertions.
type mockBroadcaster struct {
	mu     sync.Mutex
	ops    []broadcastOp
	groups map[string]map[uuid.UUID]bool
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{groups: make(map[string]map[uuid.UUID]bool)}
}

func (mb *mockBroadcaster) JoinGroup(connID uuid.UUID, roomName string) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.groups[roomName] == nil {
		mb.groups[roomName] = make(map[uuid.UUID]bool)
	}
	mb.groups[roomName][connID] = true
	mb.ops = append(mb.ops, broadcastOp{kind: "join", conn: connID, room: roomName})
}

func (mb *mockBroadcaster) LeaveGroup(connID uuid.UUID, roomName string) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	delete(mb.groups[roomName], connID)
	mb.ops = append(mb.ops, broadcastOp{kind: "leave", conn: connID, room: roomName})
}

func (mb *mockBroadcaster) BroadcastAll(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.ops = append(mb.ops, broadcastOp{kind: "all", ev: ev})
}

func (mb *mockBroadcaster) BroadcastRoom(roomName string, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.ops = append(mb.ops, broadcastOp{kind: "room", room: roomName, ev: ev})
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.ops = nil
}

// roomEvents returns the events sent to a room, in order.
func (mb *mockBroadcaster) roomEvents(roomName string) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, op := range mb.ops {
		if op.kind == "room" && op.room == roomName {
			out = append(out, op.ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) findRoomEvent(roomName string, t EventType) *Event {
	evs := mb.roomEvents(roomName)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == t {
			return &evs[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) lastDirectory() []RoomSummary {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.ops) - 1; i >= 0; i-- {
		if mb.ops[i].kind == "all" && mb.ops[i].ev.Type == EventActiveRooms {
			return mb.ops[i].ev.Payload.([]RoomSummary)
		}
	}
	return nil
}

func (mb *mockBroadcaster) inGroup(roomName string, connID uuid.UUID) bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.groups[roomName][connID]
}

func newTestCoordinator(t *testing.T, opts Options) (*Coordinator, *mockBroadcaster) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	opts.Logger = logger
	opts.PasswordCost = bcrypt.MinCost
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(42))
	}
	mb := newMockBroadcaster()
	return NewCoordinator(mb, opts), mb
}

func ident(name string) models.Identity {
	return models.Identity{Username: name, Avatar: name + ".png"}
}

// seatPlayers creates roomName and fills it with n players named p0..pn-1.
func seatPlayers(t *testing.T, c *Coordinator, roomName string, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		ids[i] = uuid.New()
		name := "p" + string(rune('0'+i))
		if i == 0 {
			require.NoError(t, c.CreateRoom(ids[i], roomName, "", ident(name)))
			continue
		}
		require.NoError(t, c.JoinRoom(ids[i], roomName, "", ident(name)))
	}
	return ids
}

func mustInfo(t *testing.T, c *Coordinator, roomName string) RoomSnapshot {
	t.Helper()
	info, err := c.GetRoomInfo(roomName)
	require.NoError(t, err)
	return info
}

func card(value, suit string) models.Card { return models.NewCard(suit, value) }

func TestCreateRoomPublic(t *testing.T) {
	c, mb := newTestCoordinator(t, Options{})
	creator := uuid.New()

	require.NoError(t, c.CreateRoom(creator, "alpha", "", ident("alice")))

	info := mustInfo(t, c, "alpha")
	assert.False(t, info.IsPrivate)
	assert.Equal(t, 1, info.PlayerCount)
	require.Len(t, info.Players, 1)
	assert.Equal(t, "alice", info.Players[0].Username)
	assert.True(t, mb.inGroup("alpha", creator))

	joined := mb.findRoomEvent("alpha", EventPlayerJoined)
	require.NotNil(t, joined)
	assert.Equal(t, creator, joined.Payload.(PlayerJoinedPayload).ConnectionID)

	dir := mb.lastDirectory()
	require.Len(t, dir, 1)
	assert.Equal(t, RoomSummary{RoomName: "alpha", PlayerCount: 1, MaxPlayers: MaxPlayers}, dir[0])

	// Public rooms accept any password.
	require.NoError(t, c.JoinRoom(uuid.New(), "alpha", "anything", ident("bob")))
	assert.Equal(t, 2, mustInfo(t, c, "alpha").PlayerCount)
}

func TestCreateRoomValidation(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{})

	assert.ErrorIs(t, c.CreateRoom(uuid.New(), "  ", "", ident("alice")), ErrRoomNameRequired)
	assert.ErrorIs(t, c.CreateRoom(uuid.New(), "alpha", "", models.Identity{Username: "alice"}), ErrIdentityRequired)
	assert.Equal(t, 0, c.Directory().Len())
}

func TestCreateRoomNameConflict(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{})
	require.NoError(t, c.CreateRoom(uuid.New(), "alpha", "", ident("alice")))

	err := c.CreateRoom(uuid.New(), "alpha", "pw", ident("bob"))
	require.ErrorIs(t, err, ErrRoomExists)
	assert.Equal(t, "Room name already exists", Message(err))
	assert.Equal(t, 1, c.Directory().Len())
	assert.Equal(t, 1, mustInfo(t, c, "alpha").PlayerCount)
}

func TestPrivateRoomPassword(t *testing.T) {
	c, mb := newTestCoordinator(t, Options{})
	require.NoError(t, c.CreateRoom(uuid.New(), "beta", "123", ident("alice")))
	assert.True(t, mustInfo(t, c, "beta").IsPrivate)
	mb.clear()

	intruder := uuid.New()
	err := c.JoinRoom(intruder, "beta", "wrong", ident("mallory"))
	require.ErrorIs(t, err, ErrIncorrectPassword)
	assert.Equal(t, "Incorrect password", Message(err))
	assert.Equal(t, KindState, KindOf(err))

	info := mustInfo(t, c, "beta")
	assert.Equal(t, 1, info.PlayerCount)
	assert.Len(t, info.Players, 1)
	assert.False(t, mb.inGroup("beta", intruder))
	assert.Empty(t, mb.roomEvents("beta"), "failed join must not broadcast")

	require.NoError(t, c.JoinRoom(uuid.New(), "beta", "123", ident("bob")))
	assert.Equal(t, 2, mustInfo(t, c, "beta").PlayerCount)
}

func TestJoinRoomErrors(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{})

	assert.ErrorIs(t, c.JoinRoom(uuid.New(), "nope", "", ident("bob")), ErrRoomNotFound)

	ids := seatPlayers(t, c, "alpha", MaxPlayers)
	err := c.JoinRoom(uuid.New(), "alpha", "", ident("late"))
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, MaxPlayers, mustInfo(t, c, "alpha").PlayerCount)

	require.NoError(t, c.LeaveRoom(ids[3], "alpha"))
	assert.ErrorIs(t, c.JoinRoom(ids[0], "alpha", "", ident("p0")), ErrAlreadyInRoom)
	assert.ErrorIs(t, c.JoinRoom(uuid.New(), "alpha", "", models.Identity{}), ErrIdentityRequired)
}

func TestJoinGroupHappensBeforePlayerJoined(t *testing.T) {
	c, mb := newTestCoordinator(t, Options{})
	seatPlayers(t, c, "alpha", 1)
	mb.clear()

	joiner := uuid.New()
	require.NoError(t, c.JoinRoom(joiner, "alpha", "", ident("bob")))

	joinIdx, eventIdx := -1, -1
	mb.mu.Lock()
	for i, op := range mb.ops {
		if op.kind == "join" && op.conn == joiner && joinIdx < 0 {
			joinIdx = i
		}
		if op.kind == "room" && op.ev.Type == EventPlayerJoined && eventIdx < 0 {
			eventIdx = i
		}
	}
	mb.mu.Unlock()
	require.GreaterOrEqual(t, joinIdx, 0)
	require.GreaterOrEqual(t, eventIdx, 0)
	assert.Less(t, joinIdx, eventIdx)

	payload := mb.findRoomEvent("alpha", EventPlayerJoined).Payload.(PlayerJoinedPayload)
	assert.Equal(t, joiner, payload.ConnectionID)
	assert.Len(t, payload.Players, 2)
}

func TestListRoomsHidesPassword(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{})
	require.NoError(t, c.CreateRoom(uuid.New(), "alpha", "", ident("alice")))
	require.NoError(t, c.CreateRoom(uuid.New(), "beta", "secret", ident("bob")))

	rooms := c.ListRooms()
	require.Len(t, rooms, 2)
	names := []string{rooms[0].RoomName, rooms[1].RoomName}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
	for _, r := range rooms {
		assert.Equal(t, r.RoomName == "beta", r.IsPrivate)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{})
	seatPlayers(t, c, "alpha", 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, full := 0, 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := c.JoinRoom(uuid.New(), "alpha", "", ident("j"+string(rune('a'+i))))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if err == ErrRoomFull {
				full++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, MaxPlayers-1, ok)
	assert.Equal(t, 12-(MaxPlayers-1), full)
	info := mustInfo(t, c, "alpha")
	assert.Equal(t, MaxPlayers, info.PlayerCount)
	assert.Len(t, info.Players, info.PlayerCount)
}

func TestConcurrentCreatesKeepNamesUnique(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.CreateRoom(uuid.New(), "alpha", "", ident("alice"))
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, ErrRoomExists)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, c.Directory().Len())
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ErrHandsMismatch))
	assert.Equal(t, KindNotFound, KindOf(ErrRoomNotFound))
	assert.Equal(t, KindState, KindOf(ErrRoomFull))
	assert.Equal(t, KindInternal, KindOf(io.EOF))
	assert.Equal(t, "Internal server error", Message(io.EOF))
}

func TestRoomNameIsTrimmedOnEveryLookup(t *testing.T) {
	c, mb := newTestCoordinator(t, Options{})
	creator, joiner := uuid.New(), uuid.New()

	require.NoError(t, c.CreateRoom(creator, " alpha ", "", ident("alice")))
	require.NoError(t, c.JoinRoom(joiner, " alpha ", "", ident("bob")))
	assert.True(t, mb.inGroup("alpha", joiner))

	info, err := c.GetRoomInfo(" alpha ")
	require.NoError(t, err)
	assert.Equal(t, "alpha", info.RoomName)
	assert.Equal(t, 2, info.PlayerCount)

	require.NoError(t, c.StartGame(creator, "alpha\t"))
	require.NoError(t, c.EndTurn(creator, " alpha"))
	mover, ok := c.LastMover("alpha")
	require.True(t, ok)
	assert.Equal(t, creator, mover)

	require.NoError(t, c.LeaveRoom(joiner, " alpha "))
	assert.Equal(t, 1, mustInfo(t, c, "alpha").PlayerCount)
}
