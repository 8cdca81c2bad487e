// internal/game/coordinator.go
package game

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bluff/internal/cache"
	"github.com/jason-s-yu/bluff/internal/database"
	"github.com/jason-s-yu/bluff/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ActionPublisher receives a record of every room mutation.
type ActionPublisher interface {
	PublishRoomAction(ctx context.Context, rec cache.RoomActionRecord) error
}

// ResultStore receives the outcome of each finished game.
type ResultStore interface {
	StoreGameResult(ctx context.Context, res database.GameResult) error
}

// Options configures a Coordinator. Zero values are usable.
type Options struct {
	// TurnTimeout auto-ends a turn after this long. Zero disables the timer.
	TurnTimeout time.Duration
	// Rand drives required-rank draws. Defaults to a time-seeded source.
	Rand *rand.Rand
	// PasswordCost is the bcrypt cost for room passwords.
	PasswordCost int

	Publisher ActionPublisher
	Results   ResultStore
	Logger    logrus.FieldLogger
}

// Coordinator owns the room directory and applies every client action to it.
// Each room mutation and its room-scoped broadcasts run under that room's
// lock, so handlers for one room never observe each other's partial state.
type Coordinator struct {
	rooms *Directory
	bc    Broadcaster

	lastMoverMu sync.Mutex
	lastMover   map[string]uuid.UUID // roomName -> connection that last ended a turn.

	rngMu sync.Mutex
	rng   *rand.Rand

	dirMu sync.Mutex // Serialises directory snapshots so clients see them in order.

	turnTimeout  time.Duration
	passwordCost int
	publisher    ActionPublisher
	results      ResultStore
	log          logrus.FieldLogger
}

// NewCoordinator creates a coordinator with an empty directory.
func NewCoordinator(bc Broadcaster, opts Options) *Coordinator {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cost := opts.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Coordinator{
		rooms:        NewDirectory(),
		bc:           bc,
		lastMover:    make(map[string]uuid.UUID),
		rng:          rng,
		turnTimeout:  opts.TurnTimeout,
		passwordCost: cost,
		publisher:    opts.Publisher,
		results:      opts.Results,
		log:          logger,
	}
}

// Directory exposes the room registry.
func (c *Coordinator) Directory() *Directory { return c.rooms }

// CreateRoom registers a new room with the creator seated alone in it.
func (c *Coordinator) CreateRoom(connID uuid.UUID, roomName, password string, id models.Identity) error {
	roomName = normalizeRoomName(roomName)
	if roomName == "" {
		return ErrRoomNameRequired
	}
	if id.Username == "" || id.Avatar == "" {
		return ErrIdentityRequired
	}

	var hash []byte
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), c.passwordCost)
		if err != nil {
			c.log.WithError(err).WithField("room", roomName).Error("Failed to hash room password.")
			return ErrInternal
		}
		hash = h
	}

	room := newRoom(roomName, hash)
	creator := models.NewPlayer(connID, id)
	room.Players = append(room.Players, creator)
	room.PlayerCount = 1

	// Lock before publishing the room so nobody joins ahead of the creator's event.
	room.Mu.Lock()
	if !c.rooms.Add(room) {
		room.Mu.Unlock()
		c.log.WithField("room", roomName).Info("Create rejected: room name already exists.")
		return ErrRoomExists
	}
	c.bc.JoinGroup(connID, roomName)
	c.log.WithFields(logrus.Fields{"room": roomName, "conn": connID, "private": room.IsPrivate}).Info("Room created.")
	c.logAction(room, connID, "room_create", map[string]interface{}{"username": id.Username, "private": room.IsPrivate})
	c.fireRoom(room, EventPlayerJoined, PlayerJoinedPayload{RoomName: roomName, Players: room.roster(), ConnectionID: connID})
	room.Mu.Unlock()

	c.broadcastDirectory()
	return nil
}

// JoinRoom seats the identity in an existing room.
func (c *Coordinator) JoinRoom(connID uuid.UUID, roomName, password string, id models.Identity) error {
	roomName = normalizeRoomName(roomName)
	if id.Username == "" || id.Avatar == "" {
		return ErrIdentityRequired
	}
	room, err := c.lockRoom(roomName)
	if err != nil {
		return err
	}
	logger := c.log.WithFields(logrus.Fields{"room": roomName, "conn": connID})

	if room.indexOfConn(connID) >= 0 {
		room.Mu.Unlock()
		return ErrAlreadyInRoom
	}
	if room.IsPrivate && bcrypt.CompareHashAndPassword(room.passwordHash, []byte(password)) != nil {
		room.Mu.Unlock()
		logger.Info("Join rejected: incorrect password.")
		return ErrIncorrectPassword
	}
	if room.PlayerCount >= MaxPlayers {
		room.Mu.Unlock()
		logger.Info("Join rejected: room full.")
		return ErrRoomFull
	}

	room.Players = append(room.Players, models.NewPlayer(connID, id))
	room.PlayerCount++
	// Group membership must be in effect before the join event goes out.
	c.bc.JoinGroup(connID, roomName)
	logger.WithField("players", room.PlayerCount).Info("Player joined room.")
	c.logAction(room, connID, "player_join", map[string]interface{}{"username": id.Username})
	c.fireRoom(room, EventPlayerJoined, PlayerJoinedPayload{RoomName: roomName, Players: room.roster(), ConnectionID: connID})
	room.Mu.Unlock()

	c.broadcastDirectory()
	return nil
}

// ListRooms returns the directory listing.
// Must not be called while holding a room lock.
func (c *Coordinator) ListRooms() []RoomSummary {
	rooms := c.rooms.Rooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.Mu.Lock()
		if !r.closed {
			out = append(out, r.summary())
		}
		r.Mu.Unlock()
	}
	return out
}

// GetRoomInfo returns a snapshot of the named room.
func (c *Coordinator) GetRoomInfo(roomName string) (RoomSnapshot, error) {
	room, err := c.lockRoom(roomName)
	if err != nil {
		return RoomSnapshot{}, err
	}
	defer room.Mu.Unlock()
	return room.snapshot(), nil
}

// normalizeRoomName is applied to every room name a client sends.
func normalizeRoomName(roomName string) string {
	return strings.TrimSpace(roomName)
}

// lockRoom finds a live room and returns it locked.
func (c *Coordinator) lockRoom(roomName string) (*Room, error) {
	room, ok := c.rooms.Get(normalizeRoomName(roomName))
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.Mu.Lock()
	if room.closed {
		room.Mu.Unlock()
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// lockSeatedRoom is lockRoom for actions only a seated player may take.
func (c *Coordinator) lockSeatedRoom(connID uuid.UUID, roomName string) (*Room, error) {
	room, err := c.lockRoom(roomName)
	if err != nil {
		return nil, err
	}
	if room.indexOfConn(connID) < 0 {
		room.Mu.Unlock()
		return nil, ErrPlayerNotFound
	}
	return room, nil
}

// broadcastDirectory pushes the listing to every connection.
// Must not be called while holding a room lock.
func (c *Coordinator) broadcastDirectory() {
	c.dirMu.Lock()
	defer c.dirMu.Unlock()
	c.bc.BroadcastAll(Event{Type: EventActiveRooms, Payload: c.ListRooms()})
}

// fireRoom sends an event to the room's group.
// Assumes lock is held by caller.
func (c *Coordinator) fireRoom(room *Room, t EventType, payload interface{}) {
	c.bc.BroadcastRoom(room.Name, Event{Type: t, Payload: payload})
}

func (c *Coordinator) drawRank() string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return models.RandomRank(c.rng)
}

func (c *Coordinator) setLastMover(roomName string, connID uuid.UUID) {
	c.lastMoverMu.Lock()
	c.lastMover[roomName] = connID
	c.lastMoverMu.Unlock()
}

func (c *Coordinator) clearLastMover(roomName string) {
	c.lastMoverMu.Lock()
	delete(c.lastMover, roomName)
	c.lastMoverMu.Unlock()
}

// LastMover returns the connection that last ended a turn in the room.
func (c *Coordinator) LastMover(roomName string) (uuid.UUID, bool) {
	c.lastMoverMu.Lock()
	defer c.lastMoverMu.Unlock()
	id, ok := c.lastMover[roomName]
	return id, ok
}
