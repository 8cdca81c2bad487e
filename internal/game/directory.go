// internal/game/directory.go
package game

import (
	"sort"
	"sync"
)

// Directory is the registry of live rooms keyed by name. It guards only the
// map; room contents are guarded by each room's own mutex. A room lock may
// be held while calling into the Directory, never the other way around.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*Room)}
}

// Get looks a room up by name.
func (d *Directory) Get(name string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[name]
	return r, ok
}

// Add registers room under its name. It returns false if the name is taken.
func (d *Directory) Add(room *Room) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.rooms[room.Name]; exists {
		return false
	}
	d.rooms[room.Name] = room
	return true
}

// Remove deletes name if it still maps to room.
func (d *Directory) Remove(name string, room *Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.rooms[name]; ok && cur == room {
		delete(d.rooms, name)
	}
}

// Rooms lists the live rooms, oldest first.
func (d *Directory) Rooms() []*Room {
	d.mu.RLock()
	out := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, r)
	}
	d.mu.RUnlock()
	// CreatedAt and Name are immutable after creation.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
