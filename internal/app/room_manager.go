package app

import (
	"sync"

	"github.com/teogomes/pokerPlanning/internal/core"
	"github.com/teogomes/pokerPlanning/internal/domain"
)

type RoomManagerImpl struct {
	mu        sync.RWMutex
	rooms     map[domain.RoomID]core.RoomService
	seatCount int
}

func NewRoomManager(seatCount int) core.RoomFactory {
	return &RoomManagerImpl{
		rooms:     make(map[domain.RoomID]core.RoomService),
		seatCount: seatCount,
	}
}

func (f *RoomManagerImpl) GetOrCreate(id domain.RoomID) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok {
		return room
	}
	room = core.NewRoomService(&domain.Room{ID: id}, f.seatCount)
	f.rooms[id] = room
	return room
}

func (f *RoomManagerImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}

// RemoveIfEmpty unmaps the room iff it is still empty. The emptiness
// re-check runs under the manager write lock and closes the room under its
// own mutex, so a join racing the removal either lands before the close or
// gets ErrRoomClosed and re-fetches.
func (f *RoomManagerImpl) RemoveIfEmpty(id domain.RoomID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return false
	}
	if !room.CloseIfEmpty() {
		return false
	}
	delete(f.rooms, id)
	return true
}
