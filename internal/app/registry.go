package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/teogomes/pokerPlanning/internal/domain"
)

type connEntry struct {
	RoomID domain.RoomID
	Cancel context.CancelFunc
}

// Registry tracks live connections and which room each one joined. It is
// the only place a volatile connection id is mapped back to a room, which
// is what makes ungraceful disconnects resolvable.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]*connEntry)}
}

func (r *Registry) Bind(cid domain.ConnID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = &connEntry{Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Msg("bound connection")
}

func (r *Registry) SetRoom(cid domain.ConnID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[cid]
	if !ok {
		return false
	}
	entry.RoomID = roomID
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Str("room", string(roomID)).Msg("updated room")
	return true
}

func (r *Registry) RoomOf(cid domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[cid]
	if !ok || entry.RoomID == "" {
		return "", false
	}
	return entry.RoomID, true
}

// Unbind drops the connection and cancels its context so both pumps wind
// down; the child context would otherwise live as long as the process.
func (r *Registry) Unbind(cid domain.ConnID) {
	r.mu.Lock()
	entry, ok := r.conns[cid]
	delete(r.conns, cid)
	r.mu.Unlock()
	if ok && entry.Cancel != nil {
		entry.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Msg("unbind connection")
}

func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
