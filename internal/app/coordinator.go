package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/teogomes/pokerPlanning/internal/core"
	"github.com/teogomes/pokerPlanning/internal/domain"
)

// Coordinator dispatches inbound events against the room registry. Room
// state itself is mutated by the core room service; the coordinator owns
// room lifecycle (create on first join, delete on empty) and the
// connection-to-room binding.
type Coordinator struct {
	Registry *Registry
	Rooms    core.RoomFactory
}

// Join creates the room if absent and registers the participant.
// core.ErrDuplicateSession is returned for the adapter to answer with
// join-denied; any other failure leaves no orphaned room behind. A room
// caught mid-removal is re-fetched, never joined.
func (c *Coordinator) Join(cid domain.ConnID, roomID domain.RoomID, name string, token domain.Token, conn core.SignalConnection) error {
	for {
		room := c.Rooms.GetOrCreate(roomID)
		err := room.Join(name, token, cid, conn)
		if errors.Is(err, core.ErrRoomClosed) {
			continue
		}
		if err != nil {
			c.Rooms.RemoveIfEmpty(roomID)
			if errors.Is(err, core.ErrDuplicateSession) {
				log.Warn().Str("module", "app.coordinator").Str("room", string(roomID)).Str("token", string(token)).Msg("duplicate join rejected")
			}
			return err
		}
		c.Registry.SetRoom(cid, roomID)
		return nil
	}
}

// AddUser registers a second local identity on an existing connection.
// Unlike Join it requires the room to exist and never errors on a
// duplicate token.
func (c *Coordinator) AddUser(cid domain.ConnID, roomID domain.RoomID, name string, token domain.Token, conn core.SignalConnection) {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	room.Add(name, token, cid, conn)
}

func (c *Coordinator) SelectSeat(roomID domain.RoomID, token domain.Token, seatID int) {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	if err := room.SelectSeat(token, seatID); err != nil {
		// seat races stay silent; the broadcast already corrected everyone
		log.Info().Str("module", "app.coordinator").Str("room", string(roomID)).Int("seat", seatID).Msg("seat not assigned")
	}
}

func (c *Coordinator) CastVote(roomID domain.RoomID, token domain.Token, value *string) {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	room.CastVote(token, value)
}

func (c *Coordinator) Reveal(roomID domain.RoomID) {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	room.Reveal()
}

func (c *Coordinator) Reset(roomID domain.RoomID) {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	room.Reset()
}

func (c *Coordinator) Chat(roomID domain.RoomID, author, content string) {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	room.Chat(author, content)
}

// Leave removes one identity and deletes the room once empty.
func (c *Coordinator) Leave(roomID domain.RoomID, token domain.Token) {
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	room.Remove(token)
	c.cleanup(roomID)
}

// OnDisconnect resolves a dropped connection back to its identities and
// removes them. A connection that never joined a room is a no-op.
func (c *Coordinator) OnDisconnect(cid domain.ConnID) {
	defer c.Registry.Unbind(cid)

	roomID, ok := c.Registry.RoomOf(cid)
	if !ok {
		return
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return
	}
	gone := room.RemoveConn(cid)
	if len(gone) > 0 {
		log.Info().Str("module", "app.coordinator").Str("room", string(roomID)).Str("conn", string(cid)).Int("identities", len(gone)).Msg("disconnect resolved")
	}
	c.cleanup(roomID)
}

func (c *Coordinator) cleanup(roomID domain.RoomID) {
	if c.Rooms.RemoveIfEmpty(roomID) {
		log.Info().Str("module", "app.coordinator").Str("room", string(roomID)).Msg("empty room deleted")
	}
}
