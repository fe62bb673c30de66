package core

import "github.com/teogomes/pokerPlanning/internal/domain"

// Frame is an encoded outbound event.
type Frame []byte

// SignalConnection abstracts the messaging transport of one connection.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped int
}

// UserView is the roster entry broadcast to clients (no transport fields).
type UserView struct {
	ID   domain.Token `json:"id"`
	Name string       `json:"name"`
}

// VoteView is one participant's vote as seen by the room. Value is only
// populated once the room is revealed; before that HasVoted alone carries
// the presence of a vote.
type VoteView struct {
	ID       domain.Token `json:"id"`
	Value    *string      `json:"value,omitempty"`
	HasVoted bool         `json:"hasVoted"`
}

// RoomService is the core-facing API of a room. Every mutating operation
// runs to completion under the room's lock, fan-out included, so no two
// mutations of the same room ever interleave.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int

	Join(name string, token domain.Token, cid domain.ConnID, conn SignalConnection) error
	Add(name string, token domain.Token, cid domain.ConnID, conn SignalConnection) bool
	SelectSeat(token domain.Token, seatID int) error
	CastVote(token domain.Token, value *string) bool
	Reveal()
	Reset()
	Chat(author, content string)
	Remove(token domain.Token) bool
	RemoveConn(cid domain.ConnID) []domain.Token
	CloseIfEmpty() bool

	Roster() ([]UserView, domain.Token)
	Seats() []domain.Seat
	Votes() ([]VoteView, bool)
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

type RoomFactory interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	List() []RoomInfo
	RemoveIfEmpty(id domain.RoomID) bool
}
