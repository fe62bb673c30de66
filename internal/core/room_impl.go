package core

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teogomes/pokerPlanning/internal/domain"
)

var (
	// ErrDuplicateSession rejects a second live join for the same token.
	ErrDuplicateSession = errors.New("identity already active in room")
	// ErrSeatTaken is returned when the target seat has another occupant.
	// The requester still loses their previous seat.
	ErrSeatTaken = errors.New("seat already occupied")
	// ErrRoomClosed marks a room caught between emptying and removal from
	// the manager. A join that hits it must re-fetch the room.
	ErrRoomClosed = errors.New("room closed")
)

type member struct {
	p    *domain.Participant
	conn SignalConnection
}

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned connections.
type roomImpl struct {
	room *domain.Room

	mu       sync.Mutex
	order    []domain.Token
	members  map[domain.Token]*member
	seats    []domain.Seat
	votes    map[domain.Token]string
	revealed bool
	admin    domain.Token
	closed   bool
}

func NewRoomService(room *domain.Room, seatCount int) RoomService {
	return &roomImpl{
		room:    room,
		members: make(map[domain.Token]*member),
		seats:   domain.NewSeats(seatCount),
		votes:   make(map[domain.Token]string),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Join registers a new participant and fans out the fresh room state.
// A token that is still registered is rejected, never silently merged.
func (r *roomImpl) Join(name string, token domain.Token, cid domain.ConnID, conn SignalConnection) error {
	p, err := domain.NewParticipant(name, token, cid)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if _, ok := r.members[p.Token]; ok {
		return ErrDuplicateSession
	}
	if len(r.members) == 0 {
		r.admin = p.Token
	}
	r.members[p.Token] = &member{p: p, conn: conn}
	r.order = append(r.order, p.Token)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("token", string(p.Token)).Str("name", p.Name).Msg("member joined")

	r.pushUsersLocked()
	r.pushSeatsLocked()
	r.pushVotesLocked()
	// The joiner also gets the seat layout directly, so a just-opened tab
	// renders the table before the next room-wide push.
	_ = conn.TrySend(r.seatsFrameLocked())
	return nil
}

// Add registers a second local user sharing an existing connection.
// A token that is already present is a silent no-op, not an error.
func (r *roomImpl) Add(name string, token domain.Token, cid domain.ConnID, conn SignalConnection) bool {
	p, err := domain.NewParticipant(name, token, cid)
	if err != nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	if _, ok := r.members[p.Token]; ok {
		return false
	}
	if len(r.members) == 0 {
		r.admin = p.Token
	}
	r.members[p.Token] = &member{p: p, conn: conn}
	r.order = append(r.order, p.Token)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("token", string(p.Token)).Msg("member added")

	r.pushUsersLocked()
	r.pushSeatsLocked()
	r.pushVotesLocked()
	return true
}

// SelectSeat vacates any seat the token holds, then claims the target only
// if it is free. On a lost race the requester simply ends up seatless; the
// seat view is re-broadcast either way so clients reconcile.
func (r *roomImpl) SelectSeat(token domain.Token, seatID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[token]; !ok {
		return nil
	}
	r.vacateLocked(token)

	var err error
	claimed := false
	for i := range r.seats {
		if r.seats[i].ID != seatID {
			continue
		}
		if r.seats[i].OccupiedBy == "" {
			r.seats[i].OccupiedBy = token
			claimed = true
		} else {
			err = ErrSeatTaken
		}
		break
	}
	if !claimed && err == nil {
		// unknown seat id; the prior seat stays vacated
		log.Warn().Str("module", "core.room").Str("room", string(r.room.ID)).Int("seat", seatID).Msg("no such seat")
	}

	r.pushSeatsLocked()
	return err
}

// CastVote unconditionally overwrites the token's vote entry. A nil value
// retracts the vote; "?" and friends are stored verbatim — the allowed set
// is a client convention, not a server rule.
func (r *roomImpl) CastVote(token domain.Token, value *string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[token]; !ok {
		return false
	}
	if value == nil {
		delete(r.votes, token)
	} else {
		r.votes[token] = *value
	}
	r.pushVotesLocked()
	return true
}

// Reveal flips the room to revealed. The "revealing" signal goes out before
// the flag flips so every client starts its countdown on the same edge.
func (r *roomImpl) Reveal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastLocked(encode(struct {
		Type string `json:"type"`
	}{"revealing"}))
	r.revealed = true
	r.pushVotesLocked()
}

// Reset clears every vote and returns the room to collecting.
func (r *roomImpl) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.votes = make(map[domain.Token]string)
	r.revealed = false
	r.pushVotesLocked()
}

// Chat stamps and relays one message. Nothing is retained; a late joiner
// sees none of the prior chat.
func (r *roomImpl) Chat(author, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastLocked(encode(struct {
		Type      string `json:"type"`
		User      string `json:"user"`
		Message   string `json:"message"`
		Timestamp int64  `json:"timestamp"`
	}{"chat-message", author, content, time.Now().UnixMilli()}))
}

// Remove drops the participant, their seat and their vote. The caller is
// responsible for deleting the room once it is empty.
func (r *roomImpl) Remove(token domain.Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[token]; !ok {
		return false
	}
	r.removeLocked(token)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("token", string(token)).Msg("member removed")

	if len(r.members) > 0 {
		r.pushUsersLocked()
		r.pushSeatsLocked()
		r.pushVotesLocked()
	}
	return true
}

// RemoveConn resolves an ungraceful disconnect: every participant whose
// cached connection id matches is removed. A connection that never joined
// produces no state change.
func (r *roomImpl) RemoveConn(cid domain.ConnID) []domain.Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	var gone []domain.Token
	for _, token := range r.order {
		if m := r.members[token]; m != nil && m.p.ConnID == cid {
			gone = append(gone, token)
		}
	}
	for _, token := range gone {
		r.removeLocked(token)
	}
	if len(gone) > 0 {
		log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("conn", string(cid)).Int("removed", len(gone)).Msg("connection resolved")
		if len(r.members) > 0 {
			r.pushUsersLocked()
			r.pushSeatsLocked()
			r.pushVotesLocked()
		}
	}
	return gone
}

// CloseIfEmpty marks an empty room as closed so no join can slip in while
// the manager unmaps it. A room with members stays open.
func (r *roomImpl) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	return true
}

func (r *roomImpl) removeLocked(token domain.Token) {
	r.vacateLocked(token)
	delete(r.votes, token)
	delete(r.members, token)
	for i, t := range r.order {
		if t == token {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *roomImpl) vacateLocked(token domain.Token) {
	for i := range r.seats {
		if r.seats[i].OccupiedBy == token {
			r.seats[i].OccupiedBy = ""
		}
	}
}

// Roster returns the registration-ordered user list and the admin token.
// The first joiner stays admin even after leaving; there is no re-election.
func (r *roomImpl) Roster() ([]UserView, domain.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked(), r.admin
}

func (r *roomImpl) Seats() []domain.Seat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Seat, len(r.seats))
	copy(out, r.seats)
	return out
}

// Votes returns the per-participant vote view. While the room is not
// revealed the values are withheld; only HasVoted leaves the server.
func (r *roomImpl) Votes() ([]VoteView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.votesLocked(), r.revealed
}

func (r *roomImpl) rosterLocked() []UserView {
	out := make([]UserView, 0, len(r.order))
	for _, token := range r.order {
		if m := r.members[token]; m != nil {
			out = append(out, UserView{ID: m.p.Token, Name: m.p.Name})
		}
	}
	return out
}

func (r *roomImpl) votesLocked() []VoteView {
	out := make([]VoteView, 0, len(r.order))
	for _, token := range r.order {
		if _, ok := r.members[token]; !ok {
			continue
		}
		v := VoteView{ID: token}
		if value, voted := r.votes[token]; voted {
			v.HasVoted = true
			if r.revealed {
				val := value
				v.Value = &val
			}
		}
		out = append(out, v)
	}
	return out
}

func (r *roomImpl) pushUsersLocked() {
	r.broadcastLocked(encode(struct {
		Type  string       `json:"type"`
		Users []UserView   `json:"users"`
		Admin domain.Token `json:"admin,omitempty"`
	}{"room-users", r.rosterLocked(), r.admin}))
}

func (r *roomImpl) pushSeatsLocked() {
	r.broadcastLocked(r.seatsFrameLocked())
}

func (r *roomImpl) seatsFrameLocked() Frame {
	return encode(struct {
		Type  string        `json:"type"`
		Seats []domain.Seat `json:"seats"`
	}{"room-seats", r.seats})
}

func (r *roomImpl) pushVotesLocked() {
	r.broadcastLocked(encode(struct {
		Type     string     `json:"type"`
		Votes    []VoteView `json:"votes"`
		Revealed bool       `json:"revealed"`
	}{"room-votes", r.votesLocked(), r.revealed}))
}

// broadcastLocked pushes one frame to every distinct connection in the
// room, fire-and-forget. A full send buffer drops the frame for that
// connection only; the next full-state push corrects it.
func (r *roomImpl) broadcastLocked(f Frame) PublishResult {
	if f == nil {
		return PublishResult{}
	}
	res := PublishResult{}
	seen := make(map[domain.ConnID]struct{}, len(r.members))
	for _, token := range r.order {
		m := r.members[token]
		if m == nil {
			continue
		}
		if _, dup := seen[m.p.ConnID]; dup {
			continue
		}
		seen[m.p.ConnID] = struct{}{}
		if err := m.conn.TrySend(f); err != nil {
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).Int("sent_to", res.SentTo).Int("dropped", res.Dropped).Msg("broadcast result")
	return res
}

func encode(v any) Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Msg("encode frame")
		return nil
	}
	return b
}
