package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/teogomes/pokerPlanning/internal/core"
	"github.com/teogomes/pokerPlanning/internal/domain"
)

type nopConn struct {
	mu     sync.Mutex
	frames int
}

func (n *nopConn) TrySend(core.Frame) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames++
	return nil
}

func (n *nopConn) Close() {}

func newTestCoordinator() *Coordinator {
	return &Coordinator{
		Registry: NewRegistry(),
		Rooms:    NewRoomManager(domain.DefaultSeatCount),
	}
}

func TestJoinCreatesRoomLazily(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)

	if _, ok := c.Rooms.Get("42"); ok {
		t.Fatal("room must not exist before the first join")
	}
	if err := c.Join("c1", "42", "A", "t1", &nopConn{}); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	room, ok := c.Rooms.Get("42")
	if !ok {
		t.Fatal("room should exist after join")
	}
	if room.MemberCount() != 1 {
		t.Errorf("expected 1 member, got %d", room.MemberCount())
	}
	if roomID, ok := c.Registry.RoomOf("c1"); !ok || roomID != "42" {
		t.Errorf("connection not bound to room: %q %v", roomID, ok)
	}
}

func TestFailedJoinLeavesNoOrphanRoom(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)

	// empty display name never registers
	if err := c.Join("c1", "42", "", "t1", &nopConn{}); err == nil {
		t.Fatal("expected join to fail")
	}
	if _, ok := c.Rooms.Get("42"); ok {
		t.Error("failed first join must not leave an empty room behind")
	}
}

func TestDuplicateJoinSecondConnectionDenied(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)
	c.Registry.Bind("c2", nil)

	if err := c.Join("c1", "42", "A", "t1", &nopConn{}); err != nil {
		t.Fatal(err)
	}
	err := c.Join("c2", "42", "A", "t1", &nopConn{})
	if !errors.Is(err, core.ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
	room, _ := c.Rooms.Get("42")
	if room.MemberCount() != 1 {
		t.Errorf("expected exactly one active participant, got %d", room.MemberCount())
	}
	if _, ok := c.Registry.RoomOf("c2"); ok {
		t.Error("denied connection must not be bound to the room")
	}
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)
	if err := c.Join("c1", "42", "A", "t1", &nopConn{}); err != nil {
		t.Fatal(err)
	}

	c.Leave("42", "t1")

	if _, ok := c.Rooms.Get("42"); ok {
		t.Error("empty room must be deleted immediately")
	}
}

func TestLeaveKeepsPopulatedRoom(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)
	c.Registry.Bind("c2", nil)
	if err := c.Join("c1", "42", "A", "t1", &nopConn{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Join("c2", "42", "B", "t2", &nopConn{}); err != nil {
		t.Fatal(err)
	}

	c.Leave("42", "t1")

	room, ok := c.Rooms.Get("42")
	if !ok {
		t.Fatal("room with remaining members must survive")
	}
	if room.MemberCount() != 1 {
		t.Errorf("expected 1 member left, got %d", room.MemberCount())
	}
}

func TestDisconnectResolvesAndCleansUp(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)
	if err := c.Join("c1", "42", "A", "t1", &nopConn{}); err != nil {
		t.Fatal(err)
	}
	c.SelectSeat("42", "t1", 1)
	val := "5"
	c.CastVote("42", "t1", &val)

	c.OnDisconnect("c1")

	if _, ok := c.Rooms.Get("42"); ok {
		t.Error("room must be deleted once its only participant disconnects")
	}
	if c.Registry.ConnCount() != 0 {
		t.Errorf("connection must be unbound, %d still tracked", c.Registry.ConnCount())
	}
}

func TestDisconnectOfUnjoinedConnection(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)

	// never joined a room: no state change, no panic
	c.OnDisconnect("c1")

	if c.Registry.ConnCount() != 0 {
		t.Error("connection should still be unbound")
	}
	if got := len(c.Rooms.List()); got != 0 {
		t.Errorf("no rooms should exist, got %d", got)
	}
}

func TestOperationsOnUnknownRoomAreSilent(t *testing.T) {
	c := newTestCoordinator()
	val := "5"

	c.AddUser("c1", "missing", "A", "t1", &nopConn{})
	c.SelectSeat("missing", "t1", 1)
	c.CastVote("missing", "t1", &val)
	c.Reveal("missing")
	c.Reset("missing")
	c.Chat("missing", "A", "hi")
	c.Leave("missing", "t1")

	if got := len(c.Rooms.List()); got != 0 {
		t.Errorf("operations on unknown rooms must not create rooms, got %d", got)
	}
}

func TestDelayedCleanupDoesNotStrandJoiner(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)
	c.Registry.Bind("c2", nil)
	if err := c.Join("c1", "42", "A", "t1", &nopConn{}); err != nil {
		t.Fatal(err)
	}

	// replay the hazardous interleaving: the room empties, a new join
	// lands, and only then does the pending cleanup fire
	room, _ := c.Rooms.Get("42")
	room.Remove("t1")
	if err := c.Join("c2", "42", "B", "t2", &nopConn{}); err != nil {
		t.Fatalf("join into emptied-but-mapped room failed: %v", err)
	}
	c.cleanup("42")

	after, ok := c.Rooms.Get("42")
	if !ok {
		t.Fatal("room with a live participant was deleted")
	}
	if after.MemberCount() != 1 {
		t.Fatalf("expected the joiner to survive cleanup, got %d members", after.MemberCount())
	}

	// later events still reach the surviving participant
	val := "5"
	c.CastVote("42", "t2", &val)
	votes, _ := after.Votes()
	if len(votes) != 1 || !votes[0].HasVoted {
		t.Errorf("vote after cleanup was dropped: %+v", votes)
	}
}

// staleFactory serves one closed room before delegating, standing in for a
// join that fetched its room just as the manager removed it.
type staleFactory struct {
	core.RoomFactory
	stale  core.RoomService
	served bool
}

func (f *staleFactory) GetOrCreate(id domain.RoomID) core.RoomService {
	if !f.served {
		f.served = true
		return f.stale
	}
	return f.RoomFactory.GetOrCreate(id)
}

func TestJoinRefetchesClosedRoom(t *testing.T) {
	closed := core.NewRoomService(&domain.Room{ID: "42"}, domain.DefaultSeatCount)
	if !closed.CloseIfEmpty() {
		t.Fatal("fresh empty room should close")
	}

	c := &Coordinator{
		Registry: NewRegistry(),
		Rooms:    &staleFactory{RoomFactory: NewRoomManager(domain.DefaultSeatCount), stale: closed},
	}
	c.Registry.Bind("c1", nil)

	if err := c.Join("c1", "42", "A", "t1", &nopConn{}); err != nil {
		t.Fatalf("join must retry past a closed room: %v", err)
	}
	room, ok := c.Rooms.Get("42")
	if !ok || room.MemberCount() != 1 {
		t.Fatal("joiner did not land in a fresh room")
	}
	if closed.MemberCount() != 0 {
		t.Error("closed room must stay empty")
	}
}

func TestRoomListing(t *testing.T) {
	c := newTestCoordinator()
	c.Registry.Bind("c1", nil)
	c.Registry.Bind("c2", nil)
	if err := c.Join("c1", "alpha", "A", "t1", &nopConn{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Join("c2", "beta", "B", "t2", &nopConn{}); err != nil {
		t.Fatal(err)
	}

	infos := c.Rooms.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(infos))
	}
	for _, info := range infos {
		if info.MemberCount != 1 {
			t.Errorf("room %s: expected 1 member, got %d", info.ID, info.MemberCount)
		}
	}
}
