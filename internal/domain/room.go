package domain

type (
	// RoomID is the client-chosen key of a voting session.
	RoomID string
	// Token is the durable identity a browser generates once and keeps
	// across reconnects. Distinct from ConnID.
	Token string
	// ConnID is the volatile transport connection id. Cache-only routing
	// state, never an identity key.
	ConnID string
)

// Room carries the identifying metadata of a session. The live state
// (participants, seats, votes) is owned by the core room service.
type Room struct {
	ID RoomID
}

// DefaultSeatCount matches the observed table layout. Overridable via config.
const DefaultSeatCount = 4
