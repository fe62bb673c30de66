package domain

// Seat is one of a fixed number of table slots. An empty OccupiedBy means
// the seat is vacant; the seat set never grows or shrinks at runtime.
type Seat struct {
	ID         int   `json:"id"`
	OccupiedBy Token `json:"occupiedBy,omitempty"`
}

// NewSeats builds the canonical vacant seat list, ids 1..n.
func NewSeats(n int) []Seat {
	if n <= 0 {
		n = DefaultSeatCount
	}
	seats := make([]Seat, n)
	for i := range seats {
		seats[i].ID = i + 1
	}
	return seats
}
