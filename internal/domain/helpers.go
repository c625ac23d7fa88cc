package domain

// FirstEmptySeat returns the lowest index of an empty seat, or -1 when every seat is taken.
func FirstEmptySeat(seats []Seat) int {
	for _, seat := range seats {
		if !seat.Occupied() {
			return seat.Index
		}
	}
	return -1
}

// CountOccupiedSeats returns the number of seats held by players or bots.
func CountOccupiedSeats(seats []Seat) int {
	n := 0
	for _, seat := range seats {
		if seat.Occupied() {
			n++
		}
	}
	return n
}

// NormalizeSeats returns exactly maxPlayers seats indexed 0..maxPlayers-1.
// Missing seats are padded as empty, extra seats are dropped and seats with
// an out-of-range index are ignored.
func NormalizeSeats(seats []Seat, maxPlayers int) []Seat {
	if maxPlayers < 0 {
		maxPlayers = 0
	}
	out := make([]Seat, maxPlayers)
	for i := range out {
		out[i] = Seat{Index: i, Type: SeatEmpty}
	}
	for _, seat := range seats {
		if seat.Index < 0 || seat.Index >= maxPlayers {
			continue
		}
		if seat.Type == "" {
			seat.Type = SeatEmpty
		}
		out[seat.Index] = seat
	}
	return out
}

// PlayableSet is the set of hand indices the server says are legal this turn.
type PlayableSet []int

// Contains reports whether index is playable.
func (p PlayableSet) Contains(index int) bool {
	for _, i := range p {
		if i == index {
			return true
		}
	}
	return false
}

// ClampSeconds bounds a timer value to [0, limit].
func ClampSeconds(seconds, limit int) int {
	if seconds < 0 {
		return 0
	}
	if limit > 0 && seconds > limit {
		return limit
	}
	return seconds
}
