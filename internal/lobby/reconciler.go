// Package lobby tracks the server-declared seat layout of a private match.
package lobby

import (
	"errors"

	"unosync/internal/domain"
)

// Status says whether the lobby state came from the server.
type Status int

const (
	// Unsynced means the state is a local placeholder built before any lobby_state arrived.
	Unsynced Status = iota
	// Synced means the state is exactly what the server last declared.
	Synced
)

func (s Status) String() string {
	if s == Synced {
		return "synced"
	}
	return "unsynced"
}

var (
	ErrNotPending  = errors.New("user has no pending join request")
	ErrNoEmptySeat = errors.New("no empty seat")
	ErrNotHost     = errors.New("only the host can do this")
	ErrUnsynced    = errors.New("lobby state not received yet")
)

const fallbackUsername = "You"

// Reconciler holds the lobby state for the current match.
type Reconciler struct {
	state  domain.LobbySeatState
	status Status
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Fallback installs a placeholder lobby with self in seat 0 and the remaining
// seats of mode empty. Any real lobby_state replaces it entirely.
func (r *Reconciler) Fallback(self domain.Identity, mode domain.GameMode) {
	cfg, _ := domain.LookupMode(mode)
	name := self.Username
	if name == "" {
		name = fallbackUsername
	}

	seats := domain.NormalizeSeats([]domain.Seat{{
		Index:      0,
		Type:       domain.SeatPlayer,
		OccupantID: self.UserID,
		Username:   name,
	}}, cfg.PlayerCount)

	r.state = domain.LobbySeatState{
		HostID:     self.UserID,
		GameMode:   cfg.Mode,
		MaxPlayers: cfg.PlayerCount,
		IsTeamMode: cfg.IsTeamMode,
		Players: map[string]domain.LobbyMember{
			self.UserID: {Username: name},
		},
		Bots:              map[string]domain.LobbyMember{},
		Seats:             seats,
		Pending:           map[string]domain.JoinRequest{},
		WaitingForPlayers: true,
	}
	r.status = Unsynced
}

// Apply replaces the lobby state with the server's. Seats are normalised to
// exactly MaxPlayers entries.
func (r *Reconciler) Apply(state domain.LobbySeatState) {
	next := state.Clone()
	if next.MaxPlayers <= 0 {
		cfg, _ := domain.LookupMode(next.GameMode)
		next.MaxPlayers = cfg.PlayerCount
	}
	next.Seats = domain.NormalizeSeats(next.Seats, next.MaxPlayers)
	r.state = next
	r.status = Synced
}

// Reset forgets the lobby entirely.
func (r *Reconciler) Reset() {
	r.state = domain.LobbySeatState{}
	r.status = Unsynced
}

// State returns a copy of the current lobby state.
func (r *Reconciler) State() domain.LobbySeatState { return r.state.Clone() }

func (r *Reconciler) Status() Status { return r.status }

// IsHost reports whether self is the host the server declared. The
// placeholder lobby never grants host rights.
func (r *Reconciler) IsHost(self string) bool {
	return IsHost(r.state, r.status, self)
}

// IsHost is the pure form of Reconciler.IsHost for copies of the state.
func IsHost(state domain.LobbySeatState, status Status, self string) bool {
	return status == Synced && self != "" && state.HostID == self
}

// ApprovalSeat picks the seat a pending user should be approved into: the
// first empty seat.
func ApprovalSeat(state domain.LobbySeatState, status Status, self, userID string) (int, error) {
	if status != Synced {
		return -1, ErrUnsynced
	}
	if !IsHost(state, status, self) {
		return -1, ErrNotHost
	}
	if _, ok := state.Pending[userID]; !ok {
		return -1, ErrNotPending
	}
	seat := domain.FirstEmptySeat(state.Seats)
	if seat < 0 {
		return -1, ErrNoEmptySeat
	}
	return seat, nil
}

// MySeat returns the seat self occupies, or -1.
func MySeat(state domain.LobbySeatState, self string) int {
	if self == "" {
		return -1
	}
	for _, seat := range state.Seats {
		if seat.Type == domain.SeatPlayer && seat.OccupantID == self {
			return seat.Index
		}
	}
	return -1
}
