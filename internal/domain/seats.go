package domain

// OccupantType says who sits in a lobby seat.
type OccupantType string

const (
	SeatEmpty  OccupantType = "empty"
	SeatPlayer OccupantType = "player"
	SeatBot    OccupantType = "bot"
)

// Team labels used in 2v2 lobbies.
const (
	TeamA = "A"
	TeamB = "B"
)

// Seat is one lobby slot.
type Seat struct {
	Index      int          `json:"index"`
	Type       OccupantType `json:"type"`
	OccupantID string       `json:"userId,omitempty"`
	Username   string       `json:"username,omitempty"`
	Team       string       `json:"team,omitempty"`
}

// Occupied reports whether a player or bot holds the seat.
func (s Seat) Occupied() bool {
	return s.Type == SeatPlayer || s.Type == SeatBot
}

// TeamLabel returns the display label for the seat's team in team mode.
func (s Seat) TeamLabel() string {
	switch s.Team {
	case TeamA:
		return "Team A (Top/Bottom)"
	case TeamB:
		return "Team B (Left/Right)"
	default:
		return "Unassigned"
	}
}

// LobbyMember is the per-player entry of the lobby players/bots maps.
type LobbyMember struct {
	Username string `json:"username"`
	IsBot    bool   `json:"isBot"`
	Team     string `json:"team,omitempty"`
}

// JoinRequest is a pending joiner waiting for host approval.
type JoinRequest struct {
	Username string `json:"username"`
}

// LobbySeatState is the server-declared lobby layout.
type LobbySeatState struct {
	HostID            string                 `json:"hostId"`
	GameMode          GameMode               `json:"gameMode"`
	MaxPlayers        int                    `json:"maxPlayers"`
	IsTeamMode        bool                   `json:"isTeamMode"`
	Players           map[string]LobbyMember `json:"players"`
	Bots              map[string]LobbyMember `json:"bots"`
	Seats             []Seat                 `json:"seats"`
	Pending           map[string]JoinRequest `json:"pending"`
	CanStart          bool                   `json:"canStart"`
	WaitingForPlayers bool                   `json:"waitingForPlayers"`
}

// Clone returns a deep copy of the lobby state.
func (l LobbySeatState) Clone() LobbySeatState {
	out := l
	out.Seats = append([]Seat(nil), l.Seats...)
	out.Players = cloneMembers(l.Players)
	out.Bots = cloneMembers(l.Bots)
	if l.Pending != nil {
		out.Pending = make(map[string]JoinRequest, len(l.Pending))
		for id, r := range l.Pending {
			out.Pending[id] = r
		}
	}
	return out
}

func cloneMembers(in map[string]LobbyMember) map[string]LobbyMember {
	if in == nil {
		return nil
	}
	out := make(map[string]LobbyMember, len(in))
	for id, m := range in {
		out[id] = m
	}
	return out
}
