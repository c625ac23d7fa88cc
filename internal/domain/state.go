package domain

// Phase represents the lifecycle stage of an UNO match as declared by the server.
type Phase string

const (
	// PhaseWaiting is the pre-game state where players are still gathering.
	PhaseWaiting Phase = "waiting"
	// PhasePlaying is the active game state where cards are played.
	PhasePlaying Phase = "playing"
	// PhaseFinished is the state after a game concludes.
	PhaseFinished Phase = "finished"
)

// Rank orders phases so regressions can be detected. Unknown phases rank -1.
func (p Phase) Rank() int {
	switch p {
	case PhaseWaiting:
		return 0
	case PhasePlaying:
		return 1
	case PhaseFinished:
		return 2
	default:
		return -1
	}
}

// Known reports whether p is one of the phases the server declares.
func (p Phase) Known() bool { return p.Rank() >= 0 }

// Before reports whether p comes earlier in the match lifecycle than other.
// An unknown phase is never before or after anything.
func (p Phase) Before(other Phase) bool {
	if !p.Known() || !other.Known() {
		return false
	}
	return p.Rank() < other.Rank()
}

// Direction is the turn order: +1 clockwise, -1 counter clockwise.
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

func (d Direction) String() string {
	if d == CounterClockwise {
		return "counter clockwise"
	}
	return "clockwise"
}

// Identity is the locally persisted player identity.
type Identity struct {
	DeviceID string
	UserID   string
	Username string
}

// Authenticated reports whether a user id has been resolved for this identity.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// MatchHandle identifies the match the local player is in.
type MatchHandle struct {
	MatchID string
	Joined  bool
}

// PlayerInfo is the public per-player data broadcast in every snapshot.
type PlayerInfo struct {
	Username  string `json:"username"`
	HandCount int    `json:"hand_count"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Team      string `json:"team,omitempty"`
}

// FinalScore is one entry of the final_scores map sent when a game ends.
type FinalScore struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Result   string `json:"result"` // "winner" or "loser"
}

// Winner reports whether this entry belongs to a winning player.
func (s FinalScore) Winner() bool {
	return s.Result == "winner"
}

// GameStateSnapshot is the complete server-declared game state. The server always
// pushes a full snapshot, so the client replaces rather than merges.
type GameStateSnapshot struct {
	CurrentTurn string                `json:"current_turn"`
	TopCard     *Card                 `json:"top_card,omitempty"`
	Direction   Direction             `json:"direction"`
	Phase       Phase                 `json:"game_phase"`
	Players     map[string]PlayerInfo `json:"players,omitempty"`
	FinalScores map[string]FinalScore `json:"final_scores,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s *GameStateSnapshot) Clone() *GameStateSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	if s.TopCard != nil {
		top := s.TopCard.Clone()
		out.TopCard = &top
	}
	if s.Players != nil {
		out.Players = make(map[string]PlayerInfo, len(s.Players))
		for id, p := range s.Players {
			out.Players[id] = p
		}
	}
	out.FinalScores = cloneScores(s.FinalScores)
	return &out
}

func cloneScores(in map[string]FinalScore) map[string]FinalScore {
	if in == nil {
		return nil
	}
	out := make(map[string]FinalScore, len(in))
	for id, s := range in {
		out[id] = s
	}
	return out
}

// TimerState is the turn timer pushed by server ticks.
type TimerState struct {
	CurrentPlayerID  string
	SecondsRemaining int
}
