package app

import (
	"sort"

	"unosync/internal/domain"
	"unosync/internal/lobby"
)

// Screen is the top-level screen a renderer should show.
type Screen string

const (
	ScreenAuth    Screen = "auth"
	ScreenLobby   Screen = "lobby"
	ScreenPlaying Screen = "playing"
)

// View is an immutable, render-ready copy of the synchronized state.
type View struct {
	Version  int
	SelfID   string
	LoggedIn bool
	Match    domain.MatchHandle

	Snapshot *domain.GameStateSnapshot
	Hand     []domain.Card
	Playable domain.PlayableSet
	Timer    *domain.TimerState

	Lobby       domain.LobbySeatState
	LobbyStatus lobby.Status

	Playing bool
}

// Screen picks the screen for the view.
func (v View) Screen() Screen {
	switch {
	case v.SelfID == "":
		return ScreenAuth
	case v.Playing && v.Match.Joined:
		return ScreenPlaying
	default:
		return ScreenLobby
	}
}

// IsMyTurn reports whether the snapshot says it is the local player's turn.
func (v View) IsMyTurn() bool {
	return v.Snapshot != nil && v.SelfID != "" && v.Snapshot.CurrentTurn == v.SelfID
}

// CanPlay reports whether the card at index may be offered for play: it is
// my turn and the server listed the index as playable.
func (v View) CanPlay(index int) bool {
	if index < 0 || index >= len(v.Hand) {
		return false
	}
	return v.IsMyTurn() && v.Playable.Contains(index)
}

// IsHost reports whether the server declared the local player lobby host.
func (v View) IsHost() bool {
	return lobby.IsHost(v.Lobby, v.LobbyStatus, v.SelfID)
}

// Finished reports whether the current match is over.
func (v View) Finished() bool {
	return v.Snapshot != nil && v.Snapshot.Phase == domain.PhaseFinished
}

// Opponents returns the players in the snapshot other than self, ordered by id.
func (v View) Opponents() []string {
	if v.Snapshot == nil {
		return nil
	}
	out := make([]string, 0, len(v.Snapshot.Players))
	for id := range v.Snapshot.Players {
		if id != v.SelfID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
