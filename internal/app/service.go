package app

import (
	"errors"
	"math"
	"sort"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"

	"unosync/internal/domain"
	"unosync/internal/logring"
)

// ErrMissingHandData is returned by OnStateUpdate when a snapshot carries no
// hand for the local player in either the keyed map or the legacy field.
var ErrMissingHandData = errors.New("no player hand data received")

const (
	subcodeCardNotOwned = "card_not_owned"
	subcodeInvalidPlay  = "invalid_play"
)

// Store holds the match-scoped state derived from server events. It is owned
// by a single consumer goroutine and takes no locks.
type Store struct {
	logger    runtime.Logger
	turnLimit int

	snapshot *domain.GameStateSnapshot
	phase    domain.Phase // last known phase, for regression checks
	hand     []domain.Card
	playable domain.PlayableSet
	timer    *domain.TimerState
	playing  bool
}

// NewStore creates an empty store. turnLimit bounds timer values; zero uses the default.
func NewStore(logger runtime.Logger, turnLimit int) *Store {
	if turnLimit <= 0 {
		turnLimit = domain.DefaultTurnLimitSeconds
	}
	return &Store{logger: logger, turnLimit: turnLimit}
}

// OnHandUpdate adopts a private hand when it belongs to self. A hand for any
// other player, or any hand while self is unknown, is ignored.
func (s *Store) OnHandUpdate(self string, ev PlayerHand) bool {
	if self == "" || ev.PlayerID != self {
		return false
	}
	s.hand = domain.CloneHand(ev.Hand)
	s.playable = append(domain.PlayableSet{}, ev.PlayableCards...)
	s.logger.Info("Player hand updated: %d cards", len(s.hand))
	return true
}

// OnStateUpdate replaces the snapshot and resolves the local hand from the
// keyed player_hands map, then the legacy player_hand field.
func (s *Store) OnStateUpdate(self string, ev GameState) error {
	next := ev.State.Clone()
	if next == nil {
		next = &domain.GameStateSnapshot{}
	}
	s.logger.Info("Game state update - Phase: %s", next.Phase)

	if next.Phase.Known() {
		if next.Phase.Before(s.phase) {
			s.logger.Info("Phase went from %s to %s, starting a new match", s.phase, next.Phase)
			s.resetRound()
		}
		s.phase = next.Phase
	} else {
		s.logger.Warn("Unknown game phase %q, keeping round state", next.Phase)
	}
	s.snapshot = next

	var err error
	if hand := ev.PlayerHands[self]; hand != nil && self != "" {
		s.hand = domain.CloneHand(hand)
		s.logger.Info("Player hand updated: %d cards", len(s.hand))
	} else if ev.LegacyHand != nil {
		s.hand = domain.CloneHand(ev.LegacyHand)
		s.logger.Info("Player hand updated: %d cards", len(s.hand))
	} else {
		err = ErrMissingHandData
		if ev.PlayerHands != nil {
			s.logger.Error("My hand not found in game state")
		} else {
			s.logger.Error("No player hand data received")
		}
	}

	if next.Phase == domain.PhasePlaying && !s.playing {
		s.playing = true
		s.logger.Info("Game started!")
	}
	return err
}

// OnTimerTick replaces the timer. Ticks arrive every second, so they are logged silently.
func (s *Store) OnTimerTick(ev TimerUpdate) {
	seconds := domain.ClampSeconds(int(math.Round(ev.TimeRemaining)), s.turnLimit)
	s.timer = &domain.TimerState{CurrentPlayerID: ev.CurrentPlayer, SecondsRemaining: seconds}
	s.logger.Debug("Timer: %ds for %s", seconds, ev.CurrentPlayer)
}

// OnGameEnded overlays phase=finished and the final scores onto the current
// snapshot, leaving every other field as it was.
func (s *Store) OnGameEnded(ev GameEnded) {
	s.logger.Info("Game ended: %s", ev.Reason)

	ids := make([]string, 0, len(ev.FinalScores))
	for id := range ev.FinalScores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		score := ev.FinalScores[id]
		s.logger.Info("%s: %s points (%s)", score.Username, formatScore(score.Score), score.Result)
	}
	if winner, ok := ev.FinalScores[ev.Winner]; ok && ev.Winner != "" {
		logring.Succeed(s.logger, "%s wins the game!", winner.Username)
	}

	if s.snapshot == nil {
		s.snapshot = &domain.GameStateSnapshot{}
	}
	s.snapshot.Phase = domain.PhaseFinished
	s.phase = domain.PhaseFinished
	s.snapshot.FinalScores = ev.FinalScores
}

func formatScore(score int) string {
	if score > 0 {
		return "+" + strconv.Itoa(score)
	}
	return strconv.Itoa(score)
}

// OnPlayError logs a rejected play with a hint for known subcodes. State is untouched.
func (s *Store) OnPlayError(ev PlayCardError) {
	s.logger.Error("%s", ev.Message)
	switch ev.Error {
	case subcodeCardNotOwned:
		s.logger.Warn("Make sure you're selecting a card from your hand")
	case subcodeInvalidPlay:
		var color, kind string
		if ev.TopCard != nil {
			color, kind = string(ev.TopCard.EffectiveColor()), string(ev.TopCard.Type)
		}
		s.logger.Warn("You can only play cards that match the color (%s) or type (%s) of the top card", color, kind)
	}
}

// Reset discards all match-scoped state.
func (s *Store) Reset() {
	s.snapshot = nil
	s.phase = ""
	s.resetRound()
}

func (s *Store) resetRound() {
	s.hand = nil
	s.playable = nil
	s.timer = nil
	s.playing = false
}

// Snapshot returns a copy of the current snapshot, or nil.
func (s *Store) Snapshot() *domain.GameStateSnapshot { return s.snapshot.Clone() }

// Hand returns a copy of the local hand.
func (s *Store) Hand() []domain.Card { return domain.CloneHand(s.hand) }

// Playable returns a copy of the playable index set.
func (s *Store) Playable() domain.PlayableSet { return append(domain.PlayableSet(nil), s.playable...) }

// Timer returns a copy of the timer, or nil.
func (s *Store) Timer() *domain.TimerState {
	if s.timer == nil {
		return nil
	}
	t := *s.timer
	return &t
}

// Playing reports whether the store has seen the match enter the playing phase.
func (s *Store) Playing() bool { return s.playing }
