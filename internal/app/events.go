package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"unosync/internal/domain"
)

// EventKind is the "type" discriminator of a server match message.
type EventKind string

const (
	EventPlayerHand    EventKind = "player_hand"
	EventGameState     EventKind = "game_state"
	EventGameStarted   EventKind = "game_started"
	EventPlayerJoined  EventKind = "player_joined"
	EventGameOver      EventKind = "game_over"
	EventCardPlayed    EventKind = "card_played"
	EventCardDrawn     EventKind = "card_drawn"
	EventTimerUpdate   EventKind = "timer_update"
	EventAutoPlay      EventKind = "auto_play"
	EventAutoDraw      EventKind = "auto_draw"
	EventGameEnded     EventKind = "game_ended"
	EventPlayerLeft    EventKind = "player_left"
	EventPlayCardError EventKind = "play_card_error"
	EventLobbyState    EventKind = "lobby_state"
)

// Event is a parsed server message. The set of implementations is closed to
// this package; Accept calls exactly one Handler method.
type Event interface {
	Kind() EventKind
	Accept(h Handler)
	isEvent()
}

// Handler has one method per event. Adding an event type adds a method here,
// so every handler must be updated before the module compiles again.
type Handler interface {
	OnPlayerHand(PlayerHand)
	OnGameState(GameState)
	OnGameStarted(GameStarted)
	OnPlayerJoined(PlayerJoined)
	OnGameOver(GameOver)
	OnCardPlayed(CardPlayed)
	OnCardDrawn(CardDrawn)
	OnTimerUpdate(TimerUpdate)
	OnAutoPlay(AutoPlay)
	OnAutoDraw(AutoDraw)
	OnGameEnded(GameEnded)
	OnPlayerLeft(PlayerLeft)
	OnPlayCardError(PlayCardError)
	OnLobbyState(LobbyState)
	OnUnknown(Unknown)
}

// PlayerHand is the private hand of one player, sent to that player only.
type PlayerHand struct {
	PlayerID      string             `json:"player_id"`
	Hand          []domain.Card      `json:"hand"`
	PlayableCards domain.PlayableSet `json:"playable_cards,omitempty"`
}

// GameState carries a full snapshot plus the receiver's hand in either the
// keyed player_hands map or the legacy player_hand field.
type GameState struct {
	State       *domain.GameStateSnapshot `json:"state"`
	PlayerHands map[string][]domain.Card  `json:"player_hands,omitempty"`
	LegacyHand  []domain.Card             `json:"player_hand,omitempty"`
}

type GameStarted struct {
	Message string `json:"message"`
}

type PlayerJoined struct {
	PlayerName  string `json:"player_name"`
	PlayerCount int    `json:"player_count"`
}

type GameOver struct {
	WinnerID string `json:"winner_id"`
}

type CardPlayed struct {
	PlayerID string `json:"player_id"`
}

type CardDrawn struct {
	PlayerID string `json:"player_id"`
}

// TimerUpdate is the per-second turn timer tick.
type TimerUpdate struct {
	TimeRemaining float64 `json:"time_remaining"`
	CurrentPlayer string  `json:"current_player"`
}

type AutoPlay struct {
	PlayerID string `json:"player_id"`
}

type AutoDraw struct {
	PlayerID string `json:"player_id"`
}

// GameEnded is the terminal message. FinalScores is keyed by user id.
type GameEnded struct {
	Reason      string                       `json:"reason"`
	Winner      string                       `json:"winner,omitempty"`
	FinalScores map[string]domain.FinalScore `json:"final_scores,omitempty"`
}

type PlayerLeft struct {
	PlayerID string `json:"player_id"`
}

// PlayCardError rejects a play. Error is a machine subcode such as
// "card_not_owned" or "invalid_play".
type PlayCardError struct {
	Message string       `json:"message"`
	Error   string       `json:"error"`
	TopCard *domain.Card `json:"top_card,omitempty"`
}

// LobbyState is the server-declared lobby layout.
type LobbyState struct {
	domain.LobbySeatState
}

// Unknown is any well-formed message whose type this client does not know.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (PlayerHand) Kind() EventKind    { return EventPlayerHand }
func (GameState) Kind() EventKind     { return EventGameState }
func (GameStarted) Kind() EventKind   { return EventGameStarted }
func (PlayerJoined) Kind() EventKind  { return EventPlayerJoined }
func (GameOver) Kind() EventKind      { return EventGameOver }
func (CardPlayed) Kind() EventKind    { return EventCardPlayed }
func (CardDrawn) Kind() EventKind     { return EventCardDrawn }
func (TimerUpdate) Kind() EventKind   { return EventTimerUpdate }
func (AutoPlay) Kind() EventKind      { return EventAutoPlay }
func (AutoDraw) Kind() EventKind      { return EventAutoDraw }
func (GameEnded) Kind() EventKind     { return EventGameEnded }
func (PlayerLeft) Kind() EventKind    { return EventPlayerLeft }
func (PlayCardError) Kind() EventKind { return EventPlayCardError }
func (LobbyState) Kind() EventKind    { return EventLobbyState }
func (u Unknown) Kind() EventKind     { return EventKind(u.Type) }

func (e PlayerHand) Accept(h Handler)    { h.OnPlayerHand(e) }
func (e GameState) Accept(h Handler)     { h.OnGameState(e) }
func (e GameStarted) Accept(h Handler)   { h.OnGameStarted(e) }
func (e PlayerJoined) Accept(h Handler)  { h.OnPlayerJoined(e) }
func (e GameOver) Accept(h Handler)      { h.OnGameOver(e) }
func (e CardPlayed) Accept(h Handler)    { h.OnCardPlayed(e) }
func (e CardDrawn) Accept(h Handler)     { h.OnCardDrawn(e) }
func (e TimerUpdate) Accept(h Handler)   { h.OnTimerUpdate(e) }
func (e AutoPlay) Accept(h Handler)      { h.OnAutoPlay(e) }
func (e AutoDraw) Accept(h Handler)      { h.OnAutoDraw(e) }
func (e GameEnded) Accept(h Handler)     { h.OnGameEnded(e) }
func (e PlayerLeft) Accept(h Handler)    { h.OnPlayerLeft(e) }
func (e PlayCardError) Accept(h Handler) { h.OnPlayCardError(e) }
func (e LobbyState) Accept(h Handler)    { h.OnLobbyState(e) }
func (e Unknown) Accept(h Handler)       { h.OnUnknown(e) }

func (PlayerHand) isEvent()    {}
func (GameState) isEvent()     {}
func (GameStarted) isEvent()   {}
func (PlayerJoined) isEvent()  {}
func (GameOver) isEvent()      {}
func (CardPlayed) isEvent()    {}
func (CardDrawn) isEvent()     {}
func (TimerUpdate) isEvent()   {}
func (AutoPlay) isEvent()      {}
func (AutoDraw) isEvent()      {}
func (GameEnded) isEvent()     {}
func (PlayerLeft) isEvent()    {}
func (PlayCardError) isEvent() {}
func (LobbyState) isEvent()    {}
func (Unknown) isEvent()       {}

// ErrMissingType is wrapped by ParseError when a message has no string "type".
var ErrMissingType = errors.New("message has no type")

// ParseError reports text that is not a well-formed match message.
type ParseError struct {
	Type string // empty when the type itself could not be read
	Err  error
}

func (e *ParseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("parse match data: %v", e.Err)
	}
	return fmt.Sprintf("parse match data %q: %v", e.Type, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse turns decoded text into an Event. Unknown types are returned as
// Unknown, not as an error.
func Parse(text string) (Event, error) {
	raw := []byte(text)

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &ParseError{Err: err}
	}
	typeRaw, ok := envelope["type"]
	if !ok {
		return nil, &ParseError{Err: ErrMissingType}
	}
	var kind string
	if err := json.Unmarshal(typeRaw, &kind); err != nil || kind == "" {
		return nil, &ParseError{Err: ErrMissingType}
	}

	var (
		ev  Event
		err error
	)
	switch EventKind(kind) {
	case EventPlayerHand:
		ev, err = decodeAs[PlayerHand](raw)
	case EventGameState:
		var gs GameState
		if gs, err = decodeAs[GameState](raw); err == nil && gs.State == nil {
			err = errors.New("missing state")
		}
		ev = gs
	case EventGameStarted:
		ev, err = decodeAs[GameStarted](raw)
	case EventPlayerJoined:
		ev, err = decodeAs[PlayerJoined](raw)
	case EventGameOver:
		ev, err = decodeAs[GameOver](raw)
	case EventCardPlayed:
		ev, err = decodeAs[CardPlayed](raw)
	case EventCardDrawn:
		ev, err = decodeAs[CardDrawn](raw)
	case EventTimerUpdate:
		ev, err = decodeAs[TimerUpdate](raw)
	case EventAutoPlay:
		ev, err = decodeAs[AutoPlay](raw)
	case EventAutoDraw:
		ev, err = decodeAs[AutoDraw](raw)
	case EventGameEnded:
		ev, err = decodeAs[GameEnded](raw)
	case EventPlayerLeft:
		ev, err = decodeAs[PlayerLeft](raw)
	case EventPlayCardError:
		ev, err = decodeAs[PlayCardError](raw)
	case EventLobbyState:
		ev, err = decodeAs[LobbyState](raw)
	default:
		ev = Unknown{Type: kind, Raw: append(json.RawMessage(nil), raw...)}
	}
	if err != nil {
		return nil, &ParseError{Type: kind, Err: err}
	}
	return ev, nil
}

func decodeAs[T any](raw []byte) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
