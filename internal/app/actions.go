package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"unosync/internal/domain"
)

// ActionType is the "type" of an outbound match message.
type ActionType string

const (
	ActionPlayCard    ActionType = "play_card"
	ActionDrawCard    ActionType = "draw_card"
	ActionPassTurn    ActionType = "pass_turn"
	ActionCallUno     ActionType = "call_uno"
	ActionAddBot      ActionType = "add_bot"
	ActionRemoveBot   ActionType = "remove_bot"
	ActionStartGame   ActionType = "start_game"
	ActionApproveSeat ActionType = "approve_seat"
	ActionDenyJoin    ActionType = "deny_join"
	ActionAssignBot   ActionType = "assign_bot"
	ActionRemoveSeat  ActionType = "remove_seat"
	ActionSetSeatTeam ActionType = "set_seat_team"
	ActionRequestSeat ActionType = "request_seat"
)

var (
	ErrChosenColorRequired = errors.New("wild card needs a chosen color")
	ErrInvalidChosenColor  = errors.New("chosen color must be red, yellow, green or blue")
	ErrInvalidTeam         = errors.New("team must be A or B")
	ErrInvalidSeat         = errors.New("seat index must not be negative")
)

// Action is the JSON envelope sent to the server on op code 1.
type Action struct {
	Type      ActionType   `json:"type"`
	Card      *domain.Card `json:"card,omitempty"`
	BotID     string       `json:"bot_id,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
	SeatIndex *int         `json:"seat_index,omitempty"`
	Team      string       `json:"team,omitempty"`
}

// Encode returns the wire form of the action.
func (a Action) Encode() ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", a.Type, err)
	}
	return b, nil
}

// PlayCardAction plays card. Wild cards must carry a chosen color; it is
// ignored for colored cards.
func PlayCardAction(card domain.Card, chosen domain.Color) (Action, error) {
	c := card.Clone()
	if c.IsWild() {
		if chosen == "" {
			return Action{}, ErrChosenColorRequired
		}
		if !validChosenColor(chosen) {
			return Action{}, ErrInvalidChosenColor
		}
		c = c.WithChosenColor(chosen)
	} else {
		c.ChosenColor = ""
	}
	return Action{Type: ActionPlayCard, Card: &c}, nil
}

func validChosenColor(c domain.Color) bool {
	for _, pc := range domain.PlayableColors {
		if pc == c {
			return true
		}
	}
	return false
}

func DrawCardAction() Action  { return Action{Type: ActionDrawCard} }
func PassTurnAction() Action  { return Action{Type: ActionPassTurn} }
func CallUnoAction() Action   { return Action{Type: ActionCallUno} }
func AddBotAction() Action    { return Action{Type: ActionAddBot} }
func StartGameAction() Action { return Action{Type: ActionStartGame} }

func RemoveBotAction(botID string) Action {
	return Action{Type: ActionRemoveBot, BotID: botID}
}

func DenyJoinAction(userID string) Action {
	return Action{Type: ActionDenyJoin, UserID: userID}
}

func ApproveSeatAction(userID string, seat int) (Action, error) {
	if seat < 0 {
		return Action{}, ErrInvalidSeat
	}
	return Action{Type: ActionApproveSeat, UserID: userID, SeatIndex: &seat}, nil
}

func AssignBotAction(seat int) (Action, error) {
	return seatAction(ActionAssignBot, seat)
}

func RemoveSeatAction(seat int) (Action, error) {
	return seatAction(ActionRemoveSeat, seat)
}

func RequestSeatAction(seat int) (Action, error) {
	return seatAction(ActionRequestSeat, seat)
}

func SetSeatTeamAction(seat int, team string) (Action, error) {
	if team != domain.TeamA && team != domain.TeamB {
		return Action{}, ErrInvalidTeam
	}
	a, err := seatAction(ActionSetSeatTeam, seat)
	if err != nil {
		return Action{}, err
	}
	a.Team = team
	return a, nil
}

func seatAction(t ActionType, seat int) (Action, error) {
	if seat < 0 {
		return Action{}, ErrInvalidSeat
	}
	return Action{Type: t, SeatIndex: &seat}, nil
}
