package app

import (
	"errors"
	"testing"

	"unosync/internal/domain"
)

// recorder counts handler calls by method.
type recorder struct {
	calls []string
	last  Event
}

func (r *recorder) hit(name string, ev Event) {
	r.calls = append(r.calls, name)
	r.last = ev
}

func (r *recorder) OnPlayerHand(e PlayerHand)       { r.hit("player_hand", e) }
func (r *recorder) OnGameState(e GameState)         { r.hit("game_state", e) }
func (r *recorder) OnGameStarted(e GameStarted)     { r.hit("game_started", e) }
func (r *recorder) OnPlayerJoined(e PlayerJoined)   { r.hit("player_joined", e) }
func (r *recorder) OnGameOver(e GameOver)           { r.hit("game_over", e) }
func (r *recorder) OnCardPlayed(e CardPlayed)       { r.hit("card_played", e) }
func (r *recorder) OnCardDrawn(e CardDrawn)         { r.hit("card_drawn", e) }
func (r *recorder) OnTimerUpdate(e TimerUpdate)     { r.hit("timer_update", e) }
func (r *recorder) OnAutoPlay(e AutoPlay)           { r.hit("auto_play", e) }
func (r *recorder) OnAutoDraw(e AutoDraw)           { r.hit("auto_draw", e) }
func (r *recorder) OnGameEnded(e GameEnded)         { r.hit("game_ended", e) }
func (r *recorder) OnPlayerLeft(e PlayerLeft)       { r.hit("player_left", e) }
func (r *recorder) OnPlayCardError(e PlayCardError) { r.hit("play_card_error", e) }
func (r *recorder) OnLobbyState(e LobbyState)       { r.hit("lobby_state", e) }
func (r *recorder) OnUnknown(e Unknown)             { r.hit("unknown", e) }

func TestParseDispatchesExactlyOneHandler(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: `{"type":"player_hand","player_id":"u1","hand":[{"type":"number","color":"red","value":3}],"playable_cards":[0]}`, want: "player_hand"},
		{text: `{"type":"game_state","state":{"current_turn":"u1","game_phase":"playing","direction":1}}`, want: "game_state"},
		{text: `{"type":"game_started","message":"Game started!"}`, want: "game_started"},
		{text: `{"type":"player_joined","player_name":"Bob","player_count":2}`, want: "player_joined"},
		{text: `{"type":"game_over","winner_id":"u1"}`, want: "game_over"},
		{text: `{"type":"card_played","player_id":"u1"}`, want: "card_played"},
		{text: `{"type":"card_drawn","player_id":"u1"}`, want: "card_drawn"},
		{text: `{"type":"timer_update","time_remaining":12,"current_player":"u1"}`, want: "timer_update"},
		{text: `{"type":"auto_play","player_id":"u1"}`, want: "auto_play"},
		{text: `{"type":"auto_draw","player_id":"u1"}`, want: "auto_draw"},
		{text: `{"type":"game_ended","reason":"player_won","winner":"u1","final_scores":{"u1":{"username":"A","score":10,"result":"winner"}}}`, want: "game_ended"},
		{text: `{"type":"player_left","player_id":"u2"}`, want: "player_left"},
		{text: `{"type":"play_card_error","message":"nope","error":"invalid_play","top_card":{"type":"skip","color":"red"}}`, want: "play_card_error"},
		{text: `{"type":"lobby_state","hostId":"u1","gameMode":"4p","maxPlayers":4,"seats":[{"index":0,"type":"player","userId":"u1"}],"canStart":true}`, want: "lobby_state"},
		{text: `{"type":"emote","emoji":"wave"}`, want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			ev, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			r := &recorder{}
			ev.Accept(r)
			if len(r.calls) != 1 || r.calls[0] != tt.want {
				t.Fatalf("calls = %v, want [%s]", r.calls, tt.want)
			}
		})
	}
}

func TestParsePayloads(t *testing.T) {
	ev, err := Parse(`{"type":"player_hand","player_id":"u1","hand":[{"type":"wild","color":"wild"},{"type":"number","color":"blue","value":0}],"playable_cards":[1]}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ph, ok := ev.(PlayerHand)
	if !ok {
		t.Fatalf("event = %T, want PlayerHand", ev)
	}
	if len(ph.Hand) != 2 || !ph.Hand[0].IsWild() || *ph.Hand[1].Value != 0 || !ph.PlayableCards.Contains(1) {
		t.Fatalf("payload = %+v", ph)
	}

	ev, err = Parse(`{"type":"lobby_state","hostId":"h","isTeamMode":true,"pending":{"u2":{"username":"two"}},"seats":[{"index":1,"type":"bot","userId":"b1","team":"B"}]}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ls := ev.(LobbyState)
	if ls.HostID != "h" || !ls.IsTeamMode || ls.Pending["u2"].Username != "two" || ls.Seats[0].Team != domain.TeamB {
		t.Fatalf("lobby payload = %+v", ls)
	}

	ev, err = Parse(`{"type":"emote","emoji":"wave"}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev.Kind() != "emote" {
		t.Fatalf("unknown kind = %q", ev.Kind())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType string
	}{
		{name: "not json", text: `{"type":`},
		{name: "array", text: `[1,2,3]`},
		{name: "null", text: `null`},
		{name: "no type", text: `{"player_id":"u1"}`},
		{name: "numeric type", text: `{"type":7}`},
		{name: "empty type", text: `{"type":""}`},
		{name: "malformed hand", text: `{"type":"player_hand","hand":"lots"}`, wantType: "player_hand"},
		{name: "state missing", text: `{"type":"game_state","player_hands":{}}`, wantType: "game_state"},
		{name: "timer not number", text: `{"type":"timer_update","time_remaining":"soon"}`, wantType: "timer_update"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse(tt.text)
			if err == nil {
				t.Fatalf("Parse() = %T, want error", ev)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error = %T, want *ParseError", err)
			}
			if perr.Type != tt.wantType {
				t.Fatalf("ParseError.Type = %q, want %q", perr.Type, tt.wantType)
			}
		})
	}
}
