package nakama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/rtapi"

	"unosync/internal/logring"
	"unosync/internal/ports"
	"unosync/internal/wire"
)

type recordingHandler struct {
	frames      chan wire.Frame
	matched     chan string
	disconnects chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		frames:      make(chan wire.Frame, 8),
		matched:     make(chan string, 8),
		disconnects: make(chan error, 1),
	}
}

func (h *recordingHandler) OnMatchData(frame wire.Frame)              { h.frames <- frame }
func (h *recordingHandler) OnMatchmakerMatched(matchID, token string) { h.matched <- matchID + "|" + token }
func (h *recordingHandler) OnDisconnect(err error)                    { h.disconnects <- err }

// fakeServer answers a handful of realtime requests the way Nakama does.
type fakeServer struct {
	t        *testing.T
	sent     chan *rtapi.MatchDataSend
	tokens   chan string
	closeNow chan struct{}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.tokens <- r.URL.Query().Get("token")
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-f.closeNow:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
			conn.Close()
		case <-done:
		}
	}()

	write := func(env *rtapi.Envelope) {
		data, err := marshalOpts.Marshal(env)
		if err != nil {
			f.t.Errorf("marshal: %v", err)
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env rtapi.Envelope
		if err := unmarshalOpts.Unmarshal(message, &env); err != nil {
			f.t.Errorf("unmarshal: %v", err)
			return
		}
		switch msg := env.GetMessage().(type) {
		case *rtapi.Envelope_MatchJoin:
			if msg.MatchJoin.GetMatchId() == "drop" {
				return
			}
			if msg.MatchJoin.GetMatchId() == "missing" {
				write(&rtapi.Envelope{Cid: env.GetCid(), Message: &rtapi.Envelope_Error{
					Error: &rtapi.Error{Code: 4, Message: "Match not found"},
				}})
				continue
			}
			matchID := msg.MatchJoin.GetMatchId()
			if matchID == "" {
				matchID = "from-token"
			}
			write(&rtapi.Envelope{Cid: env.GetCid(), Message: &rtapi.Envelope_Match{
				Match: &rtapi.Match{MatchId: matchID, Authoritative: true},
			}})
			write(&rtapi.Envelope{Message: &rtapi.Envelope_MatchPresenceEvent{
				MatchPresenceEvent: &rtapi.MatchPresenceEvent{MatchId: matchID},
			}})
			write(&rtapi.Envelope{Message: &rtapi.Envelope_MatchData{
				MatchData: &rtapi.MatchData{
					MatchId:  matchID,
					OpCode:   1,
					Data:     []byte(`{"type":"timer_update","timeRemaining":9}`),
					Presence: &rtapi.UserPresence{UserId: "host"},
				},
			}})
		case *rtapi.Envelope_MatchmakerAdd:
			write(&rtapi.Envelope{Cid: env.GetCid(), Message: &rtapi.Envelope_MatchmakerTicket{
				MatchmakerTicket: &rtapi.MatchmakerTicket{Ticket: "ticket-1"},
			}})
			write(&rtapi.Envelope{Message: &rtapi.Envelope_MatchmakerMatched{
				MatchmakerMatched: &rtapi.MatchmakerMatched{
					Ticket: "ticket-1",
					Id:     &rtapi.MatchmakerMatched_Token{Token: "mm-token"},
				},
			}})
		case *rtapi.Envelope_MatchDataSend:
			f.sent <- msg.MatchDataSend
		}
	}
}

func connectFake(t *testing.T) (*fakeServer, *recordingHandler, ports.RealtimePort) {
	t.Helper()
	fake := &fakeServer{
		t:        t,
		sent:     make(chan *rtapi.MatchDataSend, 8),
		tokens:   make(chan string, 1),
		closeNow: make(chan struct{}),
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	handler := newRecordingHandler()
	dialer := NewDialer("ws"+strings.TrimPrefix(srv.URL, "http")+SocketPath, logring.NewLogger(logring.NewBuffer(nil)))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rt, err := dialer.Connect(ctx, &ports.Session{Token: "session-token"}, handler)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return fake, handler, rt
}

func TestSocketJoinMatchDeliversFrames(t *testing.T) {
	fake, handler, rt := connectFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	joined, err := rt.JoinMatch(ctx, "m1", "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined != "m1" {
		t.Fatalf("expected m1, got %q", joined)
	}
	if token := <-fake.tokens; token != "session-token" {
		t.Fatalf("expected session token on the socket url, got %q", token)
	}

	select {
	case frame := <-handler.frames:
		if frame.MatchID != "m1" || frame.OpCode != 1 || frame.Sender != "host" {
			t.Fatalf("unexpected frame: %+v", frame)
		}
		text, err := wire.Decode(frame.Data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if text != `{"type":"timer_update","timeRemaining":9}` {
			t.Fatalf("unexpected payload %q", text)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for match data")
	}
}

func TestSocketJoinMatchError(t *testing.T) {
	_, _, rt := connectFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := rt.JoinMatch(ctx, "missing", "")
	var sockErr *SocketError
	if !errors.As(err, &sockErr) {
		t.Fatalf("expected SocketError, got %v", err)
	}
	if sockErr.Message != "Match not found" {
		t.Fatalf("unexpected message %q", sockErr.Message)
	}
}

func TestSocketMatchmaker(t *testing.T) {
	_, handler, rt := connectFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ticket, err := rt.AddMatchmaker(ctx, "*", 2, 2)
	if err != nil {
		t.Fatalf("matchmaker: %v", err)
	}
	if ticket != "ticket-1" {
		t.Fatalf("expected ticket-1, got %q", ticket)
	}

	select {
	case got := <-handler.matched:
		if got != "|mm-token" {
			t.Fatalf("unexpected matched push %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for matchmaker matched")
	}
}

func TestSocketSendMatchState(t *testing.T) {
	fake, _, rt := connectFake(t)

	if err := rt.SendMatchState("m1", 1, []byte(`{"type":"draw_card"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case sent := <-fake.sent:
		if sent.GetMatchId() != "m1" || sent.GetOpCode() != 1 || string(sent.GetData()) != `{"type":"draw_card"}` {
			t.Fatalf("unexpected send: %+v", sent)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for match data send")
	}
}

func TestSocketServerCloseReportsDisconnect(t *testing.T) {
	fake, handler, rt := connectFake(t)
	close(fake.closeNow)

	select {
	case err := <-handler.disconnects:
		if err == nil {
			t.Fatalf("expected a disconnect error")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for disconnect")
	}

	if err := rt.SendMatchState("m1", 1, nil); !errors.Is(err, ErrSocketClosed) {
		t.Fatalf("expected ErrSocketClosed after disconnect, got %v", err)
	}
}

func TestSocketInFlightRequestFailsOnDrop(t *testing.T) {
	_, handler, rt := connectFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rt.JoinMatch(ctx, "drop", ""); !errors.Is(err, ErrSocketClosed) {
		t.Fatalf("expected ErrSocketClosed for the dropped request, got %v", err)
	}
	select {
	case <-handler.disconnects:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for disconnect")
	}

	if _, err := rt.AddMatchmaker(ctx, "*", 2, 2); !errors.Is(err, ErrSocketClosed) {
		t.Fatalf("expected ErrSocketClosed after disconnect, got %v", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("request waited for its context instead of failing")
	}
}
