package nakama

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/sync/errgroup"

	"unosync/internal/ports"
	"unosync/internal/wire"
)

// Dialer opens realtime sockets against a Nakama server.
type Dialer struct {
	socketURL string
	logger    runtime.Logger
	ws        *websocket.Dialer
}

var _ ports.Connector = (*Dialer)(nil)

// NewDialer creates a dialer for socketURL, e.g. ws://localhost:7350/ws.
func NewDialer(socketURL string, logger runtime.Logger) *Dialer {
	return &Dialer{
		socketURL: socketURL,
		logger:    logger,
		ws: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

// Connect dials the socket for session and starts its pumps. handler
// receives pushed traffic until the socket closes.
func (d *Dialer) Connect(ctx context.Context, session *ports.Session, handler ports.RealtimeHandler) (ports.RealtimePort, error) {
	if session == nil || session.Token == "" {
		return nil, errors.New("nakama.Connect: session token required")
	}
	params := url.Values{}
	params.Set("lang", "en")
	params.Set("status", "true")
	params.Set("format", "json")
	params.Set("token", session.Token)

	conn, _, err := d.ws.DialContext(ctx, d.socketURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("nakama.Connect: %w", err)
	}
	s := newSocket(conn, handler, d.logger)
	s.start()
	return s, nil
}

// Socket is a connected realtime socket. Requests are correlated with their
// responses by cid; pushes go to the handler.
type Socket struct {
	conn    *websocket.Conn
	handler ports.RealtimeHandler
	logger  runtime.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	cid       atomic.Uint64

	mu      sync.Mutex
	pending map[string]chan *rtapi.Envelope
}

var _ ports.RealtimePort = (*Socket)(nil)

func newSocket(conn *websocket.Conn, handler ports.RealtimeHandler, logger runtime.Logger) *Socket {
	return &Socket{
		conn:    conn,
		handler: handler,
		logger:  logger,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		pending: make(map[string]chan *rtapi.Envelope),
	}
}

func (s *Socket) start() {
	g, gctx := errgroup.WithContext(context.Background())
	g.Go(s.readPump)
	g.Go(func() error { return s.writePump(gctx) })

	go func() {
		err := g.Wait()
		requested := !s.closed.CompareAndSwap(false, true)
		s.failPending()
		if requested || s.handler == nil {
			return
		}
		s.handler.OnDisconnect(err)
	}()
}

// Close disconnects the socket. The handler is not told about a close the
// caller asked for.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
	return nil
}

func (s *Socket) readPump() error {
	defer s.conn.Close() //nolint:errcheck

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return ErrSocketClosed
			}
			return err
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var env rtapi.Envelope
		if err := unmarshalOpts.Unmarshal(message, &env); err != nil {
			s.logger.Warn("Socket: undecodable envelope: %v", err)
			continue
		}
		s.dispatch(&env)
	}
}

func (s *Socket) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close() //nolint:errcheck
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case <-ctx.Done():
			return nil
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return err
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func (s *Socket) dispatch(env *rtapi.Envelope) {
	if env.GetCid() != "" {
		s.mu.Lock()
		ch, ok := s.pending[env.GetCid()]
		delete(s.pending, env.GetCid())
		s.mu.Unlock()
		if ok {
			ch <- env
			return
		}
	}

	switch msg := env.GetMessage().(type) {
	case *rtapi.Envelope_MatchData:
		data := msg.MatchData
		var sender string
		if p := data.GetPresence(); p != nil {
			sender = p.GetUserId()
		}
		if s.handler != nil {
			s.handler.OnMatchData(wire.Frame{
				MatchID: data.GetMatchId(),
				OpCode:  data.GetOpCode(),
				Sender:  sender,
				Data:    data.GetData(),
			})
		}
	case *rtapi.Envelope_MatchPresenceEvent:
		ev := msg.MatchPresenceEvent
		s.logger.Info("Players in match: %d joined, %d left", len(ev.GetJoins()), len(ev.GetLeaves()))
	case *rtapi.Envelope_MatchmakerMatched:
		m := msg.MatchmakerMatched
		if s.handler != nil {
			s.handler.OnMatchmakerMatched(m.GetMatchId(), m.GetToken())
		}
	case *rtapi.Envelope_Error:
		s.logger.Error("Socket error %d: %s", msg.Error.GetCode(), msg.Error.GetMessage())
	default:
		s.logger.Debug("Socket: ignoring %T", msg)
	}
}

func (s *Socket) failPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cid, ch := range s.pending {
		close(ch)
		delete(s.pending, cid)
	}
}

func (s *Socket) enqueue(env *rtapi.Envelope) error {
	if s.closed.Load() {
		return ErrSocketClosed
	}
	data, err := marshalOpts.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// request sends env with a fresh cid and waits for the matching response.
func (s *Socket) request(ctx context.Context, env *rtapi.Envelope) (*rtapi.Envelope, error) {
	cid := strconv.FormatUint(s.cid.Add(1), 10)
	env.Cid = cid
	ch := make(chan *rtapi.Envelope, 1)

	s.mu.Lock()
	s.pending[cid] = ch
	s.mu.Unlock()

	if err := s.enqueue(env); err != nil {
		s.mu.Lock()
		delete(s.pending, cid)
		s.mu.Unlock()
		return nil, err
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return nil, ErrSocketClosed
		}
		if e := res.GetError(); e != nil {
			return nil, &SocketError{Code: e.GetCode(), Message: e.GetMessage()}
		}
		return res, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, cid)
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

// SendMatchState queues match data for the write pump.
func (s *Socket) SendMatchState(matchID string, opCode int64, data []byte) error {
	return s.enqueue(&rtapi.Envelope{Message: &rtapi.Envelope_MatchDataSend{
		MatchDataSend: &rtapi.MatchDataSend{
			MatchId:  matchID,
			OpCode:   opCode,
			Data:     data,
			Reliable: true,
		},
	}})
}

// JoinMatch joins by match id, or by matchmaker token when token is set.
func (s *Socket) JoinMatch(ctx context.Context, matchID, token string) (string, error) {
	join := &rtapi.MatchJoin{}
	if token != "" {
		join.Id = &rtapi.MatchJoin_Token{Token: token}
	} else {
		join.Id = &rtapi.MatchJoin_MatchId{MatchId: matchID}
	}

	res, err := s.request(ctx, &rtapi.Envelope{Message: &rtapi.Envelope_MatchJoin{MatchJoin: join}})
	if err != nil {
		return "", fmt.Errorf("nakama.JoinMatch: %w", err)
	}
	match := res.GetMatch()
	if match == nil {
		return "", fmt.Errorf("nakama.JoinMatch: unexpected response %T", res.GetMessage())
	}
	return match.GetMatchId(), nil
}

// LeaveMatch leaves matchID. The server does not acknowledge leaves.
func (s *Socket) LeaveMatch(ctx context.Context, matchID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.enqueue(&rtapi.Envelope{Message: &rtapi.Envelope_MatchLeave{
		MatchLeave: &rtapi.MatchLeave{MatchId: matchID},
	}})
}

// AddMatchmaker enters the matchmaker and returns the ticket.
func (s *Socket) AddMatchmaker(ctx context.Context, query string, minCount, maxCount int) (string, error) {
	res, err := s.request(ctx, &rtapi.Envelope{Message: &rtapi.Envelope_MatchmakerAdd{
		MatchmakerAdd: &rtapi.MatchmakerAdd{
			Query:    query,
			MinCount: int32(minCount),
			MaxCount: int32(maxCount),
		},
	}})
	if err != nil {
		return "", fmt.Errorf("nakama.AddMatchmaker: %w", err)
	}
	ticket := res.GetMatchmakerTicket()
	if ticket == nil {
		return "", fmt.Errorf("nakama.AddMatchmaker: unexpected response %T", res.GetMessage())
	}
	return ticket.GetTicket(), nil
}
