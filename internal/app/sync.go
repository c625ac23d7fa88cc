package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"unosync/internal/domain"
	"unosync/internal/identity"
	"unosync/internal/lobby"
	"unosync/internal/logring"
	"unosync/internal/ports"
	"unosync/internal/wire"
)

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrNotConnected = errors.New("socket not connected")
	ErrNotInMatch   = errors.New("not in a match")
	ErrStopped      = errors.New("syncer stopped")
)

// Options tune a Syncer. Zero values use defaults.
type Options struct {
	TurnLimitSeconds int
	DefaultMode      domain.GameMode
	RequestTimeout   time.Duration
	InboxSize        int
}

func (o Options) withDefaults() Options {
	if o.TurnLimitSeconds <= 0 {
		o.TurnLimitSeconds = domain.DefaultTurnLimitSeconds
	}
	if _, ok := domain.LookupMode(o.DefaultMode); !ok {
		o.DefaultMode = domain.GameModeTwoPlayer
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.InboxSize <= 0 {
		o.InboxSize = 64
	}
	return o
}

// inboxMsg is anything processed by the consumer loop.
type inboxMsg interface{ isInboxMsg() }

type frameMsg struct{ frame wire.Frame }

type joinedMsg struct {
	matchID string
	mode    domain.GameMode
}

type leftMsg struct{ matchID string }

func (frameMsg) isInboxMsg()  {}
func (joinedMsg) isInboxMsg() {}
func (leftMsg) isInboxMsg()   {}

// Syncer turns the realtime match stream into render-ready state. Inbound
// frames and match membership changes are processed one at a time by Run;
// everything else may be called from any goroutine.
type Syncer struct {
	logger    runtime.Logger
	registry  *identity.Registry
	auth      ports.AuthPort
	connector ports.Connector
	opts      Options

	// Owned by the consumer goroutine.
	store       *Store
	lobby       *lobby.Reconciler
	activeMatch string
	leftMatch   string
	version     int

	inbox   chan inboxMsg
	stopped chan struct{}
	stop    sync.Once
	view    atomic.Pointer[View]

	mu      sync.RWMutex
	session *ports.Session
	rt      ports.RealtimePort
	match   domain.MatchHandle

	obsMu     sync.Mutex
	observers map[int]func(View)
	nextObs   int
}

var _ ports.RealtimeHandler = (*Syncer)(nil)

// NewSyncer wires a Syncer. connector may be nil when the caller attaches a
// realtime port itself with Attach.
func NewSyncer(logger runtime.Logger, registry *identity.Registry, auth ports.AuthPort, connector ports.Connector, opts Options) *Syncer {
	opts = opts.withDefaults()
	s := &Syncer{
		logger:    logger,
		registry:  registry,
		auth:      auth,
		connector: connector,
		opts:      opts,
		store:     NewStore(logger, opts.TurnLimitSeconds),
		lobby:     lobby.NewReconciler(),
		inbox:     make(chan inboxMsg, opts.InboxSize),
		stopped:   make(chan struct{}),
		observers: make(map[int]func(View)),
	}
	s.view.Store(&View{})
	return s
}

// Run consumes the inbox until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	defer s.stop.Do(func() { close(s.stopped) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-s.inbox:
			s.process(ctx, m)
		}
	}
}

func (s *Syncer) process(ctx context.Context, m inboxMsg) {
	switch msg := m.(type) {
	case frameMsg:
		s.HandleFrame(ctx, msg.frame)
		return
	case joinedMsg:
		if s.activeMatch != msg.matchID {
			s.store.Reset()
			s.lobby.Reset()
			s.activeMatch = msg.matchID
		}
		if s.leftMatch == msg.matchID {
			s.leftMatch = ""
		}
		if s.lobby.Status() == lobby.Unsynced {
			self, err := s.registry.Load(ctx)
			if err != nil {
				s.logger.Warn("Join: identity read failed: %v", err)
			}
			s.lobby.Fallback(self, msg.mode)
		}
	case leftMsg:
		s.store.Reset()
		s.lobby.Reset()
		s.activeMatch = ""
		s.leftMatch = msg.matchID
	}
	s.publish(ctx)
}

// HandleFrame decodes, parses and dispatches one inbound frame. It must only
// be called from the consumer goroutine, or before Run starts.
func (s *Syncer) HandleFrame(ctx context.Context, frame wire.Frame) {
	if frame.MatchID != "" {
		if frame.MatchID == s.leftMatch {
			s.logger.Debug("HandleFrame: dropping frame for left match %s", frame.MatchID)
			return
		}
		if s.activeMatch == "" {
			s.activeMatch = frame.MatchID
		} else if frame.MatchID != s.activeMatch {
			s.logger.Debug("HandleFrame: dropping frame for match %s, active is %s", frame.MatchID, s.activeMatch)
			return
		}
	}

	text, err := wire.Decode(frame.Data)
	if err != nil {
		s.logger.Error("HandleFrame: %v", err)
		return
	}
	ev, err := Parse(text)
	if err != nil {
		s.logger.Error("HandleFrame: %v", err)
		return
	}

	self, err := s.registry.UserID(ctx)
	if err != nil {
		s.logger.Warn("HandleFrame: user id read failed: %v", err)
	}

	if ev.Kind() == EventTimerUpdate {
		s.logger.Debug("Received match data: %s", ev.Kind())
	} else {
		s.logger.Info("Received match data: %s", ev.Kind())
	}

	ev.Accept(dispatcher{s: s, self: self})
	s.publish(ctx)
}

// dispatcher routes one event with the user id resolved for that frame.
type dispatcher struct {
	s    *Syncer
	self string
}

func (d dispatcher) OnPlayerHand(ev PlayerHand) { d.s.store.OnHandUpdate(d.self, ev) }

func (d dispatcher) OnGameState(ev GameState) {
	// MissingHandData is logged by the store; the snapshot is still applied.
	_ = d.s.store.OnStateUpdate(d.self, ev)
}

func (d dispatcher) OnGameStarted(ev GameStarted) { d.s.logger.Info("%s", ev.Message) }

func (d dispatcher) OnPlayerJoined(ev PlayerJoined) {
	capacity := d.s.lobby.State().MaxPlayers
	if capacity <= 0 {
		capacity = 2
	}
	d.s.logger.Info("%s joined (%d/%d players)", ev.PlayerName, ev.PlayerCount, capacity)
}

func (d dispatcher) OnGameOver(ev GameOver)     { d.s.logger.Info("Game Over! Winner: %s", ev.WinnerID) }
func (d dispatcher) OnCardPlayed(ev CardPlayed) { d.s.logger.Info("%s played a card", ev.PlayerID) }
func (d dispatcher) OnCardDrawn(ev CardDrawn)   { d.s.logger.Info("%s drew a card", ev.PlayerID) }
func (d dispatcher) OnTimerUpdate(ev TimerUpdate) {
	d.s.store.OnTimerTick(ev)
}

func (d dispatcher) OnAutoPlay(ev AutoPlay) {
	d.s.logger.Info("%s auto-played a card (timer expired)", ev.PlayerID)
}

func (d dispatcher) OnAutoDraw(ev AutoDraw) {
	d.s.logger.Info("%s auto-drew a card (timer expired)", ev.PlayerID)
}

func (d dispatcher) OnGameEnded(ev GameEnded)         { d.s.store.OnGameEnded(ev) }
func (d dispatcher) OnPlayerLeft(ev PlayerLeft)       { d.s.logger.Info("Player %s left the game", ev.PlayerID) }
func (d dispatcher) OnPlayCardError(ev PlayCardError) { d.s.store.OnPlayError(ev) }
func (d dispatcher) OnLobbyState(ev LobbyState)       { d.s.lobby.Apply(ev.LobbySeatState) }
func (d dispatcher) OnUnknown(ev Unknown)             { d.s.logger.Info("Unknown match data: %s", ev.Type) }

func (s *Syncer) publish(ctx context.Context) {
	self, err := s.registry.UserID(ctx)
	if err != nil {
		self = ""
	}
	s.version++
	v := View{
		Version:     s.version,
		SelfID:      self,
		LoggedIn:    s.Session() != nil,
		Match:       s.Match(),
		Snapshot:    s.store.Snapshot(),
		Hand:        s.store.Hand(),
		Playable:    s.store.Playable(),
		Timer:       s.store.Timer(),
		Lobby:       s.lobby.State(),
		LobbyStatus: s.lobby.Status(),
		Playing:     s.store.Playing(),
	}
	s.view.Store(&v)

	s.obsMu.Lock()
	observers := make([]func(View), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.obsMu.Unlock()
	for _, fn := range observers {
		fn(v)
	}
}

// View returns the most recently published state.
func (s *Syncer) View() View {
	return *s.view.Load()
}

// Subscribe registers fn for every published View. fn runs on the consumer
// goroutine and must not block.
func (s *Syncer) Subscribe(fn func(View)) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Syncer) enqueue(ctx context.Context, m inboxMsg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnMatchData queues a frame for the consumer. Called by the socket read loop.
func (s *Syncer) OnMatchData(frame wire.Frame) {
	if err := s.enqueue(context.Background(), frameMsg{frame: frame}); err != nil {
		s.logger.Warn("OnMatchData: %v", err)
	}
}

// OnMatchmakerMatched joins the match the matchmaker formed. The join runs on
// its own goroutine so the socket read loop can deliver the response.
func (s *Syncer) OnMatchmakerMatched(matchID, token string) {
	s.logger.Info("Match found! Joining...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.RequestTimeout)
		defer cancel()
		_ = s.joinMatch(ctx, matchID, token, s.opts.DefaultMode)
	}()
}

// OnDisconnect drops the realtime port.
func (s *Syncer) OnDisconnect(err error) {
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Disconnected from server")
	} else {
		s.logger.Error("Disconnected from server")
	}
	s.mu.Lock()
	s.rt = nil
	s.mu.Unlock()
}

// Attach installs a realtime port opened outside Login.
func (s *Syncer) Attach(rt ports.RealtimePort) {
	s.mu.Lock()
	s.rt = rt
	s.mu.Unlock()
}

// Match returns the current match handle.
func (s *Syncer) Match() domain.MatchHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.match
}

// Session returns the current session, or nil before login.
func (s *Syncer) Session() *ports.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Syncer) realtime() ports.RealtimePort {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rt
}

// Login authenticates this device as a guest, persists the resolved user id
// and opens the realtime socket. A failed authentication clears the stored
// device id so the next attempt starts with a fresh one.
func (s *Syncer) Login(ctx context.Context) (domain.Identity, error) {
	s.logger.Info("Logging in as guest...")

	deviceID, generated, err := s.registry.DeviceID(ctx)
	if err != nil {
		s.logger.Error("Login failed: %v", err)
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	if generated {
		s.logger.Info("Generated new Device ID: %s", deviceID)
	} else {
		s.logger.Info("Using stored Device ID: %s", deviceID)
	}

	username := s.registry.GenerateUsername()
	session, err := s.auth.AuthenticateDevice(ctx, deviceID, username, true)
	if err != nil {
		s.logger.Error("Login failed: %v", err)
		s.logger.Info("Clearing stored device ID. Please try logging in again.")
		if ferr := s.registry.ForgetDevice(ctx); ferr != nil {
			s.logger.Warn("Login: clearing device id failed: %v", ferr)
		}
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	if session.Username == "" {
		session.Username = username
	}
	s.logger.Info("Username: %s", session.Username)

	if err := s.registry.SetUserID(ctx, session.UserID); err != nil {
		s.logger.Error("Login failed: %v", err)
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	if err := s.registry.SetUsername(ctx, session.Username); err != nil {
		s.logger.Warn("Login: storing username failed: %v", err)
	}
	logring.Succeed(s.logger, "Logged in! User ID: %s", session.UserID)

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	if s.connector != nil {
		s.logger.Info("Creating socket connection...")
		rt, err := s.connector.Connect(ctx, session, s)
		if err != nil {
			s.logger.Error("Socket connection failed: %v", err)
			return domain.Identity{}, fmt.Errorf("login: connect: %w", err)
		}
		s.Attach(rt)
		logring.Succeed(s.logger, "Connected to server")
	}

	id := domain.Identity{DeviceID: deviceID, UserID: session.UserID, Username: session.Username}
	s.publishAsync(ctx)
	return id, nil
}

// Logout leaves any match, closes the socket and forgets the user id.
func (s *Syncer) Logout(ctx context.Context) error {
	if s.Match().Joined {
		if err := s.LeaveMatch(ctx); err != nil {
			s.logger.Warn("Logout: %v", err)
		}
	}
	s.mu.Lock()
	rt := s.rt
	s.rt = nil
	s.session = nil
	s.mu.Unlock()
	if rt != nil {
		if err := rt.Close(); err != nil {
			s.logger.Warn("Logout: closing socket: %v", err)
		}
	}
	if err := s.registry.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info("Logged out")
	s.publishAsync(ctx)
	return nil
}

// publishAsync asks the consumer to republish so views pick up identity changes.
func (s *Syncer) publishAsync(ctx context.Context) {
	_ = s.enqueue(ctx, refreshMsg{})
}

type refreshMsg struct{}

func (refreshMsg) isInboxMsg() {}

// CreateMatch creates a private match for mode and joins it.
func (s *Syncer) CreateMatch(ctx context.Context, mode domain.GameMode) (string, error) {
	session := s.Session()
	if session == nil {
		return "", ErrNotLoggedIn
	}
	cfg, ok := domain.LookupMode(mode)
	if !ok {
		s.logger.Warn("CreateMatch: unknown game mode %q, using %s", mode, cfg.Mode)
	}

	s.logger.Info("Creating private match...")
	matchID, err := s.auth.CreateMatch(ctx, session, cfg)
	if err != nil {
		s.logger.Error("Failed to create match: %v", err)
		return "", fmt.Errorf("create match: %w", err)
	}
	logring.Succeed(s.logger, "Match created! ID: %s", matchID)

	if err := s.joinMatch(ctx, matchID, "", cfg.Mode); err != nil {
		return matchID, err
	}
	return matchID, nil
}

// JoinMatch joins an existing match by id.
func (s *Syncer) JoinMatch(ctx context.Context, matchID string) error {
	return s.joinMatch(ctx, matchID, "", s.opts.DefaultMode)
}

func (s *Syncer) joinMatch(ctx context.Context, matchID, token string, mode domain.GameMode) error {
	rt := s.realtime()
	if rt == nil {
		s.logger.Error("Failed to join match: %v", ErrNotConnected)
		return ErrNotConnected
	}
	if current := s.Match(); current.Joined {
		if err := s.LeaveMatch(ctx); err != nil {
			s.logger.Warn("Join: leaving %s: %v", current.MatchID, err)
		}
	}

	if matchID != "" {
		s.logger.Info("Joining match: %s", matchID)
	}
	joined, err := rt.JoinMatch(ctx, matchID, token)
	if err != nil {
		s.logger.Error("Failed to join match: %v", err)
		return fmt.Errorf("join match: %w", err)
	}

	s.mu.Lock()
	s.match = domain.MatchHandle{MatchID: joined, Joined: true}
	s.mu.Unlock()
	if err := s.enqueue(ctx, joinedMsg{matchID: joined, mode: mode}); err != nil {
		return err
	}
	logring.Succeed(s.logger, "Joined match successfully!")
	return nil
}

// FindRandomMatch enters the matchmaker for mode. The match is joined when
// the server reports a match.
func (s *Syncer) FindRandomMatch(ctx context.Context, mode domain.GameMode) (string, error) {
	rt := s.realtime()
	if rt == nil {
		return "", ErrNotConnected
	}
	cfg, _ := domain.LookupMode(mode)

	s.logger.Info("Looking for random match...")
	ticket, err := rt.AddMatchmaker(ctx, "*", cfg.PlayerCount, cfg.PlayerCount)
	if err != nil {
		s.logger.Error("Matchmaking failed: %v", err)
		return "", fmt.Errorf("matchmaker: %w", err)
	}
	s.logger.Info("Matchmaking ticket: %s", ticket)
	s.logger.Info("Waiting for opponents...")
	return ticket, nil
}

// LeaveMatch leaves the current match and discards all match-scoped state.
// Identity and the log survive.
func (s *Syncer) LeaveMatch(ctx context.Context) error {
	s.mu.Lock()
	match := s.match
	s.match = domain.MatchHandle{}
	rt := s.rt
	s.mu.Unlock()

	if !match.Joined {
		return ErrNotInMatch
	}
	if err := s.enqueue(ctx, leftMsg{matchID: match.MatchID}); err != nil {
		return err
	}
	if rt != nil {
		if err := rt.LeaveMatch(ctx, match.MatchID); err != nil {
			s.logger.Warn("LeaveMatch: %v", err)
			return fmt.Errorf("leave match: %w", err)
		}
	}
	s.logger.Info("Left match %s", match.MatchID)
	return nil
}

// Send delivers a to the current match. It never waits on the network.
func (s *Syncer) Send(a Action) error {
	match := s.Match()
	if !match.Joined {
		return ErrNotInMatch
	}
	rt := s.realtime()
	if rt == nil {
		return ErrNotConnected
	}
	data, err := a.Encode()
	if err != nil {
		s.logger.Error("Send: %v", err)
		return err
	}
	if err := rt.SendMatchState(match.MatchID, domain.OpCodeMatchData, data); err != nil {
		s.logger.Error("Failed to send %s: %v", a.Type, err)
		return fmt.Errorf("send %s: %w", a.Type, err)
	}
	return nil
}

// PlayCard plays card, declaring chosen for wild cards.
func (s *Syncer) PlayCard(card domain.Card, chosen domain.Color) error {
	a, err := PlayCardAction(card, chosen)
	if err != nil {
		s.logger.Warn("PlayCard: %v", err)
		return err
	}
	if err := s.Send(a); err != nil {
		return err
	}
	s.logger.Info("Played: %s", a.Card.Label())
	return nil
}

func (s *Syncer) DrawCard() error {
	if err := s.Send(DrawCardAction()); err != nil {
		return err
	}
	s.logger.Info("Drew a card")
	return nil
}

func (s *Syncer) PassTurn() error {
	if err := s.Send(PassTurnAction()); err != nil {
		return err
	}
	s.logger.Info("Passed turn")
	return nil
}

func (s *Syncer) CallUno() error {
	if err := s.Send(CallUnoAction()); err != nil {
		return err
	}
	logring.Succeed(s.logger, "Called UNO!")
	return nil
}

func (s *Syncer) AddBot() error                { return s.Send(AddBotAction()) }
func (s *Syncer) RemoveBot(botID string) error { return s.Send(RemoveBotAction(botID)) }
func (s *Syncer) StartGame() error             { return s.Send(StartGameAction()) }
func (s *Syncer) DenyJoin(userID string) error { return s.Send(DenyJoinAction(userID)) }

func (s *Syncer) ApproveSeat(userID string, seat int) error {
	return s.sendBuilt(ApproveSeatAction(userID, seat))
}

// ApproveToFirstEmptySeat seats a pending user in the first empty seat.
func (s *Syncer) ApproveToFirstEmptySeat(userID string) (int, error) {
	v := s.View()
	seat, err := lobby.ApprovalSeat(v.Lobby, v.LobbyStatus, v.SelfID, userID)
	if err != nil {
		s.logger.Warn("Approve %s: %v", userID, err)
		return -1, err
	}
	return seat, s.ApproveSeat(userID, seat)
}

func (s *Syncer) AssignBot(seat int) error  { return s.sendBuilt(AssignBotAction(seat)) }
func (s *Syncer) RemoveSeat(seat int) error { return s.sendBuilt(RemoveSeatAction(seat)) }
func (s *Syncer) RequestSeat(seat int) error {
	return s.sendBuilt(RequestSeatAction(seat))
}

func (s *Syncer) SetSeatTeam(seat int, team string) error {
	return s.sendBuilt(SetSeatTeamAction(seat, team))
}

func (s *Syncer) sendBuilt(a Action, err error) error {
	if err != nil {
		s.logger.Warn("%v", err)
		return err
	}
	return s.Send(a)
}
