// Package tui renders the synchronized UNO state in the terminal. It owns no
// game state: every frame is drawn from the latest app.View.
package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"unosync/internal/app"
	"unosync/internal/domain"
	"unosync/internal/logring"
)

// visibleLogLines is how many log entries the log panel shows.
const visibleLogLines = 8

// Controller is the part of app.Syncer the terminal drives.
type Controller interface {
	View() app.View
	Subscribe(fn func(app.View)) (unsubscribe func())

	Login(ctx context.Context) (domain.Identity, error)
	Logout(ctx context.Context) error
	CreateMatch(ctx context.Context, mode domain.GameMode) (string, error)
	JoinMatch(ctx context.Context, matchID string) error
	FindRandomMatch(ctx context.Context, mode domain.GameMode) (string, error)
	LeaveMatch(ctx context.Context) error

	PlayCard(card domain.Card, chosen domain.Color) error
	DrawCard() error
	PassTurn() error
	CallUno() error

	AddBot() error
	StartGame() error
	ApproveToFirstEmptySeat(userID string) (int, error)
	DenyJoin(userID string) error
	RequestSeat(seat int) error
}

var _ Controller = (*app.Syncer)(nil)

// viewMsg carries a freshly published view.
type viewMsg app.View

// logMsg carries a visible log entry.
type logMsg logring.Entry

// opDoneMsg reports the end of a blocking controller call.
type opDoneMsg struct {
	op     string
	result string
	err    error
}

// copyMsg reports the clipboard write for the match id.
type copyMsg struct {
	err error
}

var modeOrder = []domain.GameMode{domain.GameModeTwoPlayer, domain.GameModeFourPlayer, domain.GameModeTeams}

// bridge moves observer callbacks into the bubbletea loop. Views are
// coalesced: only the newest unread view is kept.
type bridge struct {
	ch     chan tea.Msg
	views  chan app.View
	unsubs []func()
}

func newBridge() *bridge {
	return &bridge{
		ch:    make(chan tea.Msg, 256),
		views: make(chan app.View, 1),
	}
}

func (b *bridge) push(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
	}
}

func (b *bridge) pushView(v app.View) {
	for {
		select {
		case b.views <- v:
			return
		default:
		}
		select {
		case <-b.views:
		default:
		}
	}
}

func (b *bridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case v := <-b.views:
			return viewMsg(v)
		case msg := <-b.ch:
			return msg
		}
	}
}

// Model is the root bubbletea model.
type Model struct {
	ctrl    Controller
	bridge  *bridge
	timeout time.Duration

	view      app.View
	logs      []logring.Entry
	mode      domain.GameMode
	cursor    int
	picking   bool
	joining   bool
	input     string
	status    string
	statusErr bool

	width  int
	height int
}

// NewModel subscribes to ctrl and logs. Call Close when the program exits.
func NewModel(ctrl Controller, logs *logring.Buffer, mode domain.GameMode) Model {
	b := newBridge()
	b.unsubs = append(b.unsubs, ctrl.Subscribe(b.pushView))

	var entries []logring.Entry
	if logs != nil {
		b.unsubs = append(b.unsubs, logs.Subscribe(func(e logring.Entry) { b.push(logMsg(e)) }))
		for _, e := range logs.Entries() {
			if !e.Silent {
				entries = append(entries, e)
			}
		}
	}
	if _, ok := domain.LookupMode(mode); !ok {
		mode = domain.GameModeTwoPlayer
	}

	return Model{
		ctrl:    ctrl,
		bridge:  b,
		timeout: 15 * time.Second,
		view:    ctrl.View(),
		logs:    trimLogs(entries),
		mode:    mode,
	}
}

// Close drops the model's subscriptions.
func (m Model) Close() {
	for _, unsub := range m.bridge.unsubs {
		unsub()
	}
}

func (m Model) Init() tea.Cmd {
	return m.bridge.listen()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case viewMsg:
		if app.View(msg).Version >= m.view.Version {
			m.setView(app.View(msg))
		}
		return m, m.bridge.listen()

	case logMsg:
		m.logs = trimLogs(append(m.logs, logring.Entry(msg)))
		m.setView(m.ctrl.View())
		return m, m.bridge.listen()

	case opDoneMsg:
		m.setView(m.ctrl.View())
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("%s failed: %v", msg.op, msg.err), true)
		} else if msg.result != "" {
			m.setStatus(msg.result, false)
		}
		return m, nil

	case copyMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("copy failed: %v", msg.err), true)
		} else {
			m.setStatus("Match ID copied to clipboard", false)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// screen keeps the auth screen up until this process holds a session, even
// when a user id survives from an earlier run.
func (m Model) screen() app.Screen {
	if !m.view.LoggedIn {
		return app.ScreenAuth
	}
	return m.view.Screen()
}

func (m *Model) setView(v app.View) {
	m.view = v
	if m.cursor >= len(v.Hand) {
		m.cursor = len(v.Hand) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func trimLogs(entries []logring.Entry) []logring.Entry {
	if len(entries) > visibleLogLines {
		entries = entries[len(entries)-visibleLogLines:]
	}
	return entries
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.joining {
		return m.handleJoinInput(msg)
	}
	if m.picking {
		return m.handleColorPick(key)
	}
	if key == "q" {
		return m, tea.Quit
	}

	switch m.screen() {
	case app.ScreenAuth:
		if key == "l" {
			m.setStatus("", false)
			return m, m.run("login", func(ctx context.Context) (string, error) {
				id, err := m.ctrl.Login(ctx)
				return "Welcome, " + id.Username, err
			})
		}
	case app.ScreenLobby:
		return m.handleLobbyKey(key)
	case app.ScreenPlaying:
		return m.handlePlayingKey(key)
	}
	return m, nil
}

func (m Model) handleJoinInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.joining = false
		m.input = ""
	case tea.KeyEnter:
		matchID := m.input
		m.joining = false
		m.input = ""
		if matchID == "" {
			return m, nil
		}
		return m, m.run("join", func(ctx context.Context) (string, error) {
			return "", m.ctrl.JoinMatch(ctx, matchID)
		})
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) handleColorPick(key string) (tea.Model, tea.Cmd) {
	var color domain.Color
	switch key {
	case "r":
		color = domain.ColorRed
	case "y":
		color = domain.ColorYellow
	case "g":
		color = domain.ColorGreen
	case "b":
		color = domain.ColorBlue
	case "esc":
		m.picking = false
		return m, nil
	default:
		return m, nil
	}
	m.picking = false
	if m.cursor >= len(m.view.Hand) {
		return m, nil
	}
	card := m.view.Hand[m.cursor]
	return m, m.send("play", func() error { return m.ctrl.PlayCard(card, color) })
}

func (m Model) handleLobbyKey(key string) (tea.Model, tea.Cmd) {
	inMatch := m.view.Match.Joined
	switch key {
	case "m":
		if !inMatch {
			m.mode = nextMode(m.mode)
		}
	case "c":
		if !inMatch {
			mode := m.mode
			return m, m.run("create match", func(ctx context.Context) (string, error) {
				id, err := m.ctrl.CreateMatch(ctx, mode)
				if err != nil {
					return "", err
				}
				return "Match ID: " + id + " (press y to copy)", nil
			})
		}
	case "f":
		if !inMatch {
			mode := m.mode
			return m, m.run("find match", func(ctx context.Context) (string, error) {
				_, err := m.ctrl.FindRandomMatch(ctx, mode)
				return "Waiting for opponents...", err
			})
		}
	case "j":
		m.joining = true
		m.input = ""
	case "o":
		return m, m.run("logout", func(ctx context.Context) (string, error) {
			return "", m.ctrl.Logout(ctx)
		})
	case "y":
		if inMatch {
			matchID := m.view.Match.MatchID
			return m, func() tea.Msg {
				return copyMsg{err: clipboard.WriteAll(matchID)}
			}
		}
	case "e":
		if inMatch {
			return m, m.leave()
		}
	case "b":
		if m.view.IsHost() {
			return m, m.send("add bot", m.ctrl.AddBot)
		}
	case "s":
		if m.view.IsHost() {
			return m, m.send("start", m.ctrl.StartGame)
		}
	case "a":
		if id := firstPending(m.view.Lobby); id != "" && m.view.IsHost() {
			return m, m.send("approve", func() error {
				_, err := m.ctrl.ApproveToFirstEmptySeat(id)
				return err
			})
		}
	case "x":
		if id := firstPending(m.view.Lobby); id != "" && m.view.IsHost() {
			return m, m.send("deny", func() error { return m.ctrl.DenyJoin(id) })
		}
	case "1", "2", "3", "4":
		if inMatch {
			seat := int(key[0] - '1')
			return m, m.send("request seat", func() error { return m.ctrl.RequestSeat(seat) })
		}
	}
	return m, nil
}

func (m Model) handlePlayingKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor < len(m.view.Hand)-1 {
			m.cursor++
		}
	case "enter", " ":
		if !m.view.CanPlay(m.cursor) {
			return m, nil
		}
		card := m.view.Hand[m.cursor]
		if card.IsWild() {
			m.picking = true
			return m, nil
		}
		return m, m.send("play", func() error { return m.ctrl.PlayCard(card, "") })
	case "d":
		if m.view.IsMyTurn() {
			return m, m.send("draw", m.ctrl.DrawCard)
		}
	case "p":
		if m.view.IsMyTurn() {
			return m, m.send("pass", m.ctrl.PassTurn)
		}
	case "u":
		return m, m.send("uno", m.ctrl.CallUno)
	case "e":
		return m, m.leave()
	}
	return m, nil
}

func (m Model) leave() tea.Cmd {
	return m.run("leave", func(ctx context.Context) (string, error) {
		return "", m.ctrl.LeaveMatch(ctx)
	})
}

// run executes a blocking controller call off the update loop.
func (m Model) run(op string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := fn(ctx)
		if err != nil {
			result = ""
		}
		return opDoneMsg{op: op, result: result, err: err}
	}
}

// send wraps a non-blocking outbound action.
func (m Model) send(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn()}
	}
}

func nextMode(mode domain.GameMode) domain.GameMode {
	for i, candidate := range modeOrder {
		if candidate == mode {
			return modeOrder[(i+1)%len(modeOrder)]
		}
	}
	return modeOrder[0]
}

func firstPending(state domain.LobbySeatState) string {
	if len(state.Pending) == 0 {
		return ""
	}
	ids := make([]string, 0, len(state.Pending))
	for id := range state.Pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0]
}
