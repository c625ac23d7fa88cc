package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"unosync/internal/domain"
	"unosync/internal/identity"
	"unosync/internal/logring"
	"unosync/internal/ports"
	"unosync/internal/storage"
)

func newTestLogger() (*logring.Logger, *logring.Buffer) {
	buf := logring.NewBuffer(nil)
	return logring.NewLogger(buf), buf
}

// entriesContaining returns the entries whose message contains substr.
func entriesContaining(buf *logring.Buffer, substr string) []logring.Entry {
	var out []logring.Entry
	for _, e := range buf.Entries() {
		if strings.Contains(e.Message, substr) {
			out = append(out, e)
		}
	}
	return out
}

func visibleEntries(buf *logring.Buffer) []logring.Entry {
	var out []logring.Entry
	for _, e := range buf.Entries() {
		if !e.Silent {
			out = append(out, e)
		}
	}
	return out
}

type sentMsg struct {
	matchID string
	opCode  int64
	data    string
}

type fakeRealtime struct {
	mu       sync.Mutex
	sent     []sentMsg
	joins    []string
	leaves   []string
	tickets  int
	joinErr  error
	sendErr  error
	closed   bool
	joinedCh chan string
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{joinedCh: make(chan string, 4)}
}

func (f *fakeRealtime) SendMatchState(matchID string, opCode int64, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMsg{matchID: matchID, opCode: opCode, data: string(data)})
	return nil
}

func (f *fakeRealtime) JoinMatch(_ context.Context, matchID, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return "", f.joinErr
	}
	id := matchID
	if id == "" {
		id = "matched-" + token
	}
	f.joins = append(f.joins, id)
	f.joinedCh <- id
	return id, nil
}

func (f *fakeRealtime) LeaveMatch(_ context.Context, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, matchID)
	return nil
}

func (f *fakeRealtime) AddMatchmaker(_ context.Context, query string, minCount, maxCount int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets++
	return "ticket-" + query, nil
}

func (f *fakeRealtime) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeRealtime) sentMessages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sent...)
}

type fakeAuth struct {
	session   *ports.Session
	err       error
	createdID string
	modes     []domain.ModeConfig
	devices   []string
}

func (f *fakeAuth) AuthenticateDevice(_ context.Context, deviceID, username string, create bool) (*ports.Session, error) {
	f.devices = append(f.devices, deviceID)
	if f.err != nil {
		return nil, f.err
	}
	s := *f.session
	return &s, nil
}

func (f *fakeAuth) CreateMatch(_ context.Context, _ *ports.Session, mode domain.ModeConfig) (string, error) {
	f.modes = append(f.modes, mode)
	if f.createdID == "" {
		return "", errors.New("rpc failed")
	}
	return f.createdID, nil
}

type fakeConnector struct {
	rt      *fakeRealtime
	handler ports.RealtimeHandler
}

func (f *fakeConnector) Connect(_ context.Context, _ *ports.Session, h ports.RealtimeHandler) (ports.RealtimePort, error) {
	f.handler = h
	return f.rt, nil
}

type harness struct {
	syncer *Syncer
	buf    *logring.Buffer
	store  *storage.MemoryStore
	reg    *identity.Registry
	rt     *fakeRealtime
	auth   *fakeAuth
}

// newHarness builds a Syncer whose persisted user id is self.
func newHarness(t *testing.T, self string) *harness {
	t.Helper()
	logger, buf := newTestLogger()
	store := storage.NewMemoryStore()
	reg := identity.NewRegistry(store, nil)
	if self != "" {
		if err := reg.SetUserID(context.Background(), self); err != nil {
			t.Fatalf("SetUserID: %v", err)
		}
	}
	rt := newFakeRealtime()
	auth := &fakeAuth{session: &ports.Session{Token: "tok", UserID: self, Username: "UnoPlayer_test01"}}
	s := NewSyncer(logger, reg, auth, &fakeConnector{rt: rt}, Options{})
	return &harness{syncer: s, buf: buf, store: store, reg: reg, rt: rt, auth: auth}
}

// drain processes everything queued in the inbox on the calling goroutine.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	for {
		select {
		case m := <-h.syncer.inbox:
			h.syncer.process(context.Background(), m)
		default:
			return
		}
	}
}
