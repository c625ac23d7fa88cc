package ports

import (
	"context"

	"unosync/internal/domain"
	"unosync/internal/wire"
)

// Session is the result of a successful device authentication.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Username     string
	Created      bool
}

// AuthPort authenticates devices and calls server RPCs.
type AuthPort interface {
	// AuthenticateDevice logs in with deviceID, creating the account when create is set.
	AuthenticateDevice(ctx context.Context, deviceID, username string, create bool) (*Session, error)

	// CreateMatch asks the server to create a private match for mode and returns its id.
	CreateMatch(ctx context.Context, session *Session, mode domain.ModeConfig) (string, error)
}

// MatchSender delivers outbound match messages. Implementations must not block
// the caller on network I/O.
type MatchSender interface {
	SendMatchState(matchID string, opCode int64, data []byte) error
}

// RealtimePort is the realtime socket the sync layer drives.
type RealtimePort interface {
	MatchSender

	// JoinMatch joins matchID (or a matchmaker token) and returns the joined match id.
	JoinMatch(ctx context.Context, matchID, token string) (string, error)

	// LeaveMatch leaves matchID.
	LeaveMatch(ctx context.Context, matchID string) error

	// AddMatchmaker enqueues the player and returns the matchmaker ticket.
	AddMatchmaker(ctx context.Context, query string, minCount, maxCount int) (string, error)

	// Close disconnects the socket.
	Close() error
}

// Connector opens a realtime socket for an authenticated session.
type Connector interface {
	Connect(ctx context.Context, session *Session, handler RealtimeHandler) (RealtimePort, error)
}

// RealtimeHandler receives traffic pushed by the realtime socket. Calls are
// made from the socket's read goroutine.
type RealtimeHandler interface {
	OnMatchData(frame wire.Frame)
	OnMatchmakerMatched(matchID, token string)
	OnDisconnect(err error)
}
