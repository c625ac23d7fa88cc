package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unosync/internal/domain"
)

var me = domain.Identity{DeviceID: "device_abcdef", UserID: "u-me", Username: "UnoPlayer_me1234"}

func TestFallbackSeatsSelfFirst(t *testing.T) {
	tests := []struct {
		mode     domain.GameMode
		seats    int
		teamMode bool
	}{
		{mode: domain.GameModeTwoPlayer, seats: 2},
		{mode: domain.GameModeFourPlayer, seats: 4},
		{mode: domain.GameModeTeams, seats: 4, teamMode: true},
		{mode: "bogus", seats: 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := NewReconciler()
			r.Fallback(me, tt.mode)

			state := r.State()
			assert.Equal(t, Unsynced, r.Status())
			require.Len(t, state.Seats, tt.seats)
			assert.Equal(t, tt.seats, state.MaxPlayers)
			assert.Equal(t, tt.teamMode, state.IsTeamMode)
			assert.Equal(t, domain.SeatPlayer, state.Seats[0].Type)
			assert.Equal(t, "u-me", state.Seats[0].OccupantID)
			for _, seat := range state.Seats[1:] {
				assert.Equal(t, domain.SeatEmpty, seat.Type)
			}
			assert.True(t, state.WaitingForPlayers)
			assert.False(t, state.CanStart)
		})
	}
}

func TestFallbackUsesPlaceholderName(t *testing.T) {
	r := NewReconciler()
	r.Fallback(domain.Identity{UserID: "u1"}, domain.GameModeTwoPlayer)
	assert.Equal(t, "You", r.State().Seats[0].Username)
}

func TestFallbackNeverGrantsHost(t *testing.T) {
	r := NewReconciler()
	r.Fallback(me, domain.GameModeTwoPlayer)
	assert.Equal(t, "u-me", r.State().HostID)
	assert.False(t, r.IsHost("u-me"))
}

func TestApplyReplacesFallbackEntirely(t *testing.T) {
	r := NewReconciler()
	r.Fallback(me, domain.GameModeTwoPlayer)

	r.Apply(domain.LobbySeatState{
		HostID:     "u-host",
		GameMode:   domain.GameModeFourPlayer,
		MaxPlayers: 4,
		Players: map[string]domain.LobbyMember{
			"u-host": {Username: "Host"},
		},
		Seats: []domain.Seat{
			{Index: 0, Type: domain.SeatPlayer, OccupantID: "u-host", Username: "Host"},
		},
		Pending: map[string]domain.JoinRequest{"u-me": {Username: "UnoPlayer_me1234"}},
	})

	state := r.State()
	assert.Equal(t, Synced, r.Status())
	assert.Equal(t, "u-host", state.HostID)
	assert.NotContains(t, state.Players, "u-me")
	require.Len(t, state.Seats, 4)
	assert.Equal(t, "u-host", state.Seats[0].OccupantID)
	for _, seat := range state.Seats[1:] {
		assert.Equal(t, domain.SeatEmpty, seat.Type)
		assert.Empty(t, seat.OccupantID)
	}
	assert.False(t, state.WaitingForPlayers)
	assert.Equal(t, -1, MySeat(state, "u-me"))
	assert.False(t, r.IsHost("u-me"))
	assert.True(t, r.IsHost("u-host"))
}

func TestApplyDerivesMaxPlayersFromMode(t *testing.T) {
	r := NewReconciler()
	r.Apply(domain.LobbySeatState{GameMode: domain.GameModeTeams, IsTeamMode: true})
	assert.Len(t, r.State().Seats, 4)
}

func TestStateIsACopy(t *testing.T) {
	r := NewReconciler()
	r.Apply(domain.LobbySeatState{HostID: "h", MaxPlayers: 2})
	state := r.State()
	state.Seats[0].Type = domain.SeatBot
	assert.Equal(t, domain.SeatEmpty, r.State().Seats[0].Type)
}

func TestApprovalSeat(t *testing.T) {
	synced := domain.LobbySeatState{
		HostID:     "u-me",
		MaxPlayers: 4,
		Seats: domain.NormalizeSeats([]domain.Seat{
			{Index: 0, Type: domain.SeatPlayer, OccupantID: "u-me"},
			{Index: 1, Type: domain.SeatBot, OccupantID: "bot-1"},
		}, 4),
		Pending: map[string]domain.JoinRequest{"u-2": {Username: "two"}},
	}
	full := synced.Clone()
	full.Seats = domain.NormalizeSeats([]domain.Seat{
		{Index: 0, Type: domain.SeatPlayer}, {Index: 1, Type: domain.SeatBot},
	}, 2)

	tests := []struct {
		name    string
		state   domain.LobbySeatState
		status  Status
		self    string
		user    string
		want    int
		wantErr error
	}{
		{name: "first empty", state: synced, status: Synced, self: "u-me", user: "u-2", want: 2},
		{name: "unsynced", state: synced, status: Unsynced, self: "u-me", user: "u-2", want: -1, wantErr: ErrUnsynced},
		{name: "not host", state: synced, status: Synced, self: "u-2", user: "u-2", want: -1, wantErr: ErrNotHost},
		{name: "not pending", state: synced, status: Synced, self: "u-me", user: "u-9", want: -1, wantErr: ErrNotPending},
		{name: "full", state: full, status: Synced, self: "u-me", user: "u-2", want: -1, wantErr: ErrNoEmptySeat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApprovalSeat(tt.state, tt.status, tt.self, tt.user)
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReset(t *testing.T) {
	r := NewReconciler()
	r.Apply(domain.LobbySeatState{HostID: "u-me", MaxPlayers: 2})
	r.Reset()
	assert.Equal(t, Unsynced, r.Status())
	assert.Empty(t, r.State().Seats)
	assert.False(t, r.IsHost("u-me"))
}
