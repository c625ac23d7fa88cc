package domain

// GameMode identifies a lobby configuration offered by the server.
type GameMode string

const (
	GameModeTwoPlayer  GameMode = "2p"
	GameModeFourPlayer GameMode = "4p"
	GameModeTeams      GameMode = "2v2"
)

// ModeConfig describes the seat layout of a game mode.
type ModeConfig struct {
	Mode        GameMode `json:"gameMode"`
	Name        string   `json:"-"`
	PlayerCount int      `json:"playerCount"`
	IsTeamMode  bool     `json:"isTeamMode"`
}

var modeConfigs = map[GameMode]ModeConfig{
	GameModeTwoPlayer:  {Mode: GameModeTwoPlayer, Name: "2 Players", PlayerCount: 2},
	GameModeFourPlayer: {Mode: GameModeFourPlayer, Name: "4 Players", PlayerCount: 4},
	GameModeTeams:      {Mode: GameModeTeams, Name: "2v2 Team Battle", PlayerCount: 4, IsTeamMode: true},
}

// LookupMode returns the configuration for mode, falling back to the 2 player mode.
func LookupMode(mode GameMode) (ModeConfig, bool) {
	cfg, ok := modeConfigs[mode]
	if !ok {
		return modeConfigs[GameModeTwoPlayer], false
	}
	return cfg, true
}

const (
	// DefaultTurnLimitSeconds is the turn length assumed before the server says otherwise.
	DefaultTurnLimitSeconds = 15

	// OpCodeMatchData is the op code every JSON match message travels on.
	OpCodeMatchData int64 = 1

	// RpcCreateMatch is the server RPC that creates a private match.
	RpcCreateMatch = "create_uno_match"
)
