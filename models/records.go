// models/records.go
package models

import (
	"fmt"
	"time"
)

// GameSummary 一局游戏的记录
type GameSummary struct {
	GameID      string    `json:"game_id"`
	RoomCode    string    `json:"room_code"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	GameLength  string    `json:"game_length"` // m:ss, empty when the start time is unknown
	PlayerCount int       `json:"player_count"`
}

// PlayerOutcome 玩家在一局游戏中的结果
type PlayerOutcome struct {
	GameID           string    `json:"game_id"`
	PlayerID         string    `json:"player_id"`
	StartingRole     string    `json:"starting_role"`
	StartingRoleType RoleType  `json:"starting_role_type"`
	EndingRole       string    `json:"ending_role"`
	EndingRoleType   RoleType  `json:"ending_role_type"`
	PotentialRole1   string    `json:"potential_role_1"`
	PotentialRole2   string    `json:"potential_role_2"`
	IsWinner         bool      `json:"is_winner"`
	IsRevealed       bool      `json:"is_revealed"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// StatsSummary aggregates a window of a player's games.
type StatsSummary struct {
	GamesPlayed int              `json:"gamesPlayed"`
	Wins        int              `json:"wins"`
	RolesPlayed map[RoleType]int `json:"rolesPlayed"`
	WinsPerRole map[RoleType]int `json:"winsPerRole"`
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	PlayerID string       `json:"userId"`
	AllTime  StatsSummary `json:"allTime"`
	Last5    StatsSummary `json:"last5Games"`
	Last10   StatsSummary `json:"last10Games"`
}

// FormatGameLength renders a duration as minutes:seconds.
func FormatGameLength(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
