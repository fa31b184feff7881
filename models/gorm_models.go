// models/gorm_models.go
package models

import (
	"time"
)

// GormRole 角色目录表
type GormRole struct {
	Name           string `gorm:"primaryKey"`
	Type           string `gorm:"index;not null"`
	Ability        string
	ImageURL       string
	RevealMode     string `gorm:"not null;default:'both'"`
	StartsRevealed bool   `gorm:"default:false"`
	Enabled        bool   `gorm:"default:true"`
	SortOrder      int    `gorm:"default:0"`
}

func (GormRole) TableName() string { return "roles" }

// GormGame 游戏记录表
type GormGame struct {
	GameID      string `gorm:"primaryKey"`
	RoomCode    string `gorm:"index;not null"`
	StartedAt   *time.Time
	EndedAt     time.Time `gorm:"not null"`
	GameLength  string
	PlayerCount int
	CreatedAt   time.Time
}

func (GormGame) TableName() string { return "games" }

// GormGamePlayer 玩家对局结果表
type GormGamePlayer struct {
	GameID           string `gorm:"primaryKey"`
	PlayerID         string `gorm:"primaryKey;index"`
	StartingRole     string
	StartingRoleType string
	EndingRole       string
	EndingRoleType   string
	PotentialRole1   string
	PotentialRole2   string
	IsWinner         bool
	IsRevealed       bool
	CreatedAt        time.Time `gorm:"index"`
}

func (GormGamePlayer) TableName() string { return "game_players" }

// ToRole converts a role row into a catalog entry.
func (g GormRole) ToRole() Role {
	return Role{
		Name:           g.Name,
		Type:           RoleType(g.Type),
		Ability:        g.Ability,
		Image:          g.ImageURL,
		RevealMode:     ParseRevealMode(g.RevealMode),
		StartsRevealed: g.StartsRevealed,
	}
}

// NewGormRole converts a catalog entry into a role row.
func NewGormRole(r Role, sortOrder int) GormRole {
	mode := r.RevealMode
	if mode == "" {
		mode = RevealBoth
	}
	return GormRole{
		Name:           r.Name,
		Type:           string(r.Type),
		Ability:        r.Ability,
		ImageURL:       r.Image,
		RevealMode:     string(mode),
		StartsRevealed: r.StartsRevealed,
		Enabled:        true,
		SortOrder:      sortOrder,
	}
}

// NewGormGame converts a round summary into a game row.
func NewGormGame(s GameSummary) GormGame {
	g := GormGame{
		GameID:      s.GameID,
		RoomCode:    s.RoomCode,
		EndedAt:     s.EndedAt,
		GameLength:  s.GameLength,
		PlayerCount: s.PlayerCount,
	}
	if !s.StartedAt.IsZero() {
		started := s.StartedAt
		g.StartedAt = &started
	}
	return g
}

// NewGormGamePlayer converts a player outcome into a row.
func NewGormGamePlayer(o PlayerOutcome) GormGamePlayer {
	return GormGamePlayer{
		GameID:           o.GameID,
		PlayerID:         o.PlayerID,
		StartingRole:     o.StartingRole,
		StartingRoleType: string(o.StartingRoleType),
		EndingRole:       o.EndingRole,
		EndingRoleType:   string(o.EndingRoleType),
		PotentialRole1:   o.PotentialRole1,
		PotentialRole2:   o.PotentialRole2,
		IsWinner:         o.IsWinner,
		IsRevealed:       o.IsRevealed,
		CreatedAt:        o.RecordedAt,
	}
}

// ToOutcome converts a row back into a player outcome.
func (g GormGamePlayer) ToOutcome() PlayerOutcome {
	return PlayerOutcome{
		GameID:           g.GameID,
		PlayerID:         g.PlayerID,
		StartingRole:     g.StartingRole,
		StartingRoleType: RoleType(g.StartingRoleType),
		EndingRole:       g.EndingRole,
		EndingRoleType:   RoleType(g.EndingRoleType),
		PotentialRole1:   g.PotentialRole1,
		PotentialRole2:   g.PotentialRole2,
		IsWinner:         g.IsWinner,
		IsRevealed:       g.IsRevealed,
		RecordedAt:       g.CreatedAt,
	}
}
