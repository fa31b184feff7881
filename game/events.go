package game

import (
	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/state"
	"github.com/Sforrego/mtgkingdoms-backend/team"
)

// RoomView is a room as one observer may see it.
type RoomView struct {
	RoomCode            string                 `json:"roomCode"`
	Phase               state.Phase            `json:"phase"`
	Players             []team.SanitizedPlayer `json:"players"`
	RolePool            []models.Role          `json:"rolePool"`
	AllowsRoleChoice    bool                   `json:"allowsRoleChoice"`
	ExposesRolesOnStart bool                   `json:"exposesRolesOnStart"`
}

type LoggedIn struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	RoomCode    string `json:"roomCode,omitempty"`
	Reconnected bool   `json:"reconnected"`
}

// Reconnected resumes a client where it left off.
type Reconnected struct {
	RoomView
	Team []team.SanitizedPlayer `json:"team"`
}

type LeftRoom struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type RolePoolUpdated struct {
	RoomCode string        `json:"roomCode"`
	Roles    []models.Role `json:"roles"`
}

type RoomSettings struct {
	RoomCode            string `json:"roomCode"`
	AllowsRoleChoice    bool   `json:"allowsRoleChoice"`
	ExposesRolesOnStart bool   `json:"exposesRolesOnStart"`
}

// RoleOptions is unicast: only the holder ever sees their candidates.
type RoleOptions struct {
	RoomCode   string        `json:"roomCode"`
	Candidates []models.Role `json:"candidates"`
}

type TeamReview struct {
	RoomCode string                 `json:"roomCode"`
	Role     *models.Role           `json:"role,omitempty"`
	Team     []team.SanitizedPlayer `json:"team"`
}

type GameStarted struct {
	RoomView
	Role          *models.Role           `json:"role,omitempty"`
	Team          []team.SanitizedPlayer `json:"team"`
	CourtierRoles []models.Role          `json:"courtierRoles"`
}

type GameEnded struct {
	RoomView
	GameID    string   `json:"gameId,omitempty"`
	WinnerIDs []string `json:"winnerIds,omitempty"`
	Recorded  bool     `json:"recorded"`
}

type RolesData struct {
	Roles []models.Role `json:"roles"`
}
