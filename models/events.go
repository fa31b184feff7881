// models/events.go
package models

// Inbound intent payloads. PlayerID fields are advisory: the server acts for the
// player bound to the session and rejects a payload naming someone else.

type LoginRequest struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

type CreateRoomRequest struct {
	PlayerID string `json:"playerId"`
}

type JoinRoomRequest struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
}

type LeaveRoomRequest struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
}

type UpdateRolePoolRequest struct {
	RoomCode string `json:"roomCode"`
	Roles    []Role `json:"roles"`
}

type UpdateRoomSettingsRequest struct {
	RoomCode            string `json:"roomCode"`
	AllowsRoleChoice    *bool  `json:"allowsRoleChoice,omitempty"`
	ExposesRolesOnStart *bool  `json:"exposesRolesOnStart,omitempty"`
}

type StartGameRequest struct {
	RoomCode string `json:"roomCode"`
}

type SelectRoleRequest struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
	Role     *Role  `json:"role"`
}

// PlayerRoomRequest is shared by confirmTeam, revealRole and concealRole.
type PlayerRoomRequest struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
}

type EndGameRequest struct {
	RoomCode  string   `json:"roomCode"`
	WinnerIDs []string `json:"winnerIds"`
}

type ChosenOneDecisionRequest struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
	Decision string `json:"decision"`
}

type CultificationRequest struct {
	PlayerID   string   `json:"playerId"`
	RoomCode   string   `json:"roomCode"`
	CultistIDs []string `json:"cultistIds"`
}

type GetStatsRequest struct {
	PlayerID string `json:"playerId"`
}

// ErrorMessage is the payload of the error event, sent only to the originator.
type ErrorMessage struct {
	Message string `json:"message"`
}
