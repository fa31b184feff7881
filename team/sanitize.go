package team

import (
	"slices"

	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/player"
)

// SanitizedPlayer is everything about a member that may leave the server for
// a given observer.
type SanitizedPlayer struct {
	PlayerID         string        `json:"playerId"`
	DisplayName      string        `json:"displayName"`
	Connected        bool          `json:"connected"`
	IsRevealed       bool          `json:"isRevealed"`
	HasChosenRole    bool          `json:"hasChosenRole"`
	HasConfirmedTeam bool          `json:"hasConfirmedTeam"`
	Role             *models.Role  `json:"role,omitempty"`
	StartingRole     *models.Role  `json:"startingRole,omitempty"`
	CandidateRoles   []models.Role `json:"candidateRoles,omitempty"`
	TeammateIDs      []string      `json:"teammateIds,omitempty"`
}

// Sanitize returns every member as seen by observerID (which may be empty).
// Role data is kept for the observer's own record and for revealed members.
// With exposeTypes set, everyone else shows only their role type.
//
// It has no side effects: every returned role and slice is a copy.
func Sanitize(members []*player.Player, observerID string, exposeTypes bool) []SanitizedPlayer {
	out := make([]SanitizedPlayer, 0, len(members))
	for _, p := range members {
		out = append(out, sanitizeOne(p, observerID, exposeTypes))
	}
	return out
}

func sanitizeOne(p *player.Player, observerID string, exposeTypes bool) SanitizedPlayer {
	s := SanitizedPlayer{
		PlayerID:         p.ID,
		DisplayName:      p.DisplayName(),
		Connected:        p.IsConnected(),
		IsRevealed:       p.IsRevealed,
		HasChosenRole:    p.HasChosenRole,
		HasConfirmedTeam: p.HasConfirmedTeam,
	}

	switch {
	case observerID != "" && p.ID == observerID:
		s.Role = copyRole(p.AssignedRole)
		s.StartingRole = copyRole(p.StartingRole)
		s.CandidateRoles = slices.Clone(p.CandidateRoles)
		s.TeammateIDs = slices.Clone(p.TeammateIDs)
	case p.IsRevealed:
		s.Role = copyRole(p.AssignedRole)
	case exposeTypes && p.AssignedRole != nil:
		typeOnly := p.AssignedRole.TypeOnly()
		s.Role = &typeOnly
	}
	return s
}

// TeamOf returns the observer's teammates as the observer may see them.
func TeamOf(members []*player.Player, observer *player.Player, exposeTypes bool) []SanitizedPlayer {
	team := make([]SanitizedPlayer, 0, len(observer.TeammateIDs))
	for _, p := range members {
		if slices.Contains(observer.TeammateIDs, p.ID) {
			team = append(team, sanitizeOne(p, observer.ID, exposeTypes))
		}
	}
	return team
}

func copyRole(r *models.Role) *models.Role {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
