// Package team derives who a player may see as an ally, and what every
// observer is allowed to know about everyone else.
package team

import (
	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/roles"
)

// ComputeTeammates sets TeammateIDs on every member from their current role.
// When exposeGuard is set the Leader-class holder also learns the Guard.
func ComputeTeammates(members []*player.Player, exposeGuard bool) {
	for _, p := range members {
		p.TeammateIDs = Teammates(members, p, exposeGuard)
	}
}

// Teammates returns the ids of the members subject may see as allies. Subject
// is never included.
func Teammates(members []*player.Player, subject *player.Player, exposeGuard bool) []string {
	if subject.AssignedRole == nil {
		return nil
	}
	r := subject.AssignedRole

	var match func(models.Role) bool
	switch {
	case r.Corrupted:
		match = func(o models.Role) bool { return o.Name == roles.TricksterName }
	case r.Type == models.RoleTypeBandit:
		match = func(o models.Role) bool { return o.Type == models.RoleTypeBandit && !o.Corrupted }
	case r.Type == models.RoleTypeNoble:
		match = func(o models.Role) bool { return o.Type == models.RoleTypeNoble }
	case r.Type == models.RoleTypeKnight:
		match = func(o models.Role) bool { return o.Type == models.RoleTypeMonarch }
	case r.Type == models.RoleTypeMonarch && exposeGuard:
		match = func(o models.Role) bool { return o.Type == models.RoleTypeKnight }
	default:
		return nil
	}

	var ids []string
	for _, m := range members {
		if m.ID == subject.ID || m.AssignedRole == nil {
			continue
		}
		if match(*m.AssignedRole) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
