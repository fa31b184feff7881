package game

import (
	"fmt"

	"github.com/Sforrego/mtgkingdoms-backend/logger"
	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/network"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/roles"
	"github.com/Sforrego/mtgkingdoms-backend/room"
	"github.com/Sforrego/mtgkingdoms-backend/state"
	"github.com/Sforrego/mtgkingdoms-backend/team"
)

// RevealRole shows the player's role to the room.
//
// Revealing the Archenemy turns every other member into a revealed Villager.
// Revealing a corrupted role forces the trickster to reveal as well.
func (e *Engine) RevealRole(playerID string, req models.PlayerRoomRequest) error {
	r, p, err := e.lockPhase(playerID, req.RoomCode, state.PhaseActive)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if p.AssignedRole == nil {
		return fmt.Errorf("%w: no role to reveal", ErrInvalidChoice)
	}
	if !p.AssignedRole.CanReveal() {
		return fmt.Errorf("%w: %s cannot be revealed", ErrInvalidChoice, p.AssignedRole.Name)
	}
	p.IsRevealed = true

	members := r.Members()
	switch {
	case p.AssignedRole.Name == roles.ArchenemyName:
		p.SetRole(e.catalogRole(roles.ArchenemyRevealedName))
		villager := e.catalogRole(roles.VillagerName)
		for _, m := range members {
			if m.ID != p.ID {
				m.IsRevealed = true
				m.SetRole(villager)
			}
		}
		team.ComputeTeammates(members, r.ExposesRolesOnStart)
		logger.Log.Infof("Room %s: the Archenemy %s has been revealed", r.Code, p.ID)
	case p.AssignedRole.Corrupted:
		for _, m := range members {
			if m.AssignedRole != nil && m.AssignedRole.Name == roles.TricksterName {
				m.IsRevealed = true
			}
		}
	}

	e.broadcastView(r, network.MsgTypeGameUpdated, "")
	return nil
}

// ConcealRole hides the player's role again.
func (e *Engine) ConcealRole(playerID string, req models.PlayerRoomRequest) error {
	r, p, err := e.lockPhase(playerID, req.RoomCode, state.PhaseActive)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if p.AssignedRole == nil {
		return fmt.Errorf("%w: no role to conceal", ErrInvalidChoice)
	}
	if !p.AssignedRole.CanConceal() {
		return fmt.Errorf("%w: %s cannot be concealed", ErrInvalidChoice, p.AssignedRole.Name)
	}
	p.IsRevealed = false

	e.broadcastView(r, network.MsgTypeGameUpdated, "")
	return nil
}

// ChosenOneDecision lets an Outsider-class holder become the named role.
func (e *Engine) ChosenOneDecision(playerID string, req models.ChosenOneDecisionRequest) error {
	r, p, err := e.lockPhase(playerID, req.RoomCode, state.PhaseActive)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if !p.HasRole(models.RoleTypeRenegade) {
		return fmt.Errorf("%w: only a %s can make that decision", ErrInvalidChoice, models.RoleTypeRenegade)
	}
	chosen, ok := e.catalog.Find(req.Decision)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, req.Decision)
	}
	p.SetRole(chosen)
	e.recomputeTeams(r)
	logger.Log.Infof("Room %s: %s became %s", r.Code, p.ID, chosen.Name)
	return nil
}

// Cultify turns the Outsider-class holder and the named members into revealed Cultists.
func (e *Engine) Cultify(playerID string, req models.CultificationRequest) error {
	r, p, err := e.lockPhase(playerID, req.RoomCode, state.PhaseActive)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if !p.HasRole(models.RoleTypeRenegade) {
		return fmt.Errorf("%w: only a %s can lead a cult", ErrInvalidChoice, models.RoleTypeRenegade)
	}
	converts := []*player.Player{p}
	for _, id := range req.CultistIDs {
		if id == p.ID {
			continue
		}
		m, member := r.GetPlayer(id)
		if !member {
			return fmt.Errorf("%w: %s", ErrNotMember, id)
		}
		converts = append(converts, m)
	}

	cultist := e.catalogRole(roles.CultistName)
	for _, m := range converts {
		m.SetRole(cultist)
		m.IsRevealed = true
	}
	e.recomputeTeams(r)
	logger.Log.Infof("Room %s: %d players joined the cult", r.Code, len(converts))
	return nil
}

func (e *Engine) recomputeTeams(r *room.Room) {
	team.ComputeTeammates(r.Members(), r.ExposesRolesOnStart)
	e.broadcastView(r, network.MsgTypeGameUpdated, "")
}

// catalogRole returns the named catalog role, or a bare SubRole of that name
// when the catalog lacks it.
func (e *Engine) catalogRole(name string) models.Role {
	if role, ok := e.catalog.Find(name); ok {
		return role
	}
	logger.Log.Warnf("role %q missing from catalog", name)
	return models.Role{Name: name, Type: models.RoleTypeSubRole, RevealMode: models.RevealRevealed}
}
