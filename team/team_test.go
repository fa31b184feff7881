package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sforrego/mtgkingdoms-backend/models"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/roles"
)

func seat(id string, r models.Role) *player.Player {
	p := player.New(id, id)
	p.SetRole(r)
	return p
}

func table() []*player.Player {
	return []*player.Player{
		seat("monarch", models.Role{Name: "Arthur", Type: models.RoleTypeMonarch}),
		seat("knight", models.Role{Name: "Lancelot", Type: models.RoleTypeKnight}),
		seat("bandit1", models.Role{Name: "Robin", Type: models.RoleTypeBandit}),
		seat("bandit2", models.Role{Name: "Marian", Type: models.RoleTypeBandit}),
		seat("noble1", models.Role{Name: "Duke", Type: models.RoleTypeNoble}),
		seat("noble2", models.Role{Name: "Earl", Type: models.RoleTypeNoble}),
		seat("renegade", models.Role{Name: "Archenemy", Type: models.RoleTypeRenegade}),
	}
}

func byID(members []*player.Player) map[string]*player.Player {
	m := map[string]*player.Player{}
	for _, p := range members {
		m[p.ID] = p
	}
	return m
}

func TestComputeTeammates_Affinity(t *testing.T) {
	members := table()
	ComputeTeammates(members, false)
	p := byID(members)

	assert.Equal(t, []string{"monarch"}, p["knight"].TeammateIDs)
	assert.Empty(t, p["monarch"].TeammateIDs, "the Leader learns nothing without exposure")
	assert.Equal(t, []string{"bandit2"}, p["bandit1"].TeammateIDs)
	assert.Equal(t, []string{"bandit1"}, p["bandit2"].TeammateIDs)
	assert.Equal(t, []string{"noble2"}, p["noble1"].TeammateIDs)
	assert.Empty(t, p["renegade"].TeammateIDs)

	for _, m := range members {
		assert.NotContains(t, m.TeammateIDs, m.ID, "self is never a teammate")
	}
}

func TestComputeTeammates_ExposeGuard(t *testing.T) {
	members := table()
	ComputeTeammates(members, true)
	p := byID(members)

	assert.Equal(t, []string{"knight"}, p["monarch"].TeammateIDs)
	assert.Equal(t, []string{"monarch"}, p["knight"].TeammateIDs)
}

func TestComputeTeammates_Corrupted(t *testing.T) {
	knight := models.Role{Name: "Lancelot", Type: models.RoleTypeKnight}
	members := []*player.Player{
		seat("monarch", models.Role{Name: "Arthur", Type: models.RoleTypeMonarch}),
		seat("knight", roles.Corrupt(knight)),
		seat("jester", models.Role{Name: roles.TricksterName, Type: models.RoleTypeRenegade}),
		seat("bandit", models.Role{Name: "Robin", Type: models.RoleTypeBandit}),
	}
	ComputeTeammates(members, false)
	p := byID(members)

	assert.Equal(t, []string{"jester"}, p["knight"].TeammateIDs)
	assert.Empty(t, p["bandit"].TeammateIDs, "the corrupted knight is hidden from the bandits")
}

func TestComputeTeammates_TwoPlayerScenario(t *testing.T) {
	members := []*player.Player{
		seat("p1", models.Role{Name: "Arthur", Type: models.RoleTypeMonarch}),
		seat("p2", models.Role{Name: "Lancelot", Type: models.RoleTypeKnight}),
	}
	ComputeTeammates(members, true)

	assert.Equal(t, []string{"p1"}, members[1].TeammateIDs)
	assert.Equal(t, []string{"p2"}, members[0].TeammateIDs)
}

func TestSanitize_HidesOthers(t *testing.T) {
	members := table()
	ComputeTeammates(members, false)
	members[0].CandidateRoles = []models.Role{{Name: "Arthur"}, {Name: "Uther"}}

	view := Sanitize(members, "monarch", false)
	require.Len(t, view, len(members))

	self := view[0]
	require.NotNil(t, self.Role)
	assert.Equal(t, "Arthur", self.Role.Name)
	assert.Len(t, self.CandidateRoles, 2)

	for _, other := range view[1:] {
		assert.Nil(t, other.Role, "%s leaked a role", other.PlayerID)
		assert.Empty(t, other.CandidateRoles)
		assert.Empty(t, other.TeammateIDs)
	}
}

func TestSanitize_RevealedAndExposed(t *testing.T) {
	members := table()
	members[2].IsRevealed = true

	view := Sanitize(members, "knight", true)

	require.NotNil(t, view[2].Role)
	assert.Equal(t, "Robin", view[2].Role.Name, "revealed members show everything")

	require.NotNil(t, view[4].Role)
	assert.Equal(t, models.RoleTypeNoble, view[4].Role.Type)
	assert.Empty(t, view[4].Role.Name, "exposure shows the type only")
	assert.Empty(t, view[4].Role.Ability)
}

func TestSanitize_AnonymousObserver(t *testing.T) {
	view := Sanitize(table(), "", false)
	for _, s := range view {
		assert.Nil(t, s.Role)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	members := table()
	ComputeTeammates(members, true)
	members[3].IsRevealed = true

	first := Sanitize(members, "bandit1", true)
	second := Sanitize(members, "bandit1", true)
	assert.Equal(t, first, second)

	first[0].Role.Name = "tampered"
	assert.Equal(t, "Arthur", members[0].AssignedRole.Name, "output must not alias player state")
}

func TestTeamOf(t *testing.T) {
	members := table()
	ComputeTeammates(members, false)

	team := TeamOf(members, members[2], false)
	require.Len(t, team, 1)
	assert.Equal(t, "bandit2", team[0].PlayerID)
	assert.Nil(t, team[0].Role)
}
