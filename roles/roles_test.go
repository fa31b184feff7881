package roles

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func role(name string, t models.RoleType) models.Role {
	return models.Role{Name: name, Type: t, RevealMode: models.RevealBoth}
}

func fullPool() []models.Role {
	return []models.Role{
		role("Monarch A", models.RoleTypeMonarch),
		role("Monarch B", models.RoleTypeMonarch),
		role("Monarch C", models.RoleTypeMonarch),
		role("Knight A", models.RoleTypeKnight),
		role("Knight B", models.RoleTypeKnight),
		role("Knight C", models.RoleTypeKnight),
		role("Bandit A", models.RoleTypeBandit),
		role("Bandit B", models.RoleTypeBandit),
		role("Bandit C", models.RoleTypeBandit),
		role("Bandit D", models.RoleTypeBandit),
		role("Renegade A", models.RoleTypeRenegade),
		role("Renegade B", models.RoleTypeRenegade),
	}
}

type stubSource struct {
	roles []models.Role
	err   error
}

func (s stubSource) LoadRoles(context.Context) ([]models.Role, error) { return s.roles, s.err }

func TestCatalog_OrdersByFactionAndDedupes(t *testing.T) {
	c := NewCatalog([]models.Role{
		role("Villager", models.RoleTypeSubRole),
		role("Lancelot", models.RoleTypeKnight),
		role("Arthur", models.RoleTypeMonarch),
		role("Lancelot", models.RoleTypeKnight),
		role("Robin", models.RoleTypeBandit),
	})

	assert.Equal(t, []string{"Arthur", "Lancelot", "Robin", "Villager"}, models.RoleNames(c.All()))

	r, ok := c.Find("Robin")
	require.True(t, ok)
	assert.Equal(t, models.RoleTypeBandit, r.Type)
}

func TestCatalog_Load(t *testing.T) {
	c := NewCatalog(nil)
	require.NoError(t, c.Load(context.Background(), stubSource{roles: []models.Role{role("Arthur", models.RoleTypeMonarch)}}))
	assert.Equal(t, 1, c.Len())

	err := c.Load(context.Background(), stubSource{err: errors.New("boom")})
	require.Error(t, err)
	assert.Equal(t, 1, c.Len(), "a failed load keeps the previous catalog")
}

func TestCatalog_Resolve(t *testing.T) {
	c := NewCatalog(fullPool())

	resolved, err := c.Resolve([]models.Role{{Name: "Knight A"}, {Name: "Knight A"}, {Name: "Bandit B", Type: models.RoleTypeMonarch}})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, models.RoleTypeBandit, resolved[1].Type, "client supplied fields are ignored")

	_, err = c.Resolve([]models.Role{{Name: "Nobody"}})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestNeededTypes(t *testing.T) {
	assert.Equal(t, []models.RoleType{models.RoleTypeMonarch, models.RoleTypeKnight}, NeededTypes(2))
	assert.Len(t, NeededTypes(len(RoleOrder)+5), len(RoleOrder))
	assert.Equal(t, models.RoleTypeMonarch, RoleOrder[0])
}

func TestShuffleSeats_PreviousLeaderLast(t *testing.T) {
	ids := []string{"a", "b", "leader", "c", "d"}
	for seed := uint64(0); seed < 50; seed++ {
		seats := ShuffleSeats(ids, "leader", newRNG(seed))
		require.Len(t, seats, len(ids))
		assert.Equal(t, "leader", seats[len(seats)-1])
		assert.ElementsMatch(t, ids, seats)
	}

	seats := ShuffleSeats(ids, "gone", newRNG(1))
	assert.ElementsMatch(t, ids, seats, "an absent previous leader is ignored")
}

func TestAssign_ChoicesPerSeatAndUniqueness(t *testing.T) {
	members := []string{"p1", "p2", "p3", "p4", "p5"}
	for seed := uint64(0); seed < 25; seed++ {
		alloc, shortfalls := Assign(Request{MemberIDs: members, Pool: fullPool(), ChoicesPerSeat: 2}, newRNG(seed))
		require.Empty(t, shortfalls)
		require.Len(t, alloc, len(members))

		seen := map[string]bool{}
		byType := map[models.RoleType]int{}
		for _, id := range members {
			require.Len(t, alloc[id], 2)
			for _, r := range alloc[id] {
				assert.False(t, seen[r.Name], "role %s dealt twice", r.Name)
				seen[r.Name] = true
			}
			assert.Equal(t, alloc[id][0].Type, alloc[id][1].Type, "both candidates share the seat type")
			byType[alloc[id][0].Type]++
		}
		assert.Equal(t, map[models.RoleType]int{
			models.RoleTypeMonarch:  1,
			models.RoleTypeKnight:   1,
			models.RoleTypeBandit:   2,
			models.RoleTypeRenegade: 1,
		}, byType)
	}
}

func TestAssign_AvoidsPreviousRoundRoles(t *testing.T) {
	previous := []models.Role{role("Monarch A", models.RoleTypeMonarch), role("Knight A", models.RoleTypeKnight)}
	for seed := uint64(0); seed < 25; seed++ {
		alloc, _ := Assign(Request{MemberIDs: []string{"p1", "p2"}, Pool: fullPool(), PreviousRound: previous, ChoicesPerSeat: 2}, newRNG(seed))
		for _, candidates := range alloc {
			for _, r := range candidates {
				assert.NotContains(t, []string{"Monarch A", "Knight A"}, r.Name)
			}
		}
	}
}

func TestAssign_BackfillsFromPreviousRound(t *testing.T) {
	pool := []models.Role{role("Arthur", models.RoleTypeMonarch), role("Lancelot", models.RoleTypeKnight)}
	alloc, shortfalls := Assign(Request{
		MemberIDs:      []string{"p1", "p2"},
		Pool:           pool,
		PreviousRound:  pool,
		ChoicesPerSeat: 1,
	}, newRNG(7))

	require.Empty(t, shortfalls)
	var names []string
	for _, candidates := range alloc {
		require.Len(t, candidates, 1)
		names = append(names, candidates[0].Name)
	}
	assert.ElementsMatch(t, []string{"Arthur", "Lancelot"}, names)
}

func TestAssign_ShortfallReturnsBestEffort(t *testing.T) {
	pool := []models.Role{role("Arthur", models.RoleTypeMonarch), role("Lancelot", models.RoleTypeKnight)}
	alloc, shortfalls := Assign(Request{MemberIDs: []string{"p1", "p2", "p3"}, Pool: pool, ChoicesPerSeat: 2}, newRNG(3))

	require.Len(t, alloc, 3)
	require.Len(t, shortfalls, 3)
	total := 0
	for _, candidates := range alloc {
		total += len(candidates)
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, models.RoleTypeBandit, shortfalls[2].Type)
	assert.Equal(t, 0, shortfalls[2].Got)
}

func TestAssign_LeaderSeatGoesToSomeoneElse(t *testing.T) {
	for seed := uint64(0); seed < 25; seed++ {
		alloc, _ := Assign(Request{
			MemberIDs:        []string{"p1", "p2", "p3"},
			Pool:             fullPool(),
			PreviousLeaderID: "p1",
			ChoicesPerSeat:   1,
		}, newRNG(seed))
		assert.NotEqual(t, models.RoleTypeMonarch, alloc["p1"][0].Type)
	}
}

func TestCorruption(t *testing.T) {
	knight := models.Role{Name: "Lancelot", Type: models.RoleTypeKnight, Ability: "Protect the Monarch."}
	assigned := []models.Role{
		{Name: "Arthur", Type: models.RoleTypeMonarch},
		knight,
		{Name: TricksterName, Type: models.RoleTypeRenegade},
	}

	idx := CorruptionTarget(assigned)
	require.Equal(t, 1, idx)

	corrupted := Corrupt(assigned[idx])
	assert.Equal(t, "Corrupted Lancelot", corrupted.Name)
	assert.Equal(t, models.RoleTypeBandit, corrupted.Type)
	assert.True(t, corrupted.Corrupted)
	assert.Contains(t, corrupted.Ability, "Protect the Jester.")
	assert.NotContains(t, corrupted.Ability, "Monarch")
	assert.Equal(t, "Lancelot", assigned[1].Name, "the original role value is not mutated")

	assert.Equal(t, -1, CorruptionTarget(assigned[:2]), "no trickster, no corruption")
}
