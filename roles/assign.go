package roles

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

// RoleOrder is the seat template: seat i of an n-player round needs a role of
// type RoleOrder[i]. Seat 0 is always Leader-class.
var RoleOrder = []models.RoleType{
	models.RoleTypeMonarch,
	models.RoleTypeKnight,
	models.RoleTypeBandit,
	models.RoleTypeRenegade,
	models.RoleTypeBandit,
	models.RoleTypeNoble,
	models.RoleTypeKnight,
	models.RoleTypeBandit,
	models.RoleTypeRenegade,
	models.RoleTypeNoble,
	models.RoleTypeBandit,
	models.RoleTypeNoble,
}

// Request describes one round's deal.
type Request struct {
	MemberIDs        []string
	Pool             []models.Role
	PreviousRound    []models.Role
	PreviousLeaderID string
	ChoicesPerSeat   int
}

// Allocation maps player ids to the candidate roles dealt to them.
type Allocation map[string][]models.Role

// Shortfall records a seat that received fewer candidates than requested.
type Shortfall struct {
	Seat     int
	PlayerID string
	Type     models.RoleType
	Wanted   int
	Got      int
}

func (s Shortfall) String() string {
	return fmt.Sprintf("seat %d (%s) wanted %d %s role(s), got %d", s.Seat, s.PlayerID, s.Wanted, s.Type, s.Got)
}

// ChoicesPerSeat is 2 when players pick their role, 1 otherwise.
func ChoicesPerSeat(allowsRoleChoice bool) int {
	if allowsRoleChoice {
		return 2
	}
	return 1
}

// NeededTypes returns the role type of each of the first n seats. Seats past the
// end of RoleOrder have no type.
func NeededTypes(n int) []models.RoleType {
	return slices.Clone(RoleOrder[:min(n, len(RoleOrder))])
}

// ShuffleSeats orders players uniformly at random, except that the previous
// round's Leader-class holder is always seated last.
func ShuffleSeats(ids []string, previousLeaderID string, rng *rand.Rand) []string {
	seats := make([]string, 0, len(ids))
	leaderPresent := false
	for _, id := range ids {
		if previousLeaderID != "" && id == previousLeaderID {
			leaderPresent = true
			continue
		}
		seats = append(seats, id)
	}
	rng.Shuffle(len(seats), func(i, j int) { seats[i], seats[j] = seats[j], seats[i] })
	if leaderPresent {
		seats = append(seats, previousLeaderID)
	}
	return seats
}

// Assign deals ChoicesPerSeat candidate roles to every member. Roles played in
// the previous round are avoided unless the pool runs short, and no role is
// dealt to two seats. Seats that cannot be filled get what was found and are
// reported as shortfalls.
func Assign(req Request, rng *rand.Rand) (Allocation, []Shortfall) {
	k := max(req.ChoicesPerSeat, 1)
	seats := ShuffleSeats(req.MemberIDs, req.PreviousLeaderID, rng)
	needed := NeededTypes(len(seats))

	previous := make(map[string]bool, len(req.PreviousRound))
	for _, r := range req.PreviousRound {
		previous[r.Name] = true
	}

	working := slices.Clone(req.Pool)
	allocation := make(Allocation, len(seats))
	var shortfalls []Shortfall

	for i, playerID := range seats {
		if i >= len(needed) {
			allocation[playerID] = nil
			shortfalls = append(shortfalls, Shortfall{Seat: i, PlayerID: playerID, Wanted: k})
			continue
		}
		roleType := needed[i]

		candidates := filter(working, func(r models.Role) bool { return r.Type == roleType && !previous[r.Name] })
		if len(candidates) < k {
			candidates = append(candidates, filter(working, func(r models.Role) bool { return r.Type == roleType && previous[r.Name] })...)
		}

		chosen := make([]models.Role, 0, k)
		for len(chosen) < k && len(candidates) > 0 {
			idx := rng.IntN(len(candidates))
			chosen = append(chosen, candidates[idx])
			candidates = slices.Delete(candidates, idx, idx+1)
		}
		working = slices.DeleteFunc(working, func(r models.Role) bool {
			return slices.ContainsFunc(chosen, func(c models.Role) bool { return c.Name == r.Name })
		})

		if len(chosen) < k {
			shortfalls = append(shortfalls, Shortfall{Seat: i, PlayerID: playerID, Type: roleType, Wanted: k, Got: len(chosen)})
		}
		allocation[playerID] = chosen
	}

	return allocation, shortfalls
}

func filter(roles []models.Role, keep func(models.Role) bool) []models.Role {
	var out []models.Role
	for _, r := range roles {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
