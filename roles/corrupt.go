package roles

import (
	"strings"

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

// CorruptionTarget returns the index of the Guard-class role to corrupt when the
// trickster is in play, or -1.
func CorruptionTarget(assigned []models.Role) int {
	tricksterInPlay := false
	for _, r := range assigned {
		if r.Name == TricksterName {
			tricksterInPlay = true
			break
		}
	}
	if !tricksterInPlay {
		return -1
	}
	for i, r := range assigned {
		if r.Type == models.RoleTypeKnight && !r.Corrupted {
			return i
		}
	}
	return -1
}

// Corrupt returns the corrupted variant of a Guard-class role. The input is
// left untouched.
func Corrupt(r models.Role) models.Role {
	corrupted := r
	corrupted.Name = "Corrupted " + r.Name
	corrupted.Type = models.RoleTypeBandit
	corrupted.Ability = "You serve the " + TricksterName + ".\nWhen you Reveal the " + TricksterName + " is forced to Reveal.\n" +
		strings.ReplaceAll(r.Ability, string(models.RoleTypeMonarch), TricksterName)
	corrupted.Corrupted = true
	return corrupted
}
