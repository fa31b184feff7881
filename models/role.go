// models/role.go
package models

// RoleType groups roles into factions for team affinity and allocation quotas.
type RoleType string

const (
	RoleTypeMonarch  RoleType = "Monarch"  // Leader-class
	RoleTypeKnight   RoleType = "Knight"   // Guard-class
	RoleTypeBandit   RoleType = "Bandit"   // Saboteur-class
	RoleTypeRenegade RoleType = "Renegade" // Outsider-class
	RoleTypeNoble    RoleType = "Noble"    // Courtier-class
	RoleTypeSubRole  RoleType = "SubRole"  // only reachable through role effects
)

// FactionTypes lists the role types a seat can be dealt, in catalog order.
var FactionTypes = []RoleType{
	RoleTypeMonarch,
	RoleTypeKnight,
	RoleTypeBandit,
	RoleTypeRenegade,
	RoleTypeNoble,
}

// CatalogOrder is the sort order of role types in the catalog.
var CatalogOrder = append(append([]RoleType{}, FactionTypes...), RoleTypeSubRole)

// RevealMode controls whether a role may be revealed or concealed by its holder.
type RevealMode string

const (
	RevealHidden   RevealMode = "hidden"   // cannot be revealed voluntarily
	RevealRevealed RevealMode = "revealed" // cannot be concealed once shown
	RevealBoth     RevealMode = "both"
)

// ParseRevealMode returns the matching RevealMode, defaulting to RevealBoth.
func ParseRevealMode(s string) RevealMode {
	switch RevealMode(s) {
	case RevealHidden, RevealRevealed:
		return RevealMode(s)
	default:
		return RevealBoth
	}
}

// Role is a catalog entry. Values are copied into rooms and players, never shared.
type Role struct {
	Name           string     `json:"name,omitempty"`
	Type           RoleType   `json:"type,omitempty"`
	Ability        string     `json:"ability,omitempty"`
	Image          string     `json:"image,omitempty"`
	RevealMode     RevealMode `json:"revealMode,omitempty"`
	StartsRevealed bool       `json:"startsRevealed,omitempty"`
	Corrupted      bool       `json:"corrupted,omitempty"`
}

// CanReveal reports whether the holder may reveal this role on their own.
func (r Role) CanReveal() bool {
	return r.RevealMode != RevealHidden
}

// CanConceal reports whether the holder may hide this role again after revealing.
func (r Role) CanConceal() bool {
	return r.RevealMode != RevealRevealed
}

// TypeOnly strips everything but the faction.
func (r Role) TypeOnly() Role {
	return Role{Type: r.Type}
}

// RoleNames returns the names of roles in order.
func RoleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}
