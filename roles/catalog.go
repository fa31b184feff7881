// Package roles holds the role catalog and deals roles to seats.
package roles

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

// Names of roles with game effects.
const (
	TricksterName         = "Jester"
	ArchenemyName         = "Archenemy"
	ArchenemyRevealedName = "Archenemy Revealed"
	VillagerName          = "Villager"
	CultistName           = "Cultist"
)

var ErrUnknownRole = errors.New("unknown role")

// Source loads the enabled roles from a store.
type Source interface {
	LoadRoles(ctx context.Context) ([]models.Role, error)
}

// Catalog is the ordered pool of enabled roles. Entries are handed out by value.
type Catalog struct {
	mu     sync.RWMutex
	roles  []models.Role
	byName map[string]int
}

func NewCatalog(roles []models.Role) *Catalog {
	c := &Catalog{}
	c.replace(roles)
	return c
}

// Load replaces the catalog with the roles from src.
func (c *Catalog) Load(ctx context.Context, src Source) error {
	loaded, err := src.LoadRoles(ctx)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	c.replace(loaded)
	return nil
}

func (c *Catalog) replace(roles []models.Role) {
	sorted := slices.Clone(roles)
	slices.SortStableFunc(sorted, func(a, b models.Role) int {
		return typeRank(a.Type) - typeRank(b.Type)
	})

	byName := make(map[string]int, len(sorted))
	deduped := sorted[:0]
	for _, r := range sorted {
		if _, dup := byName[r.Name]; dup || r.Name == "" {
			continue
		}
		byName[r.Name] = len(deduped)
		deduped = append(deduped, r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles = deduped
	c.byName = byName
}

func typeRank(t models.RoleType) int {
	if i := slices.Index(models.CatalogOrder, t); i >= 0 {
		return i
	}
	return len(models.CatalogOrder)
}

// All returns a copy of every role in catalog order.
func (c *Catalog) All() []models.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.roles)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.roles)
}

// Find looks a role up by name.
func (c *Catalog) Find(name string) (models.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byName[name]
	if !ok {
		return models.Role{}, false
	}
	return c.roles[i], true
}

// Resolve maps client-supplied roles onto catalog entries by name, dropping
// duplicates. Any name not in the catalog fails the whole call.
func (c *Catalog) Resolve(requested []models.Role) ([]models.Role, error) {
	seen := make(map[string]bool, len(requested))
	resolved := make([]models.Role, 0, len(requested))
	for _, r := range requested {
		if seen[r.Name] {
			continue
		}
		role, ok := c.Find(r.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, r.Name)
		}
		seen[r.Name] = true
		resolved = append(resolved, role)
	}
	return resolved, nil
}
