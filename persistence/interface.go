// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/Sforrego/mtgkingdoms-backend/config"
	"github.com/Sforrego/mtgkingdoms-backend/models"
)

// Database 数据库接口
type Database interface {
	// LoadRoles returns the enabled role catalog.
	LoadRoles(ctx context.Context) ([]models.Role, error)
	// SaveRoles upserts roles, keeping the given order.
	SaveRoles(ctx context.Context, roles []models.Role) error
	RecordCompletedGame(ctx context.Context, summary models.GameSummary) error
	RecordPlayerOutcome(ctx context.Context, outcome models.PlayerOutcome) error
	// ListPlayerOutcomes returns a player's outcomes, newest first.
	ListPlayerOutcomes(ctx context.Context, playerID string) ([]models.PlayerOutcome, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrUnknownDriver  = fmt.Errorf("unknown database driver")
)

// Open connects to the store selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)
	case "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)
	case "sqlite":
		return NewSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// SeedRoles stores roles when the catalog table is empty.
func SeedRoles(ctx context.Context, db Database, roles []models.Role) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	existing, err := db.LoadRoles(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	return true, db.SaveRoles(ctx, roles)
}

// RolesFromConfig converts seed entries from the config file.
func RolesFromConfig(entries []config.RoleConfig) []models.Role {
	roles := make([]models.Role, 0, len(entries))
	for _, e := range entries {
		roles = append(roles, models.Role{
			Name:           e.Name,
			Type:           models.RoleType(e.Type),
			Ability:        e.Ability,
			Image:          e.Image,
			RevealMode:     models.ParseRevealMode(e.RevealMode),
			StartsRevealed: e.StartsRevealed,
		})
	}
	return roles
}

func dsn(host string, port int, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}
