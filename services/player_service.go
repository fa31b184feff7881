// services/player_service.go
package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

// OutcomeStore is the read side of the round records.
type OutcomeStore interface {
	// ListPlayerOutcomes returns a player's outcomes, newest first.
	ListPlayerOutcomes(ctx context.Context, playerID string) ([]models.PlayerOutcome, error)
}

type PlayerService struct {
	db OutcomeStore
}

func NewPlayerService(db OutcomeStore) *PlayerService {
	return &PlayerService{db: db}
}

// FetchPlayerStats 获取玩家统计: all time, the last 10 and the last 5 games.
func (s *PlayerService) FetchPlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	if playerID == "" {
		return models.PlayerStats{}, fmt.Errorf("player id is required")
	}
	outcomes, err := s.db.ListPlayerOutcomes(ctx, playerID)
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("list outcomes of %s: %w", playerID, err)
	}
	return models.PlayerStats{
		PlayerID: playerID,
		AllTime:  Summarize(outcomes),
		Last10:   Summarize(outcomes[:min(10, len(outcomes))]),
		Last5:    Summarize(outcomes[:min(5, len(outcomes))]),
	}, nil
}

// Summarize counts games, wins, and per faction games and wins. The faction
// is the one the player started the round with; other types are not counted
// per role.
func Summarize(outcomes []models.PlayerOutcome) models.StatsSummary {
	summary := models.StatsSummary{
		GamesPlayed: len(outcomes),
		RolesPlayed: make(map[models.RoleType]int, len(models.FactionTypes)),
		WinsPerRole: make(map[models.RoleType]int, len(models.FactionTypes)),
	}
	for _, t := range models.FactionTypes {
		summary.RolesPlayed[t] = 0
		summary.WinsPerRole[t] = 0
	}

	for _, o := range outcomes {
		if o.IsWinner {
			summary.Wins++
		}
		if o.StartingRole == "" || !slices.Contains(models.FactionTypes, o.StartingRoleType) {
			continue
		}
		summary.RolesPlayed[o.StartingRoleType]++
		if o.IsWinner {
			summary.WinsPerRole[o.StartingRoleType]++
		}
	}
	return summary
}
