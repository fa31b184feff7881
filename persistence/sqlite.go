// persistence/sqlite.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sforrego/mtgkingdoms-backend/models"

	_ "modernc.org/sqlite"
)

// SQLite 本地单机存储
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a database file. ":memory:" keeps everything in process.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}
	source := path
	if path != ":memory:" {
		source = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", source)
	if err != nil {
		return nil, err
	}
	// 单连接，避免写锁冲突，也让 :memory: 数据库保持一份
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := migrateSQLite(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS roles (
            name TEXT PRIMARY KEY,
            type TEXT NOT NULL,
            ability TEXT NOT NULL DEFAULT '',
            image_url TEXT NOT NULL DEFAULT '',
            reveal_mode TEXT NOT NULL DEFAULT 'both',
            starts_revealed INTEGER NOT NULL DEFAULT 0,
            enabled INTEGER NOT NULL DEFAULT 1,
            sort_order INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS games (
            game_id TEXT PRIMARY KEY,
            room_code TEXT NOT NULL,
            started_at INTEGER,
            ended_at INTEGER NOT NULL,
            game_length TEXT NOT NULL DEFAULT '',
            player_count INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS game_players (
            game_id TEXT NOT NULL,
            player_id TEXT NOT NULL,
            starting_role TEXT NOT NULL DEFAULT '',
            starting_role_type TEXT NOT NULL DEFAULT '',
            ending_role TEXT NOT NULL DEFAULT '',
            ending_role_type TEXT NOT NULL DEFAULT '',
            potential_role1 TEXT NOT NULL DEFAULT '',
            potential_role2 TEXT NOT NULL DEFAULT '',
            is_winner INTEGER NOT NULL DEFAULT 0,
            is_revealed INTEGER NOT NULL DEFAULT 0,
            created_at INTEGER NOT NULL,
            PRIMARY KEY (game_id, player_id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_game_players_player ON game_players(player_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadRoles 加载启用的角色
func (s *SQLite) LoadRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, type, ability, image_url, reveal_mode, starts_revealed
        FROM roles WHERE enabled = 1 ORDER BY sort_order, name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var g models.GormRole
		if err := rows.Scan(&g.Name, &g.Type, &g.Ability, &g.ImageURL, &g.RevealMode, &g.StartsRevealed); err != nil {
			return nil, err
		}
		roles = append(roles, g.ToRole())
	}
	return roles, rows.Err()
}

// SaveRoles upserts all roles in one transaction.
func (s *SQLite) SaveRoles(ctx context.Context, roles []models.Role) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, r := range roles {
		g := models.NewGormRole(r, i)
		_, err := tx.ExecContext(ctx, `
            INSERT INTO roles (name, type, ability, image_url, reveal_mode, starts_revealed, enabled, sort_order)
            VALUES (?, ?, ?, ?, ?, ?, 1, ?)
            ON CONFLICT (name) DO UPDATE SET
                type = excluded.type,
                ability = excluded.ability,
                image_url = excluded.image_url,
                reveal_mode = excluded.reveal_mode,
                starts_revealed = excluded.starts_revealed,
                sort_order = excluded.sort_order
        `, g.Name, g.Type, g.Ability, g.ImageURL, g.RevealMode, g.StartsRevealed, g.SortOrder)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordCompletedGame 保存游戏记录
func (s *SQLite) RecordCompletedGame(ctx context.Context, summary models.GameSummary) error {
	var started sql.NullInt64
	if !summary.StartedAt.IsZero() {
		started = sql.NullInt64{Int64: summary.StartedAt.UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO games (game_id, room_code, started_at, ended_at, game_length, player_count)
        VALUES (?, ?, ?, ?, ?, ?)
    `, summary.GameID, summary.RoomCode, started, summary.EndedAt.UnixMilli(), summary.GameLength, summary.PlayerCount)
	return err
}

// RecordPlayerOutcome 保存玩家对局结果
func (s *SQLite) RecordPlayerOutcome(ctx context.Context, o models.PlayerOutcome) error {
	recorded := o.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO game_players (game_id, player_id, starting_role, starting_role_type, ending_role,
            ending_role_type, potential_role1, potential_role2, is_winner, is_revealed, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, o.GameID, o.PlayerID, o.StartingRole, string(o.StartingRoleType), o.EndingRole,
		string(o.EndingRoleType), o.PotentialRole1, o.PotentialRole2, o.IsWinner, o.IsRevealed, recorded.UnixMilli())
	return err
}

// ListPlayerOutcomes 查询玩家历史对局
func (s *SQLite) ListPlayerOutcomes(ctx context.Context, playerID string) ([]models.PlayerOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT game_id, player_id, starting_role, starting_role_type, ending_role, ending_role_type,
            potential_role1, potential_role2, is_winner, is_revealed, created_at
        FROM game_players WHERE player_id = ? ORDER BY created_at DESC, rowid DESC
    `, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.PlayerOutcome
	for rows.Next() {
		var g models.GormGamePlayer
		var created int64
		if err := rows.Scan(&g.GameID, &g.PlayerID, &g.StartingRole, &g.StartingRoleType, &g.EndingRole,
			&g.EndingRoleType, &g.PotentialRole1, &g.PotentialRole2, &g.IsWinner, &g.IsRevealed, &created); err != nil {
			return nil, err
		}
		g.CreatedAt = time.UnixMilli(created)
		outcomes = append(outcomes, g.ToOutcome())
	}
	return outcomes, rows.Err()
}

// Close 关闭数据库连接
func (s *SQLite) Close() error {
	return s.db.Close()
}
