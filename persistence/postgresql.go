// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname, sslmode string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn(host, port, user, password, dbname, sslmode))
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS roles (
            name VARCHAR(255) PRIMARY KEY,
            type VARCHAR(64) NOT NULL,
            ability TEXT NOT NULL DEFAULT '',
            image_url TEXT NOT NULL DEFAULT '',
            reveal_mode VARCHAR(16) NOT NULL DEFAULT 'both',
            starts_revealed BOOLEAN NOT NULL DEFAULT FALSE,
            enabled BOOLEAN NOT NULL DEFAULT TRUE,
            sort_order INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS games (
            game_id VARCHAR(64) PRIMARY KEY,
            room_code VARCHAR(32) NOT NULL,
            started_at TIMESTAMPTZ,
            ended_at TIMESTAMPTZ NOT NULL,
            game_length VARCHAR(16) NOT NULL DEFAULT '',
            player_count INTEGER NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS game_players (
            game_id VARCHAR(64) NOT NULL,
            player_id VARCHAR(255) NOT NULL,
            starting_role VARCHAR(255) NOT NULL DEFAULT '',
            starting_role_type VARCHAR(64) NOT NULL DEFAULT '',
            ending_role VARCHAR(255) NOT NULL DEFAULT '',
            ending_role_type VARCHAR(64) NOT NULL DEFAULT '',
            potential_role1 VARCHAR(255) NOT NULL DEFAULT '',
            potential_role2 VARCHAR(255) NOT NULL DEFAULT '',
            is_winner BOOLEAN NOT NULL DEFAULT FALSE,
            is_revealed BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (game_id, player_id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_game_players_player ON game_players(player_id, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadRoles 加载启用的角色
func (p *PostgreSQL) LoadRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT name, type, ability, image_url, reveal_mode, starts_revealed
        FROM roles WHERE enabled ORDER BY sort_order, name
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
func (p *PostgreSQL) SaveRoles(ctx context.Context, roles []models.Role) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, r := range roles {
		g := models.NewGormRole(r, i)
		_, err := tx.ExecContext(ctx, `
            INSERT INTO roles (name, type, ability, image_url, reveal_mode, starts_revealed, enabled, sort_order)
            VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
            ON CONFLICT (name) DO UPDATE SET
                type = EXCLUDED.type,
                ability = EXCLUDED.ability,
                image_url = EXCLUDED.image_url,
                reveal_mode = EXCLUDED.reveal_mode,
                starts_revealed = EXCLUDED.starts_revealed,
                sort_order = EXCLUDED.sort_order
        `, g.Name, g.Type, g.Ability, g.ImageURL, g.RevealMode, g.StartsRevealed, g.SortOrder)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordCompletedGame 保存游戏记录
func (p *PostgreSQL) RecordCompletedGame(ctx context.Context, summary models.GameSummary) error {
	var started sql.NullTime
	if !summary.StartedAt.IsZero() {
		started = sql.NullTime{Time: summary.StartedAt, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO games (game_id, room_code, started_at, ended_at, game_length, player_count)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, summary.GameID, summary.RoomCode, started, summary.EndedAt, summary.GameLength, summary.PlayerCount)
	return err
}

// RecordPlayerOutcome 保存玩家对局结果
func (p *PostgreSQL) RecordPlayerOutcome(ctx context.Context, o models.PlayerOutcome) error {
	recorded := o.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO game_players (game_id, player_id, starting_role, starting_role_type, ending_role,
            ending_role_type, potential_role1, potential_role2, is_winner, is_revealed, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, o.GameID, o.PlayerID, o.StartingRole, string(o.StartingRoleType), o.EndingRole,
		string(o.EndingRoleType), o.PotentialRole1, o.PotentialRole2, o.IsWinner, o.IsRevealed, recorded)
	return err
}

// ListPlayerOutcomes 查询玩家历史对局
func (p *PostgreSQL) ListPlayerOutcomes(ctx context.Context, playerID string) ([]models.PlayerOutcome, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT game_id, player_id, starting_role, starting_role_type, ending_role, ending_role_type,
            potential_role1, potential_role2, is_winner, is_revealed, created_at
        FROM game_players WHERE player_id = $1 ORDER BY created_at DESC
    `, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.PlayerOutcome
	for rows.Next() {
		var g models.GormGamePlayer
		if err := rows.Scan(&g.GameID, &g.PlayerID, &g.StartingRole, &g.StartingRoleType, &g.EndingRole,
			&g.EndingRoleType, &g.PotentialRole1, &g.PotentialRole2, &g.IsWinner, &g.IsRevealed, &g.CreatedAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, g.ToOutcome())
	}
	return outcomes, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
