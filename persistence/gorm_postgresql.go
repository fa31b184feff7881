// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Sforrego/mtgkingdoms-backend/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname, sslmode string) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn(host, port, user, password, dbname, sslmode)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormRole{},
		&models.GormGame{},
		&models.GormGamePlayer{},
	)
}

// LoadRoles 加载启用的角色
func (p *GormPostgreSQL) LoadRoles(ctx context.Context) ([]models.Role, error) {
	var rows []models.GormRole
	if err := p.db.WithContext(ctx).Where("enabled = ?", true).Order("sort_order, name").Find(&rows).Error; err != nil {
		return nil, err
	}
	roles := make([]models.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.ToRole())
	}
	return roles, nil
}

// SaveRoles upserts all roles in one transaction.
func (p *GormPostgreSQL) SaveRoles(ctx context.Context, roles []models.Role) error {
	return p.Transaction(ctx, func(tx *gorm.DB) error {
		for i, r := range roles {
			row := models.NewGormRole(r, i)
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordCompletedGame 保存游戏记录
func (p *GormPostgreSQL) RecordCompletedGame(ctx context.Context, summary models.GameSummary) error {
	game := models.NewGormGame(summary)
	return p.db.WithContext(ctx).Create(&game).Error
}

// RecordPlayerOutcome 保存玩家对局结果
func (p *GormPostgreSQL) RecordPlayerOutcome(ctx context.Context, outcome models.PlayerOutcome) error {
	row := models.NewGormGamePlayer(outcome)
	return p.db.WithContext(ctx).Create(&row).Error
}

// ListPlayerOutcomes 查询玩家历史对局
func (p *GormPostgreSQL) ListPlayerOutcomes(ctx context.Context, playerID string) ([]models.PlayerOutcome, error) {
	var rows []models.GormGamePlayer
	if err := p.db.WithContext(ctx).Where("player_id = ?", playerID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	outcomes := make([]models.PlayerOutcome, 0, len(rows))
	for _, row := range rows {
		outcomes = append(outcomes, row.ToOutcome())
	}
	return outcomes, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// 添加事务支持
func (p *GormPostgreSQL) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.db.WithContext(ctx).Transaction(fn)
}
