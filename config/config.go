package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Roles    []RoleConfig   `mapstructure:"roles"`
}

type ServerConfig struct {
	HTTPAddress       string        `mapstructure:"http_address"`
	RPCAddress        string        `mapstructure:"rpc_address"`
	MetricsAddress    string        `mapstructure:"metrics_address"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver selects the store implementation: gorm, postgres or sqlite.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type GameConfig struct {
	// DefaultRoomCode names a room that always exists. Empty disables it.
	DefaultRoomCode        string        `mapstructure:"default_room_code"`
	PersistTimeout         time.Duration `mapstructure:"persist_timeout"`
	RoomIdleTTL            time.Duration `mapstructure:"room_idle_ttl"`
	AllowRoleChoiceDefault bool          `mapstructure:"allow_role_choice_default"`
}

// RoleConfig seeds the role table when the store has no roles yet.
type RoleConfig struct {
	Name           string `mapstructure:"name"`
	Type           string `mapstructure:"type"`
	Ability        string `mapstructure:"ability"`
	Image          string `mapstructure:"image"`
	RevealMode     string `mapstructure:"reveal_mode"`
	StartsRevealed bool   `mapstructure:"starts_revealed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":9998")
	v.SetDefault("server.rpc_address", ":9997")
	v.SetDefault("server.metrics_address", ":9996")
	v.SetDefault("server.heartbeat_interval", 30*time.Second)

	v.SetDefault("database.driver", "gorm")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.sqlite.path", "mtgkingdoms.db")

	v.SetDefault("game.default_room_code", "690420")
	v.SetDefault("game.persist_timeout", 5*time.Second)
	v.SetDefault("game.room_idle_ttl", 30*time.Minute)
	v.SetDefault("game.allow_role_choice_default", true)
}

func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
