package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "pickline"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv     = "PICKLINE_APP_ENV"
	EnvPort       = "PICKLINE_APP_PORT"
	EnvDBDSN      = "PICKLINE_DB_DSN"
	EnvDBHost     = "PICKLINE_DB_HOST"
	EnvDBUser     = "PICKLINE_DB_USER"
	EnvDBName     = "PICKLINE_DB_NAME"
	EnvStorageURL = "PICKLINE_STORAGE_URL"
	EnvStorageKey = "PICKLINE_STORAGE_SERVICE_KEY"
	EnvBucket     = "PICKLINE_STORAGE_BUCKET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Storage      StorageConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PICKLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"PICKLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PICKLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PICKLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PICKLINE_DB_DSN"`
	Driver string `envconfig:"PICKLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PICKLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"PICKLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PICKLINE_DB_USER"`
	LegacyPassword string `envconfig:"PICKLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PICKLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PICKLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PICKLINE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PICKLINE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PICKLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PICKLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// StorageConfig points at the external blob store holding product images.
type StorageConfig struct {
	BaseURL     string        `envconfig:"PICKLINE_STORAGE_URL" required:"true"`
	ServiceKey  string        `envconfig:"PICKLINE_STORAGE_SERVICE_KEY" required:"true"`
	Bucket      string        `envconfig:"PICKLINE_STORAGE_BUCKET" required:"true"`
	HTTPTimeout time.Duration `envconfig:"PICKLINE_STORAGE_HTTP_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PICKLINE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
