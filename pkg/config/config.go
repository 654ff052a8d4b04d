package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOCKFORGE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "STOCKFORGE_APP_ENV"
	EnvDBDSN  = "STOCKFORGE_DB_DSN"
	EnvDBHost = "STOCKFORGE_DB_HOST"
	EnvDBUser = "STOCKFORGE_DB_USER"
	EnvDBName = "STOCKFORGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Costing      CostingConfig
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
	Env          string `envconfig:"STOCKFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKFORGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKFORGE_LOG_WARN_STACK" default:"false"`

	// CORSOrigins lists extra browser origins allowed besides localhost.
	CORSOrigins []string `envconfig:"STOCKFORGE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKFORGE_DB_DSN"`
	Driver string `envconfig:"STOCKFORGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKFORGE_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKFORGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKFORGE_DB_USER"`
	LegacyPassword string `envconfig:"STOCKFORGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKFORGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKFORGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKFORGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKFORGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	// URL is optional; when empty the idempotency middleware is disabled.
	URL          string        `envconfig:"STOCKFORGE_REDIS_URL"`
	Password     string        `envconfig:"STOCKFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CostingConfig struct {
	// DefaultStrategy is used when an estimate request omits one.
	DefaultStrategy string `envconfig:"STOCKFORGE_COSTING_DEFAULT_STRATEGY" default:"average"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKFORGE_AUTO_MIGRATE" default:"false"`
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
