package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Password      PasswordConfig
	Session       SessionConfig
	AuthRateLimit AuthRateLimitConfig
	HTTP          HTTPConfig
	Metrics       MetricsConfig
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
	Env          string `envconfig:"PLEXO_APP_ENV" default:"dev"`
	Port         string `envconfig:"PLEXO_APP_PORT" default:"8787"`
	LogLevel     string `envconfig:"PLEXO_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PLEXO_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PLEXO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"PLEXO_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"PLEXO_DB_DSN"`
	Path   string `envconfig:"PLEXO_DB_PATH" default:"plexo.db"`

	MaxOpenConns    int           `envconfig:"PLEXO_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PLEXO_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PLEXO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLEXO_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	OpenAttempts uint64        `envconfig:"PLEXO_DB_OPEN_ATTEMPTS" default:"3"`
	OpenBackoff  time.Duration `envconfig:"PLEXO_DB_OPEN_BACKOFF" default:"200ms"`
	AutoMigrate  bool          `envconfig:"PLEXO_DB_AUTO_MIGRATE" default:"true"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

func (db DBConfig) IsPostgres() bool {
	return strings.EqualFold(db.Driver, DBDriverPostgres)
}

type RedisConfig struct {
	URL          string        `envconfig:"PLEXO_REDIS_URL"`
	Address      string        `envconfig:"PLEXO_REDIS_ADDR"`
	Password     string        `envconfig:"PLEXO_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLEXO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLEXO_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"PLEXO_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"PLEXO_REDIS_DIAL_TIMEOUT" default:"2s"`
	ReadTimeout  time.Duration `envconfig:"PLEXO_REDIS_READ_TIMEOUT" default:"2s"`
	WriteTimeout time.Duration `envconfig:"PLEXO_REDIS_WRITE_TIMEOUT" default:"2s"`
	Namespace    string        `envconfig:"PLEXO_REDIS_NAMESPACE" default:"plexo"`
}

// Enabled reports whether a Redis endpoint was configured; without one the
// session identity lives in memory.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PLEXO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PLEXO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PLEXO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PLEXO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PLEXO_ARGON_KEY_LEN" default:"32"`
}

type SessionConfig struct {
	DefaultRating   float64 `envconfig:"PLEXO_SESSION_DEFAULT_RATING" default:"4.8"`
	Greeting        string  `envconfig:"PLEXO_SESSION_GREETING" default:"Hi! Is this still available?"`
	FallbackEnabled bool    `envconfig:"PLEXO_SESSION_FALLBACK_ENABLED" default:"true"`
	FallbackFile    string  `envconfig:"PLEXO_SESSION_FALLBACK_FILE"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"PLEXO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"PLEXO_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
}

type HTTPConfig struct {
	AllowedOrigins []string      `envconfig:"PLEXO_HTTP_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	MaxBodyBytes   int64         `envconfig:"PLEXO_HTTP_MAX_BODY_BYTES" default:"1048576"`
	RequestTimeout time.Duration `envconfig:"PLEXO_HTTP_REQUEST_TIMEOUT" default:"15s"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"PLEXO_METRICS_ENABLED" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	switch {
	case db.IsSQLite():
		if db.DSN != "" {
			return nil
		}
		path := strings.TrimSpace(db.Path)
		if path == "" {
			return fmt.Errorf("either %s or %s is required for the sqlite driver", EnvDBDSN, EnvDBPath)
		}
		db.DSN = fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", filepath.ToSlash(path))
		return nil
	case db.IsPostgres():
		if db.DSN == "" {
			return fmt.Errorf("%s is required for the postgres driver", EnvDBDSN)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
}
