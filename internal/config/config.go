package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreSurreal = "surreal"
	StoreMemory  = "memory"
)

// Pub/Sub drivers.
const (
	PubSubMemory = "memory"
	PubSubRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Addr    string `env:"APP_ADDR,default=:8080"`
	AppEnv  string `env:"APP_ENV,default=development"`
	Version string `env:"APP_VERSION,default=dev"`

	LogFormat string `env:"LOG_FORMAT,default=text"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`

	StoreDriver      string        `env:"STORE_DRIVER,default=surreal"`
	DBURL            string        `env:"SURREAL_URL"`
	DBNs             string        `env:"SURREAL_NS"`
	DBDb             string        `env:"SURREAL_DB"`
	DBUser           string        `env:"SURREAL_USER"`
	DBPass           string        `env:"SURREAL_PASS"`
	DBQueryTimeout   time.Duration `env:"DB_QUERY_TIMEOUT,default=5s"`
	DBExecuteTimeout time.Duration `env:"DB_EXECUTE_TIMEOUT,default=10s"`

	SessionSecret string `env:"SESSION_SECRET,required=true"`
	JWTSecret     string `env:"JWT_SECRET"`

	PubSubDriver string `env:"PUBSUB_DRIVER,default=memory"`
	RedisAddr    string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisDB      int    `env:"REDIS_DB,default=0"`

	TracingEnabled bool   `env:"TRACING_ENABLED,default=false"`
	ServiceName    string `env:"SERVICE_NAME,default=gymhub"`
	ZipkinURL      string `env:"ZIPKIN_URL,default=http://localhost:9411/api/v2/spans"`

	WSSendBuffer     int    `env:"WS_SEND_BUFFER,default=64"`
	WSAllowedOrigins string `env:"WS_ALLOWED_ORIGINS"`

	DirectoryFile  string `env:"DIRECTORY_FILE"`
	DirectoryWatch bool   `env:"DIRECTORY_WATCH,default=false"`

	RateLimitPerMin int `env:"RATE_LIMIT_PER_MIN,default=120"`
}

// Load reads an optional .env file and decodes the environment into a Config.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreSurreal:
		if c.DBURL == "" || c.DBNs == "" || c.DBDb == "" {
			return fmt.Errorf("config: SURREAL_URL, SURREAL_NS and SURREAL_DB are required when STORE_DRIVER=%s", StoreSurreal)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.PubSubDriver {
	case PubSubMemory, PubSubRedis:
	default:
		return fmt.Errorf("config: unknown PUBSUB_DRIVER %q", c.PubSubDriver)
	}

	if c.DBQueryTimeout <= 0 || c.DBExecuteTimeout <= 0 {
		return fmt.Errorf("config: DB_QUERY_TIMEOUT and DB_EXECUTE_TIMEOUT must be positive")
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("config: WS_SEND_BUFFER must be positive")
	}
	return nil
}

// AllowedOrigins splits WS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	if c.WSAllowedOrigins == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(c.WSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
