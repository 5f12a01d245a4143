package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// App holds every setting the booking service reads from the environment.
type App struct {
	Port string `envconfig:"PORT" default:"8083"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// Empty disables Redis; rate limits then live in process memory.
	RedisURL string `envconfig:"REDIS_URL"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Each entry is "<limit>-<period>", e.g. "50-1h".
	RateLimits         []string `envconfig:"RATE_LIMITS" default:"200-24h,50-1h"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Extra limit on creating bookings, same format. Empty disables it.
	CreateRateLimit string `envconfig:"CREATE_RATE_LIMIT" default:"20-1m"`

	LogDir        string `envconfig:"LOG_DIR" default:"logs"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"10"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"30"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// LoadEnv loads a .env file into the process environment if one exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		logrus.Warnf("Error loading .env file: %v", err)
	}
}

// Load reads App from the environment.
func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
