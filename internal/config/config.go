package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Upstream  UpstreamConfig
	Refresh   RefreshConfig
	SLA       SLAConfig
	Views     ViewsConfig
	Display   DisplayConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Indicator IndicatorConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	SessionCookie         string
	SessionTTLDays        int
}

// UpstreamConfig locates the ticket source.
type UpstreamConfig struct {
	URL            string
	TimeoutSeconds int
	ServiceName    string
	TargetService  string
	// TicketBaseURL overrides the link prefix advertised by the upstream.
	TicketBaseURL string
}

// RefreshConfig controls the polling loop. Zero disables periodic refresh.
type RefreshConfig struct {
	IntervalSeconds int
}

// SLAConfig holds countdown thresholds measured as time remaining.
type SLAConfig struct {
	WarningHours  int
	CriticalHours int
}

// ViewsConfig lists the dashboard views.
type ViewsConfig struct {
	Default string
	Items   []ViewConfig
	// File optionally points at a YAML file replacing Items.
	File string
}

// DisplayConfig tunes rendering.
type DisplayConfig struct {
	Timezone        string
	TimeLayout      string
	SubjectMaxRunes int
	TooltipMaxRunes int
	TotalWarning    int
	TotalCritical   int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines the service token parameters.
type AuthConfig struct {
	JWTSecret              string
	ServiceTokenTTLMinutes int
	RequireServiceToken    bool
}

// IndicatorConfig controls status light derivation.
type IndicatorConfig struct {
	// StaleIsError shows the error state while refreshes are failing.
	StaleIsError bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	psGroup, err := strconv.ParseInt(getEnv("PROFESSIONAL_SERVICES_GROUP_ID", "19000234009"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PROFESSIONAL_SERVICES_GROUP_ID: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-beacon"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			SessionCookie:         getEnv("SESSION_COOKIE", "beacon_session"),
			SessionTTLDays:        getEnvAsInt("SESSION_TTL_DAYS", 365),
		},
		Upstream: UpstreamConfig{
			URL:            getEnv("UPSTREAM_URL", "http://localhost:5000"),
			TimeoutSeconds: getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", 15),
			ServiceName:    getEnv("SERVICE_NAME", "beacon"),
			TargetService:  getEnv("UPSTREAM_SERVICE_NAME", "codex"),
			TicketBaseURL:  os.Getenv("TICKET_BASE_URL"),
		},
		Refresh: RefreshConfig{
			IntervalSeconds: getEnvAsInt("REFRESH_INTERVAL_SECONDS", 60),
		},
		SLA: SLAConfig{
			WarningHours:  getEnvAsInt("SLA_WARNING_HOURS", 12),
			CriticalHours: getEnvAsInt("SLA_CRITICAL_HOURS", 4),
		},
		Views: ViewsConfig{
			Default: getEnv("DEFAULT_VIEW", "helpdesk"),
			Items:   defaultViews(psGroup),
			File:    os.Getenv("VIEWS_FILE"),
		},
		Display: DisplayConfig{
			Timezone:        getEnv("DISPLAY_TIMEZONE", "UTC"),
			TimeLayout:      getEnv("DISPLAY_TIME_LAYOUT", "Jan 2, 2006 3:04 PM MST"),
			SubjectMaxRunes: getEnvAsInt("DISPLAY_SUBJECT_MAX", 60),
			TooltipMaxRunes: getEnvAsInt("DISPLAY_TOOLTIP_MAX", 200),
			TotalWarning:    getEnvAsInt("DISPLAY_TOTAL_WARNING", 10),
			TotalCritical:   getEnvAsInt("DISPLAY_TOTAL_CRITICAL", 20),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			ServiceTokenTTLMinutes: getEnvAsInt("AUTH_SERVICE_TOKEN_TTL_MINUTES", 5),
			RequireServiceToken:    getEnvAsBool("AUTH_REQUIRE_SERVICE_TOKEN", false),
		},
		Indicator: IndicatorConfig{
			StaleIsError: getEnvAsBool("INDICATOR_STALE_IS_ERROR", true),
		},
	}

	if cfg.Views.File != "" {
		items, err := LoadViewsFile(cfg.Views.File)
		if err != nil {
			return nil, err
		}
		cfg.Views.Items = items
	}
	if err := cfg.Views.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// SessionTTL is the lifetime of the session cookie and stored preferences.
func (a AppConfig) SessionTTL() time.Duration {
	if a.SessionTTLDays <= 0 {
		return 0
	}
	return time.Duration(a.SessionTTLDays) * 24 * time.Hour
}

// Timeout returns the per-request upstream timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return seconds(u.TimeoutSeconds)
}

// Interval returns the refresh period; zero means load once.
func (r RefreshConfig) Interval() time.Duration {
	return seconds(r.IntervalSeconds)
}

// Location resolves the display timezone, falling back to UTC.
func (d DisplayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
