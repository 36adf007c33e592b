package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/yukikurage/taskmaster/internal/constants"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBDriver        string        `yaml:"db_driver"`
	DBPath          string        `yaml:"db_path"`
	DBHost          string        `yaml:"db_host"`
	DBPort          string        `yaml:"db_port"`
	DBUser          string        `yaml:"db_user"`
	DBPassword      string        `yaml:"db_password"`
	DBName          string        `yaml:"db_name"`
	SessionStore    string        `yaml:"session_store"`
	RedisHost       string        `yaml:"redis_host"`
	RedisPort       string        `yaml:"redis_port"`
	CacheEnabled    bool          `yaml:"cache_enabled"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	SessionSecret   string        `yaml:"session_secret"`
	JWTSecret       string        `yaml:"jwt_secret"`
	JWTTTL          time.Duration `yaml:"jwt_ttl"`
	GinMode         string        `yaml:"gin_mode"`
	Port            string        `yaml:"port"`
	PerPage         int           `yaml:"per_page"`
	Timezone        string        `yaml:"timezone"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DBDriver:        "sqlite",
		DBPath:          "instance/taskmaster.sqlite",
		DBHost:          "localhost",
		DBPort:          "3306",
		DBUser:          "taskuser",
		DBPassword:      "taskpassword",
		DBName:          "taskmaster",
		SessionStore:    "cookie",
		RedisHost:       "localhost",
		RedisPort:       "6379",
		CacheTTL:        constants.DefaultCacheTTL,
		SessionSecret:   "default-secret-key-change-me",
		JWTSecret:       "default-jwt-secret-change-me",
		JWTTTL:          constants.DefaultTokenTTL,
		GinMode:         "debug",
		Port:            "8080",
		PerPage:         constants.DefaultPageSize,
		Timezone:        "UTC",
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load reads configuration from the environment on top of the defaults.
func Load() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML file over the defaults, then applies the environment.
// An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SessionStore {
	case "cookie", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	if c.PerPage < 1 || c.PerPage > constants.MaxPageSize {
		return fmt.Errorf("PER_PAGE must be between 1 and %d", constants.MaxPageSize)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the zone due dates without an explicit offset are read in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func applyEnv(cfg *Config) {
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.SessionStore = getEnv("SESSION_STORE", cfg.SessionStore)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.CacheEnabled = getEnvBool("CACHE_ENABLED", cfg.CacheEnabled)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTTTL = getEnvDuration("JWT_TTL", cfg.JWTTTL)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.PerPage = getEnvInt("PER_PAGE", cfg.PerPage)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
