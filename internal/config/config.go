package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Gateway   GatewayConfig
	Simulator SimulatorConfig
}

// ServerConfig holds the status server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds the state store configuration
type DatabaseConfig struct {
	Driver     string
	SqlitePath string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
}

// URL returns the postgres connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds the optional shared token store configuration
type RedisConfig struct {
	Enabled            bool
	URL                string
	Password           string
	TokenEncryptionKey string
}

// AuthConfig holds the authentication service configuration and the two
// client identities the simulator runs under
type AuthConfig struct {
	URL                 string
	ServiceClientID     string
	ServiceClientSecret string
	POSClientID         string
	POSClientSecret     string
}

// GatewayConfig holds the transaction backend configuration
type GatewayConfig struct {
	URL        string
	AppVersion string
}

// SimulatorConfig holds runtime-wide simulator settings
type SimulatorConfig struct {
	RosterPath string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			SqlitePath: getEnv("DB_SQLITE_PATH", "merchant-sim.db"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "merchantsim"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:            getEnvAsBool("REDIS_ENABLED", false),
			URL:                getEnv("REDIS_URL", "redis://localhost:6379"),
			Password:           getEnv("REDIS_PASSWORD", ""),
			TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", "0000000000000000000000000000000000000000000000000000000000000000"), // 32-bytes hex string
		},
		Auth: AuthConfig{
			URL:                 getEnv("AUTH_URL", "http://localhost:9000"),
			ServiceClientID:     getEnv("AUTH_SERVICE_CLIENT_ID", "sim-service"),
			ServiceClientSecret: getEnv("AUTH_SERVICE_CLIENT_SECRET", ""),
			POSClientID:         getEnv("AUTH_POS_CLIENT_ID", "sim-pos"),
			POSClientSecret:     getEnv("AUTH_POS_CLIENT_SECRET", ""),
		},
		Gateway: GatewayConfig{
			URL:        getEnv("GATEWAY_URL", "http://localhost:9100"),
			AppVersion: getEnv("GATEWAY_APP_VERSION", "merchant-sim/1.0"),
		},
		Simulator: SimulatorConfig{
			RosterPath: getEnv("SIM_ROSTER_PATH", "roster.yaml"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
