package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is the top-level config file structure (~/.mvrodados/config.json).
type AppConfig struct {
	DB     Config       `json:"db"`
	AI     AIConfig     `json:"ai"`
	Server ServerConfig `json:"server"`
	Log    LogConfig    `json:"log"`
}

// ServerConfig holds the HTTP API and chat settings.
type ServerConfig struct {
	Port              int    `json:"port"`
	SessionTTLMinutes int    `json:"session_ttl_minutes"`
	RedisURL          string `json:"redis_url,omitempty"`
	DocumentsDir      string `json:"documents_dir,omitempty"`
	WebSearchMode     string `json:"web_search_mode"` // "scrape" or "simulate"
	WebSearchURL      string `json:"web_search_url"`
	ShowSQL           bool   `json:"show_sql"`
}

// LogConfig selects the zap preset and an optional file sink.
type LogConfig struct {
	Mode string `json:"mode"` // "dev" or "prod"
	File string `json:"file,omitempty"`
}

// SessionTTL returns how long an idle conversation is kept in memory.
func (s ServerConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

// DefaultAppConfig returns the full default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		DB: DefaultDBConfig(),
		AI: DefaultAIConfig(),
		Server: ServerConfig{
			Port:              3001,
			SessionTTLMinutes: 60,
			WebSearchMode:     "scrape",
			WebSearchURL:      "https://listado.mercadolibre.com.ar",
		},
		Log: LogConfig{Mode: "dev"},
	}
}

// ConfigPath returns the JSON config location, honouring MVRODADOS_CONFIG.
func ConfigPath() (string, error) {
	if p := os.Getenv("MVRODADOS_CONFIG"); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".mvrodados", "config.json"), nil
}

// Load builds the configuration: .env file, then the JSON file, then
// environment variables. A missing .env or JSON file is not an error.
// The returned bool reports whether a .env file was loaded.
func Load() (*AppConfig, bool, error) {
	dotenv := godotenv.Load() == nil

	cfg := DefaultAppConfig()
	path, err := ConfigPath()
	if err == nil {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, dotenv, err
			}
		case !os.IsNotExist(err):
			return nil, dotenv, err
		}
	}

	applyEnv(cfg)
	return cfg, dotenv, nil
}

// SaveAppConfig writes the config to its JSON location.
func SaveAppConfig(cfg *AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func applyEnv(cfg *AppConfig) {
	db := &cfg.DB
	db.Driver = getEnv("DB_DRIVER", db.Driver)
	db.Host = getEnv("DB_SERVER", getEnv("DB_HOST", db.Host))
	db.Port = getEnvInt("DB_PORT", db.Port)
	db.User = getEnv("DB_USER", db.User)
	db.Password = getEnv("DB_PASSWORD", db.Password)
	db.Database = getEnv("DB_NAME", db.Database)
	db.Encrypt = getEnvBool("DB_ENCRYPT", db.Encrypt)
	db.SSLMode = getEnv("DB_SSLMODE", db.SSLMode)
	db.Path = getEnv("DB_PATH", db.Path)
	db.PoolMax = getEnvInt("DB_POOL_MAX", db.PoolMax)
	db.PoolMinIdle = getEnvInt("DB_POOL_MIN", db.PoolMinIdle)
	db.IdleTimeoutMS = getEnvInt("DB_POOL_IDLE_MS", db.IdleTimeoutMS)
	db.ConnectTimeoutMS = getEnvInt("DB_CONNECT_TIMEOUT_MS", db.ConnectTimeoutMS)
	db.RequestTimeoutMS = getEnvInt("DB_REQUEST_TIMEOUT_MS", db.RequestTimeoutMS)

	db.SSH.Enabled = getEnvBool("SSH_ENABLED", db.SSH.Enabled)
	db.SSH.Host = getEnv("SSH_HOST", db.SSH.Host)
	db.SSH.Port = getEnvInt("SSH_PORT", db.SSH.Port)
	db.SSH.User = getEnv("SSH_USER", db.SSH.User)
	db.SSH.KeyPath = getEnv("SSH_KEY", db.SSH.KeyPath)
	db.SSH.KeyPassphrase = getEnv("SSH_KEY_PASSPHRASE", db.SSH.KeyPassphrase)
	db.SSH.KnownHostsPath = getEnv("SSH_KNOWN_HOSTS", db.SSH.KnownHostsPath)

	ai := &cfg.AI
	ai.Provider = getEnv("AI_PROVIDER", ai.Provider)
	ai.Groq.APIKey = getEnv("GROQ_API_KEY", ai.Groq.APIKey)
	ai.Groq.Model = getEnv("GROQ_MODEL", ai.Groq.Model)
	ai.OpenAI.APIKey = getEnv("OPENAI_API_KEY", ai.OpenAI.APIKey)
	ai.Ollama.Host = getEnv("OLLAMA_HOST", ai.Ollama.Host)

	srv := &cfg.Server
	srv.Port = getEnvInt("PORT", srv.Port)
	srv.SessionTTLMinutes = getEnvInt("SESSION_TTL", srv.SessionTTLMinutes)
	srv.RedisURL = getEnv("REDIS_URL", srv.RedisURL)
	srv.DocumentsDir = getEnv("DOCUMENTS_DIR", srv.DocumentsDir)
	srv.WebSearchMode = getEnv("WEB_SEARCH_MODE", srv.WebSearchMode)
	srv.WebSearchURL = getEnv("WEB_SEARCH_URL", srv.WebSearchURL)
	srv.ShowSQL = getEnvBool("SHOW_SQL", srv.ShowSQL)

	cfg.Log.Mode = getEnv("LOG_MODE", cfg.Log.Mode)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultVal
	}
}
