// Package config provides configuration for the chat service.
// Source priority (highest to lowest): environment variables, the YAML file
// named by MCPCHAT_CONFIG (or ./mcpchat.yaml if present), built-in defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	DataDir      string
	StoreBackend string // "file" or "sqlite"
	DatabaseURL  string

	// LLM provider
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// RollbackUserTurnOnError removes the just-persisted user message when
	// the provider call fails. Default false: the unanswered user turn stays
	// in the history.
	RollbackUserTurnOnError bool

	// Logging
	LogLevel string
}

// fileConfig mirrors the YAML layout.
type fileConfig struct {
	HTTPPort                int    `yaml:"http_port"`
	DataDir                 string `yaml:"data_dir"`
	StoreBackend            string `yaml:"store_backend"`
	DatabaseURL             string `yaml:"database_url"`
	LLMBaseURL              string `yaml:"llm_base_url"`
	LLMAPIKey               string `yaml:"llm_api_key"`
	LLMModel                string `yaml:"llm_model"`
	LLMTimeoutMs            int    `yaml:"llm_timeout_ms"`
	RollbackUserTurnOnError *bool  `yaml:"rollback_user_turn_on_error"`
	LogLevel                string `yaml:"log_level"`
}

// Load loads configuration from the YAML file (if any) and environment
// variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:     8080,
		DataDir:      "./data",
		StoreBackend: "file",
		DatabaseURL:  "file:mcpchat.db?cache=shared&mode=rwc",
		LLMBaseURL:   "https://api.openai.com",
		LLMModel:     "gpt-4o-mini",
		LLMTimeout:   120 * time.Second,
		LogLevel:     "info",
	}

	cfg.applyFile(configFilePath())
	cfg.applyEnv()
	return cfg
}

func configFilePath() string {
	if path := os.Getenv("MCPCHAT_CONFIG"); path != "" {
		return path
	}
	return "mcpchat.yaml"
}

func (c *Config) applyFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: failed to read config file %s: %v", path, err)
		}
		return
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		log.Printf("WARN: failed to parse config file %s: %v", path, err)
		return
	}

	if fc.HTTPPort != 0 {
		c.HTTPPort = fc.HTTPPort
	}
	if fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}
	if fc.StoreBackend != "" {
		c.StoreBackend = fc.StoreBackend
	}
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.LLMBaseURL != "" {
		c.LLMBaseURL = fc.LLMBaseURL
	}
	if fc.LLMAPIKey != "" {
		c.LLMAPIKey = fc.LLMAPIKey
	}
	if fc.LLMModel != "" {
		c.LLMModel = fc.LLMModel
	}
	if fc.LLMTimeoutMs != 0 {
		c.LLMTimeout = time.Duration(fc.LLMTimeoutMs) * time.Millisecond
	}
	if fc.RollbackUserTurnOnError != nil {
		c.RollbackUserTurnOnError = *fc.RollbackUserTurnOnError
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.LLMAPIKey = getEnv("LLM_API_KEY", c.LLMAPIKey)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	if ms := getEnvInt("LLM_TIMEOUT_MS", 0); ms != 0 {
		c.LLMTimeout = time.Duration(ms) * time.Millisecond
	}
	c.RollbackUserTurnOnError = getEnvBool("ROLLBACK_USER_TURN_ON_ERROR", c.RollbackUserTurnOnError)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
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
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}
