package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	ElevenLabs ElevenLabsConfig
	Groq       GroqConfig
	Storage    StorageConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Port            string   `envconfig:"PORT" default:"8080"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// ElevenLabsConfig holds the outbound calling provider configuration.
// WebhookSecret left empty means webhook signature verification is skipped
// entirely; do not run that way outside local development.
type ElevenLabsConfig struct {
	APIKey             string        `envconfig:"ELEVENLABS_API_KEY"`
	AgentID            string        `envconfig:"ELEVENLABS_AGENT_ID"`
	AgentPhoneNumberID string        `envconfig:"ELEVENLABS_AGENT_PHONE_NUMBER_ID"`
	FromNumber         string        `envconfig:"ELEVENLABS_FROM_NUMBER"`
	WebhookSecret      string        `envconfig:"ELEVENLABS_WEBHOOK_SECRET"`
	BaseURL            string        `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io"`
	RequestTimeout     time.Duration `envconfig:"ELEVENLABS_TIMEOUT" default:"30s"`
}

// GroqConfig holds the summarization service configuration
type GroqConfig struct {
	APIKey  string `envconfig:"GROQ_API_KEY"`
	BaseURL string `envconfig:"GROQ_API_URL" default:"https://api.groq.com"`
	Model   string `envconfig:"GROQ_MODEL" default:"llama-3.1-70b-versatile"`
}

// StorageConfig holds the local persistence configuration
type StorageConfig struct {
	DataDir string `envconfig:"DATA_DIR" default:"data"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return config, nil
}

// GetServerAddr returns the listen address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
