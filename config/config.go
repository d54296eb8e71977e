// ABOUTME: Runtime configuration for the HubSpot to ClickUp bridge
// ABOUTME: Loads settings from .env and environment variables, plus the CS owner roster file
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/harperreed/dealbridge/models"
	"github.com/joho/godotenv"
)

const (
	// AppName names the XDG data and config directories.
	AppName = "dealbridge"

	DefaultHubSpotBaseURL     = "https://api.hubapi.com"
	DefaultContractObjectType = "contracts"
	DefaultProjectObjectType  = "projects"
	DefaultLogLevel           = "info"

	// RosterFileName is the CS owner roster stored under the XDG config directory.
	RosterFileName = "cs-owners.json"
)

var (
	ErrMissingToken    = errors.New("HUBSPOT_ACCESS_TOKEN is not set")
	ErrMissingPortalID = errors.New("HUBSPOT_USER_ID is not set")
)

// Config holds everything the pipeline needs to talk to HubSpot.
type Config struct {
	HubSpotToken       string
	HubSpotBaseURL     string
	HubSpotPortalID    string
	ContractObjectType string
	ProjectObjectType  string
	LogLevel           string
	RosterPath         string

	// ClickUpWebhookSecret verifies X-Signature on incoming ClickUp webhooks when set
	ClickUpWebhookSecret string

	Roster []models.CSOwner
}

// Load reads an optional .env file, then the environment, then the roster file.
// Variables already present in the environment win over .env values.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := FromEnv()

	roster, err := LoadRoster(cfg.RosterPath)
	if err != nil {
		return nil, err
	}
	cfg.Roster = roster

	return cfg, nil
}

// FromEnv builds a config from environment variables with defaults applied.
// The roster is not loaded.
func FromEnv() *Config {
	return &Config{
		HubSpotToken:       os.Getenv("HUBSPOT_ACCESS_TOKEN"),
		HubSpotBaseURL:     getEnv("HUBSPOT_BASE_URL", DefaultHubSpotBaseURL),
		HubSpotPortalID:    os.Getenv("HUBSPOT_USER_ID"),
		ContractObjectType: getEnv("HUBSPOT_CONTRACT_OBJECT_TYPE", DefaultContractObjectType),
		ProjectObjectType:  getEnv("HUBSPOT_PROJECT_OBJECT_TYPE", DefaultProjectObjectType),
		LogLevel:           getEnv("DEALBRIDGE_LOG_LEVEL", DefaultLogLevel),
		RosterPath:         getEnv("DEALBRIDGE_CS_OWNERS", RosterPath()),

		ClickUpWebhookSecret: os.Getenv("CLICKUP_WEBHOOK_SECRET"),
	}
}

// Validate checks the settings required to call HubSpot.
func (c *Config) Validate() error {
	if c.HubSpotToken == "" {
		return ErrMissingToken
	}
	if c.HubSpotPortalID == "" {
		return ErrMissingPortalID
	}
	return nil
}

// RosterPath returns the XDG-compliant path of the CS owner roster.
func RosterPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, RosterFileName)
}

// DatabasePath returns the XDG-compliant path of the run ledger.
func DatabasePath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
