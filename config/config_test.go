package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harperreed/dealbridge/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "pat-123")
	t.Setenv("HUBSPOT_USER_ID", "555")
	t.Setenv("HUBSPOT_BASE_URL", "")
	t.Setenv("HUBSPOT_CONTRACT_OBJECT_TYPE", "")
	t.Setenv("HUBSPOT_PROJECT_OBJECT_TYPE", "2-1234")
	t.Setenv("DEALBRIDGE_CS_OWNERS", "")

	cfg := FromEnv()

	assert.Equal(t, "pat-123", cfg.HubSpotToken)
	assert.Equal(t, DefaultHubSpotBaseURL, cfg.HubSpotBaseURL)
	assert.Equal(t, DefaultContractObjectType, cfg.ContractObjectType)
	assert.Equal(t, "2-1234", cfg.ProjectObjectType)
	assert.Equal(t, RosterPath(), cfg.RosterPath)
	require.NoError(t, cfg.Validate())
}

func TestValidateMissingValues(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)

	cfg.HubSpotToken = "pat-123"
	assert.ErrorIs(t, cfg.Validate(), ErrMissingPortalID)
}

func TestParseRosterWithComments(t *testing.T) {
	data := []byte(`{
		// customer success team
		"cs_owners": [
			{"email": " ana@example.com ", "products": ["CRM-01", "ERP-02"]},
			{"email": "luis@example.com", "products": ["WEB-03"]}, // trailing comma next
		],
	}`)

	roster, err := ParseRoster(data)
	require.NoError(t, err)

	want := []models.CSOwner{
		{Email: "ana@example.com", Products: []string{"CRM-01", "ERP-02"}},
		{Email: "luis@example.com", Products: []string{"WEB-03"}},
	}
	assert.Equal(t, want, roster)
}

func TestParseRosterRequiresEmail(t *testing.T) {
	_, err := ParseRoster([]byte(`{"cs_owners": [{"products": ["CRM-01"]}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")
}

func TestLoadRosterMissingFile(t *testing.T) {
	roster, err := LoadRoster(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestLoadReadsEnvFileAndRoster(t *testing.T) {
	dir := t.TempDir()

	rosterPath := filepath.Join(dir, "owners.json")
	require.NoError(t, os.WriteFile(rosterPath, []byte(`{"cs_owners": [{"email": "ana@example.com", "products": ["CRM-01"]}]}`), 0600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("HUBSPOT_ACCESS_TOKEN=from-dotenv\nHUBSPOT_USER_ID=999\n"), 0600))

	// godotenv does not override variables that are already set.
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "")
	t.Setenv("HUBSPOT_USER_ID", "")
	os.Unsetenv("HUBSPOT_ACCESS_TOKEN")
	os.Unsetenv("HUBSPOT_USER_ID")
	t.Setenv("DEALBRIDGE_CS_OWNERS", rosterPath)

	cfg, err := Load(envPath)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.HubSpotToken)
	assert.Equal(t, "999", cfg.HubSpotPortalID)
	require.Len(t, cfg.Roster, 1)
	assert.Equal(t, "ana@example.com", cfg.Roster[0].Email)
}
