// ABOUTME: CS owner roster loading from a JSON-with-comments file
// ABOUTME: Each entry maps a customer success owner email to the SKUs they specialise in
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/harperreed/dealbridge/models"
	"github.com/tailscale/hujson"
)

type rosterFile struct {
	CSOwners []models.CSOwner `json:"cs_owners"`
}

// LoadRoster reads the roster at path. A missing file yields an empty roster so
// commands that never pick owners still work.
func LoadRoster(path string) ([]models.CSOwner, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}

	roster, err := ParseRoster(data)
	if err != nil {
		return nil, fmt.Errorf("invalid roster %s: %w", path, err)
	}
	return roster, nil
}

// ParseRoster decodes roster JSON, allowing comments and trailing commas.
func ParseRoster(data []byte) ([]models.CSOwner, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var file rosterFile
	if err := json.Unmarshal(standardized, &file); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	for i, owner := range file.CSOwners {
		email := strings.TrimSpace(owner.Email)
		if email == "" {
			return nil, fmt.Errorf("cs_owners[%d]: email is required", i)
		}
		file.CSOwners[i].Email = email
	}

	return file.CSOwners, nil
}
