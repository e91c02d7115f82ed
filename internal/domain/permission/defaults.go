package permission

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed defaults.json
var defaultsJSON []byte

// seedCatalog is the versioned seed data for the core permission set.
// It lives in defaults.json so the catalog can evolve without code edits.
type seedCatalog struct {
	Version     int              `json:"version"`
	Permissions []seedPermission `json:"permissions"`
}

type seedPermission struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Resource     string   `json:"resource"`
	Action       string   `json:"action"`
	DefaultRoles []string `json:"defaultRoles"`
}

// loadSeedCatalog parses the embedded seed data once per call site;
// callers hold on to the result for the process lifetime.
func loadSeedCatalog() (*seedCatalog, error) {
	var catalog seedCatalog
	if err := json.Unmarshal(defaultsJSON, &catalog); err != nil {
		return nil, fmt.Errorf("parse permission seed data: %w", err)
	}
	if len(catalog.Permissions) == 0 {
		return nil, fmt.Errorf("permission seed data is empty")
	}
	return &catalog, nil
}
