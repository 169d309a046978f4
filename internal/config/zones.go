package config

import (
	"encoding/json"
	"fmt"
	"os"

	"junction-worker-go/internal/zones"
)

// LoadZones reads zone definitions from a JSON file. The definitions are
// validated later, when the pipeline builds its zone manager.
func LoadZones(path string) ([]zones.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zones file: %w", err)
	}

	var defs []zones.Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse zones file %s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("zones file %s: %w", path, zones.ErrNoZones)
	}
	return defs, nil
}
