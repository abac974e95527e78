package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFlowFile reads a single flow document. JSON is the interchange format
// external producers emit; YAML is an authoring convenience.
func LoadFlowFile(path string) (Flow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Flow{}, fmt.Errorf("error reading flow file: %w", err)
	}

	var flow Flow
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &flow); err != nil {
			return Flow{}, fmt.Errorf("error unmarshalling JSON flow %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &flow); err != nil {
			return Flow{}, fmt.Errorf("error unmarshalling YAML flow %s: %w", path, err)
		}
	default:
		return Flow{}, fmt.Errorf("unsupported flow file extension: %s", path)
	}

	if err := flow.Validate(); err != nil {
		return Flow{}, fmt.Errorf("flow file %s: %w", path, err)
	}
	return flow, nil
}

// LoadFlows reads every flow document in a directory, keyed by flow id.
func LoadFlows(dir string) (map[string]Flow, error) {
	flows := make(map[string]Flow)

	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		files, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("error reading directory: %w", err)
		}
		for _, file := range files {
			flow, err := LoadFlowFile(file)
			if err != nil {
				return nil, err
			}
			if _, exists := flows[flow.ID]; exists {
				return nil, fmt.Errorf("duplicate flow id %s in %s", flow.ID, file)
			}
			flows[flow.ID] = flow
		}
	}

	return flows, nil
}
