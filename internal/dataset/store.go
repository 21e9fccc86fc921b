package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evalgate/evalgate/pkg/models"
)

// SaveJSON writes v as indented JSON through a temp file + rename so a crash
// mid-write never leaves a truncated artifact.
func (m *Manager) SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	m.logger.Debug("Saved artifact", "path", path, "bytes", len(data))
	return nil
}

// LoadJSON reads any JSON artifact into v
func (m *Manager) LoadJSON(path string, v any) error {
	resolved := m.Resolve(path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", resolved, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", resolved, err)
	}
	return nil
}

// LoadDataset reads a dataset file by path
func (m *Manager) LoadDataset(path string) (*models.DatasetFile, error) {
	resolved := m.Resolve(path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", resolved, err)
	}

	var df models.DatasetFile
	if err := json.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("invalid dataset JSON in %s: %w", resolved, err)
	}
	return &df, nil
}

// SaveDataset persists a dataset under a fresh generated filename and
// returns the path.
func (m *Manager) SaveDataset(dataType, llmVersion string, df *models.DatasetFile) (string, error) {
	path := m.GenerateFilename(dataType, llmVersion)
	if err := m.SaveJSON(path, df); err != nil {
		return "", err
	}
	m.logger.Info("Dataset saved", "path", path, "results", len(df.Results))
	return path, nil
}

// LoadInputs reads an inputs file, dropping entries for other features so a
// shared inputs file can be reused across features safely.
func (m *Manager) LoadInputs(path string) ([]models.TestInput, error) {
	resolved := m.Resolve(path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs %s: %w", resolved, err)
	}

	var all []models.TestInput
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("invalid inputs JSON in %s: %w", resolved, err)
	}

	inputs := make([]models.TestInput, 0, len(all))
	for _, in := range all {
		if in.Feature != m.feature {
			m.logger.Warn("Skipping input with mismatched feature",
				"input_id", in.InputID, "feature", in.Feature)
			continue
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// SaveInputs persists a generated input set and returns the path
func (m *Manager) SaveInputs(inputs []models.TestInput) (string, error) {
	path := m.GenerateFilename(TypeMockInputs, "")
	if err := m.SaveJSON(path, inputs); err != nil {
		return "", err
	}
	m.logger.Info("Inputs saved", "path", path, "count", len(inputs))
	return path, nil
}
