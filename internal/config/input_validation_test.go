package config

import (
	"strings"
	"testing"
)

func TestValidateFeatureName(t *testing.T) {
	tests := []struct {
		name    string
		feature string
		wantErr bool
	}{
		{
			name:    "simple name",
			feature: "generate_code",
			wantErr: false,
		},
		{
			name:    "name with digits",
			feature: "chat_v2",
			wantErr: false,
		},
		{
			name:    "empty name",
			feature: "",
			wantErr: true,
		},
		{
			name:    "uppercase rejected",
			feature: "GenerateCode",
			wantErr: true,
		},
		{
			name:    "leading digit rejected",
			feature: "2fast",
			wantErr: true,
		},
		{
			name:    "path separator rejected",
			feature: "../escape",
			wantErr: true,
		},
		{
			name:    "spaces rejected",
			feature: "generate code",
			wantErr: true,
		},
		{
			name:    "too long",
			feature: strings.Repeat("a", MaxFeatureNameLength+1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeatureName(tt.feature)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFeatureName(%q) error = %v, wantErr %v", tt.feature, err, tt.wantErr)
			}
		})
	}
}

func TestValidateInputsFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "json file",
			path:    "data/inputs/evalgate_inputs.json",
			wantErr: false,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
		{
			name:    "wrong extension",
			path:    "inputs.txt",
			wantErr: true,
		},
		{
			name:    "control character",
			path:    "inputs\x00.json",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputsFilePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInputsFilePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateInputs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "bad base url scheme",
			mutate: func(c *Config) {
				mc := c.Models[RoleAssistant]
				mc.BaseURL = "ftp://example.com/v1"
				c.Models[RoleAssistant] = mc
			},
			wantErr: true,
		},
		{
			name: "base url without host",
			mutate: func(c *Config) {
				mc := c.Models[RoleAssistant]
				mc.BaseURL = "https://"
				c.Models[RoleAssistant] = mc
			},
			wantErr: true,
		},
		{
			name: "model name with control chars",
			mutate: func(c *Config) {
				mc := c.Models[RoleJudge]
				mc.ModelName = "bad\x1bmodel"
				c.Models[RoleJudge] = mc
			},
			wantErr: true,
		},
		{
			name: "base url ignored for gemini provider",
			mutate: func(c *Config) {
				mc := c.Models[RoleJudge]
				mc.BaseURL = "not a url at all"
				c.Models[RoleJudge] = mc
			},
			wantErr: false,
		},
		{
			name: "oversized template",
			mutate: func(c *Config) {
				c.PromptTemplates.Comparison = strings.Repeat("x", MaxTemplateSize+1)
			},
			wantErr: true,
		},
		{
			name: "bad feature name in registry",
			mutate: func(c *Config) {
				c.Features["Bad Feature"] = c.Features["generate_code"]
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.ValidateInputs()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInputs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
