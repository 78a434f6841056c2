package config

import (
	"os"
	"testing"
)

// TestExpandString tests the expandString function with various scenarios
func TestExpandString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			envVars:  map[string]string{},
			expected: "",
		},
		{
			name:     "string without placeholders",
			input:    "data/piiguard.db",
			envVars:  map[string]string{},
			expected: "data/piiguard.db",
		},
		{
			name:     "simple variable expansion",
			input:    "${SQLITE_PATH}",
			envVars:  map[string]string{"SQLITE_PATH": "/tmp/pii.db"},
			expected: "/tmp/pii.db",
		},
		{
			name:     "variable in middle of string",
			input:    "prefix-${SQLITE_PATH}-suffix",
			envVars:  map[string]string{"SQLITE_PATH": "db"},
			expected: "prefix-db-suffix",
		},
		{
			name:     "multiple variables",
			input:    "${SCHEME}://${HOST}:${PORT}",
			envVars:  map[string]string{"SCHEME": "redis", "HOST": "cache.internal", "PORT": "6379"},
			expected: "redis://cache.internal:6379",
		},
		{
			name:     "variable with default value - env var exists",
			input:    "${LOG_LEVEL:-info}",
			envVars:  map[string]string{"LOG_LEVEL": "debug"},
			expected: "debug",
		},
		{
			name:     "variable with default value - env var missing",
			input:    "${LOG_LEVEL:-info}",
			envVars:  map[string]string{},
			expected: "info",
		},
		{
			name:     "variable with default value - env var empty",
			input:    "${LOG_LEVEL:-info}",
			envVars:  map[string]string{"LOG_LEVEL": ""},
			expected: "info",
		},
		{
			name:     "unresolved variable - no default",
			input:    "${MISSING_VAR}",
			envVars:  map[string]string{},
			expected: "${MISSING_VAR}",
		},
		{
			name:     "partially resolved string",
			input:    "${RESOLVED}-${UNRESOLVED}",
			envVars:  map[string]string{"RESOLVED": "value1"},
			expected: "value1-${UNRESOLVED}",
		},
		{
			name:     "mixed resolved and unresolved with defaults",
			input:    "${RESOLVED}:${UNRESOLVED:-fallback}:${MISSING}",
			envVars:  map[string]string{"RESOLVED": "value1"},
			expected: "value1:fallback:${MISSING}",
		},
		{
			name:     "default value with special characters",
			input:    "${INBOX:-/var/lib/piiguard/inbox}",
			envVars:  map[string]string{},
			expected: "/var/lib/piiguard/inbox",
		},
		{
			name:     "default value with colon in it",
			input:    "${URL:-http://localhost:8080}",
			envVars:  map[string]string{},
			expected: "http://localhost:8080",
		},
		{
			name:     "complex real-world example",
			input:    "${REDIS_HOST:-localhost}:6379/0",
			envVars:  map[string]string{},
			expected: "localhost:6379/0",
		},
		{
			name:     "environment variable set to empty string (no default)",
			input:    "${EMPTY_VAR}",
			envVars:  map[string]string{"EMPTY_VAR": ""},
			expected: "${EMPTY_VAR}",
		},
		{
			name:     "empty default value - env var missing",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{},
			expected: "",
		},
		{
			name:     "empty default value - env var set",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{"OPTIONAL_VAR": "actual-value"},
			expected: "actual-value",
		},
		{
			name:     "empty default value - env var empty",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{"OPTIONAL_VAR": ""},
			expected: "",
		},
		{
			name:     "master key pattern - not set should be empty",
			input:    "${PIIGUARD_MASTER_KEY:-}",
			envVars:  map[string]string{},
			expected: "",
		},
		{
			name:     "master key pattern - set to value",
			input:    "${PIIGUARD_MASTER_KEY:-}",
			envVars:  map[string]string{"PIIGUARD_MASTER_KEY": "secret-key"},
			expected: "secret-key",
		},
		{
			name:     "multiple placeholders some resolved some not",
			input:    "prefix-${VAR1}-${VAR2}-${VAR3}-suffix",
			envVars:  map[string]string{"VAR1": "a", "VAR3": "c"},
			expected: "prefix-a-${VAR2}-c-suffix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				_ = os.Setenv(k, v)
			}
			defer func() {
				for k := range tt.envVars {
					_ = os.Unsetenv(k)
				}
			}()

			result := expandString(tt.input)
			if result != tt.expected {
				t.Errorf("expandString(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

