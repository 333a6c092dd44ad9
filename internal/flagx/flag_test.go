package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		allowed  []string
		expected []string
	}{
		{
			name:     "separate value",
			args:     []string{"-a", "http://localhost:8000", "-x", "junk"},
			allowed:  []string{"-a"},
			expected: []string{"-a", "http://localhost:8000"},
		},
		{
			name:     "equals form",
			args:     []string{"--config=conf.json", "-i", "5"},
			allowed:  []string{"--config"},
			expected: []string{"--config=conf.json"},
		},
		{
			name:     "nothing allowed",
			args:     []string{"-x", "1"},
			allowed:  []string{"-a"},
			expected: []string{},
		},
		{
			name:     "flag followed by another flag keeps no value",
			args:     []string{"-a", "-i", "5"},
			allowed:  []string{"-a"},
			expected: []string{"-a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FilterArgs(tt.args, tt.allowed))
		})
	}
}
