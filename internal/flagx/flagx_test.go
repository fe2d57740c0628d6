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
			args:     []string{"-d", "/data", "-x", "other"},
			allowed:  []string{"-d"},
			expected: []string{"-d", "/data"},
		},
		{
			name:     "combined value",
			args:     []string{"--data=/data", "--other=1"},
			allowed:  []string{"--data"},
			expected: []string{"--data=/data"},
		},
		{
			name:     "flag followed by another flag keeps no value",
			args:     []string{"-v", "-d", "/data"},
			allowed:  []string{"-v", "-d"},
			expected: []string{"-v", "-d", "/data"},
		},
		{
			name:     "nothing allowed",
			args:     []string{"-d", "/data"},
			allowed:  []string{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FilterArgs(tt.args, tt.allowed))
		})
	}
}
