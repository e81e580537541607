package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-a", "http://api", "-x", "1"},
			allowed: []string{"-a"},
			want:    []string{"-a", "http://api"},
		},
		{
			name:    "equals form",
			args:    []string{"-a=http://api", "-s", "db"},
			allowed: []string{"-a"},
			want:    []string{"-a=http://api"},
		},
		{
			name:    "flag without value followed by another flag",
			args:    []string{"-a", "-s", "db"},
			allowed: []string{"-a", "-s"},
			want:    []string{"-a", "-s", "db"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-q", "1", "positional", "--y=2"},
			allowed: []string{"-a"},
			want:    []string{},
		},
		{
			name:    "order preserved",
			args:    []string{"-s=one", "-a", "two"},
			allowed: []string{"-a", "-s"},
			want:    []string{"-s=one", "-a", "two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, "conf.json", ConfigFile([]string{"-a", "x", "-c", "conf.json"}))
	assert.Equal(t, "alt.json", ConfigFile([]string{"-config=alt.json"}))
	assert.Equal(t, "", ConfigFile([]string{"-a", "x"}))
	assert.Equal(t, "", ConfigFile(nil))
}
