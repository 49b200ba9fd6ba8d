package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineValidate(t *testing.T) {
	cases := []struct {
		name     string
		pipeline Pipeline
		wantErr  string
	}{
		{
			name:     "valid",
			pipeline: Pipeline{Name: "ok", Steps: []Step{{Name: "a", Command: "true"}}},
		},
		{
			name:     "missing pipeline name",
			pipeline: Pipeline{},
			wantErr:  "no name",
		},
		{
			name:     "empty command",
			pipeline: Pipeline{Name: "p", Steps: []Step{{Name: "a"}}},
			wantErr:  "has no command",
		},
		{
			name:     "missing step name",
			pipeline: Pipeline{Name: "p", Steps: []Step{{Command: "true"}}},
			wantErr:  "has no name",
		},
		{
			name: "duplicate step names",
			pipeline: Pipeline{Name: "p", Steps: []Step{
				{Name: "a", Command: "true"},
				{Name: "a", Command: "false"},
			}},
			wantErr: "duplicate step name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pipeline.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConfigValidateRejectsDuplicatePipelines(t *testing.T) {
	cfg := &Config{Pipelines: []Pipeline{
		{Name: "check", Steps: []Step{{Name: "a", Command: "true"}}},
		{Name: "check", Steps: []Step{{Name: "b", Command: "true"}}},
	}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "duplicate pipeline")
}

func TestConfigLookup(t *testing.T) {
	cfg := &Config{Pipelines: []Pipeline{
		{Name: "check"},
		{Name: "quick"},
	}}

	p, err := cfg.Lookup("quick")
	require.NoError(t, err)
	assert.Equal(t, "quick", p.Name)

	_, err = cfg.Lookup("nightly")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	assert.Equal(t, []string{"check", "quick"}, cfg.Names())
}
