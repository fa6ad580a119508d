package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerCommands(t *testing.T) {
	tests := []struct {
		name string
		use  string
	}{
		{"start", "start"},
		{"list", "list"},
		{"run", "run [job_name]"},
		{"status", "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, err := schedulerCmd.Find([]string{tt.name})
			require.NoError(t, err)
			assert.Equal(t, tt.use, cmd.Use)
			assert.NotNil(t, cmd.RunE)
		})
	}

	t.Run("run needs a job name", func(t *testing.T) {
		assert.Error(t, schedulerRunCmd.Args(schedulerRunCmd, nil))
		assert.NoError(t, schedulerRunCmd.Args(schedulerRunCmd, []string{"nightly_presets"}))
	})
}
