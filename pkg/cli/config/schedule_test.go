package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/schedops/ediscope/pkg/cli/config"
	"github.com/schedops/ediscope/pkg/domain/model"
)

func TestScheduleConfigure(t *testing.T) {
	t.Run("defaults when nothing is set", func(t *testing.T) {
		var cfg config.Schedule
		policy, err := cfg.Configure()
		gt.NoError(t, err)
		gt.Equal(t, policy, model.DefaultPolicy())
	})

	t.Run("flags override policy file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yml")
		gt.NoError(t, os.WriteFile(path, []byte("sheet_name: Plan\nwindow_weeks: 4\n"), 0o600))

		cfg := config.Schedule{PolicyPath: path, SheetName: "Forecast"}
		policy, err := cfg.Configure()
		gt.NoError(t, err)
		gt.Equal(t, policy.SheetName, "Forecast")
		gt.Equal(t, policy.WindowWeeks, 4)
		gt.Equal(t, policy.PartHeader, model.DefaultPartHeader)
	})

	t.Run("rejects unreadable policy file", func(t *testing.T) {
		cfg := config.Schedule{PolicyPath: filepath.Join(t.TempDir(), "missing.yml")}
		_, err := cfg.Configure()
		gt.Error(t, err)
	})

	t.Run("rejects malformed YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yml")
		gt.NoError(t, os.WriteFile(path, []byte("sheet_name: [unclosed"), 0o600))

		cfg := config.Schedule{PolicyPath: path}
		_, err := cfg.Configure()
		gt.Error(t, err)
	})
}
