package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carehome-go/internal/rules"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadRules_Defaults(t *testing.T) {
	cfg, err := LoadRules("", "Europe/Dublin")
	require.NoError(t, err)

	want := rules.DefaultConfig()
	want.Timezone = "Europe/Dublin"
	assert.Equal(t, want, cfg)
}

func TestLoadRules_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, path, `
food:
  enabled: true
  cutoff_hour: 13
medication:
  enabled: true
  due_soon_minutes: 30
  overdue_after_minutes: 10
  lookback_hours: 6
`)

	cfg, err := LoadRules(path, "")
	require.NoError(t, err)
	assert.Equal(t, 13, cfg.Food.CutoffHour)
	assert.Equal(t, 30, cfg.Medication.DueSoonMinutes)
	assert.Equal(t, 10, cfg.Medication.OverdueAfterMinutes)
	assert.Equal(t, rules.DefaultConfig().Fluid, cfg.Fluid)
	assert.Equal(t, rules.DefaultConfig().Night, cfg.Night)
}

func TestLoadRules_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRules(filepath.Join(dir, "missing.yaml"), "")
	assert.ErrorContains(t, err, "read rules file")

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "food: [unclosed")
	_, err = LoadRules(bad, "")
	assert.ErrorContains(t, err, "parse rules file")

	invalid := filepath.Join(dir, "invalid.yaml")
	writeFile(t, invalid, "food:\n  cutoff_hour: 30\n")
	_, err = LoadRules(invalid, "")
	assert.ErrorContains(t, err, "invalid rules file")
}

func TestWatchRules_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, path, "food:\n  enabled: true\n  cutoff_hour: 12\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cutoff atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = WatchRules(ctx, path, "", zap.NewNop(), func(cfg rules.Config) {
			cutoff.Store(int64(cfg.Food.CutoffHour))
		})
	}()

	require.Eventually(t, func() bool {
		writeFile(t, path, "food:\n  enabled: true\n  cutoff_hour: 14\n")
		return cutoff.Load() == 14
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	<-done
}

func TestWatchRules_ReloadsOnRenameSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeFile(t, path, "food:\n  enabled: true\n  cutoff_hour: 12\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cutoff atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = WatchRules(ctx, path, "", zap.NewNop(), func(cfg rules.Config) {
			cutoff.Store(int64(cfg.Food.CutoffHour))
		})
	}()

	save := func(hour int) {
		tmp := filepath.Join(dir, ".rules.yaml.swp")
		writeFile(t, tmp, fmt.Sprintf("food:\n  enabled: true\n  cutoff_hour: %d\n", hour))
		require.NoError(t, os.Rename(tmp, path))
	}

	require.Eventually(t, func() bool {
		save(13)
		return cutoff.Load() == 13
	}, 5*time.Second, 100*time.Millisecond)

	// A second rename must still be seen after the first replaced the file.
	require.Eventually(t, func() bool {
		save(15)
		return cutoff.Load() == 15
	}, 5*time.Second, 100*time.Millisecond)

	require.Eventually(t, func() bool {
		writeFile(t, path, "food:\n  enabled: true\n  cutoff_hour: 16\n")
		return cutoff.Load() == 16
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	<-done
}

func TestWatchRules_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeFile(t, path, "food:\n  enabled: true\n  cutoff_hour: 12\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cutoff atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = WatchRules(ctx, path, "", zap.NewNop(), func(cfg rules.Config) {
			cutoff.Store(int64(cfg.Food.CutoffHour))
		})
	}()

	// Wait for the watch to be live before touching the sibling.
	require.Eventually(t, func() bool {
		writeFile(t, path, "food:\n  enabled: true\n  cutoff_hour: 13\n")
		return cutoff.Load() == 13
	}, 5*time.Second, 100*time.Millisecond)

	// The sibling would load cleanly if it were mistaken for the rules file.
	writeFile(t, filepath.Join(dir, "other.yaml"), "food:\n  enabled: true\n  cutoff_hour: 9\n")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int64(13), cutoff.Load())

	cancel()
	<-done
}
