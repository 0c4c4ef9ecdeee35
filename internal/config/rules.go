package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"carehome-go/internal/rules"
)

// LoadRules reads rule thresholds from path. Keys missing from the file keep
// their defaults. An empty path yields the defaults.
func LoadRules(path, timezone string) (rules.Config, error) {
	cfg := rules.DefaultConfig()
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules.Config{}, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return rules.Config{}, fmt.Errorf("parse rules file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return rules.Config{}, fmt.Errorf("invalid rules file: %w", err)
	}
	return cfg, nil
}

// WatchRules reloads path whenever it is written and passes the result to
// onChange. A file that fails to load is logged and the previous thresholds
// stay in effect. Runs until ctx is cancelled.
func WatchRules(ctx context.Context, path, timezone string, log *zap.Logger, onChange func(rules.Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// The directory is watched so rename-over saves keep being seen.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	log.Info("Watching rules file", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadRules(path, timezone)
			if err != nil {
				log.Error("Rules reload failed, keeping previous thresholds",
					zap.String("path", path),
					zap.Error(err),
				)
				continue
			}
			log.Info("Rules reloaded", zap.String("path", path))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Rules watcher error", zap.Error(err))
		}
	}
}
