package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneOld deletes files in dir matching pattern whose modification time is
// older than maxAge, skipping the paths in keep. It returns the number of
// files removed. A non-positive maxAge disables pruning.
func PruneOld(logger *slog.Logger, dir, pattern string, maxAge time.Duration, keep ...string) int {
	if maxAge <= 0 || dir == "" {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}

	skip := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		skip[filepath.Clean(path)] = struct{}{}
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		if _, ok := skip[filepath.Clean(path)]; ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("old logs pruned",
			String(FieldEventType, "log_pruned"),
			String("dir", dir),
			Int("count", removed),
		)
	}
	return removed
}
