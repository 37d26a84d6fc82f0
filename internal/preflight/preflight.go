package preflight

import (
	"context"

	"hlsforge/internal/config"
	"hlsforge/internal/queue"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the free space below which the output volume is reported
// as not ready: one maximum-size upload per configured rendition.
func minFreeBytes(cfg *config.Config) uint64 {
	perJob := uint64(cfg.Upload.MaxBytes)
	if perJob == 0 {
		perJob = 50 << 20
	}
	return perJob * uint64(max(len(cfg.Transcoder.Renditions), 1))
}

// RunAll executes every preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Output volume", cfg.Paths.OutputDir, minFreeBytes(cfg)),
		CheckLeftovers("Interrupted work", cfg.Paths.OutputDir),
	}
	return results
}

// CheckStore reports whether the status store answers a health probe.
func CheckStore(ctx context.Context, store queue.StatusStore) Result {
	const name = "Status store"
	if store == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if !health.TableExists || len(health.MissingColumns) > 0 {
		return Result{Name: name, Detail: "schema incomplete"}
	}
	return Result{Name: name, Passed: true, Detail: health.Driver + " " + health.Location}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
