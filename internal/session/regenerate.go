package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MrWong99/scribe/internal/observe"
)

// RegenerateResult summarises a [Regenerate] run.
type RegenerateResult struct {
	Files    int
	Cues     int
	Warnings int
	Failed   []string
}

// Regenerate re-applies the confidence filter to every persisted raw result
// below root and rewrites the cue tracks next to them. The recogniser is never
// invoked. Files that cannot be read are skipped; their errors are joined
// into the returned error after all other files were processed.
func Regenerate(ctx context.Context, root string, threshold float64, m *observe.Metrics) (RegenerateResult, error) {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	paths, err := DiscoverRaw(root)
	if err != nil {
		return RegenerateResult{}, err
	}

	var (
		res  RegenerateResult
		errs []error
	)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cues, warnings, err := regenerateFile(ctx, m, p, threshold)
		if err != nil {
			res.Failed = append(res.Failed, p)
			errs = append(errs, err)
			continue
		}
		res.Files++
		res.Cues += cues
		res.Warnings += warnings
	}
	if len(errs) > 0 {
		return res, fmt.Errorf("session: regenerate %q: %w", root, errors.Join(errs...))
	}
	return res, nil
}

func regenerateFile(ctx context.Context, m *observe.Metrics, rawPath string, threshold float64) (int, int, error) {
	raw, err := LoadRaw(rawPath)
	if err != nil {
		return 0, 0, err
	}
	stem := strings.TrimSuffix(filepath.Base(rawPath), RawSuffix)
	gen := generate(ctx, m, raw, stem, threshold)
	if err := WriteVTT(VTTPath(filepath.Dir(rawPath), stem), gen.Cues); err != nil {
		return 0, 0, err
	}
	observe.Logger(ctx).Debug("regenerated cue track", "raw", rawPath, "cues", len(gen.Cues), "threshold", threshold)
	return len(gen.Cues), len(gen.Warnings), nil
}
