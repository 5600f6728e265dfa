package converter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ClippyRoyale/WorldConverter/internal/convert"
	"github.com/ClippyRoyale/WorldConverter/internal/report"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

// LogName is the default name of the warnings log a batch writes.
const LogName = "_WARNINGS.LOG"

// BatchOptions controls a folder conversion.
type BatchOptions struct {
	convert.Options
	// LogName overrides LogName when non-empty.
	LogName string
	// Reuse writes into outDir even when it already exists.
	Reuse bool
}

// ConvertBatch converts every file directly inside inDir into a fresh output
// folder. When outDir already exists the first free name among outDir1,
// outDir2, ... is used instead.
//
// Precondition: ctx must be non-nil.
// Postcondition: Returns the batch report with one entry per file. A
// per-file failure is recorded in the batch and never aborts it. The error is
// non-nil only when inDir cannot be listed or the output folder cannot be
// created.
func (c *Converter) ConvertBatch(ctx context.Context, inDir, outDir string, from, to version.Version, opts BatchOptions) (*report.Batch, error) {
	start := time.Now()
	info, err := c.fs.Stat(inDir)
	switch {
	case err != nil:
		return nil, fail(SourceNotFound, inDir, err)
	case !info.IsDir():
		return nil, fail(SourceNotFound, inDir, errors.New("not a folder"))
	}
	entries, err := c.fs.ReadDir(inDir)
	if err != nil {
		return nil, fail(SourceNotFound, inDir, err)
	}

	outDir = filepath.Clean(outDir)
	if !opts.Reuse {
		free, err := c.freeDir(outDir)
		if err != nil {
			return nil, fail(DestinationPermissionDenied, outDir, err)
		}
		outDir = free
	}
	if err := c.fs.MkdirAll(outDir); err != nil {
		return nil, fail(DestinationPermissionDenied, outDir, err)
	}

	batch := report.NewBatch(outDir)
	log := c.logger.With(zap.String("batch_id", batch.RunID), zap.String("output_dir", outDir))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		src := filepath.Join(inDir, e.Name())
		if e.IsDir() {
			log.Debug("skipping folder", zap.String("source", src))
			continue
		}
		res := c.convertOne(ctx, src, filepath.Join(outDir, e.Name()), from, to, opts.Options)
		if res.Failure != "" {
			log.Warn("file not converted", zap.String("source", src), zap.String("failure", res.Failure))
		}
		batch.Files = append(batch.Files, res)
	}

	name := opts.LogName
	if name == "" {
		name = LogName
	}
	if err := c.fs.WriteFile(filepath.Join(outDir, name), []byte(batch.String())); err != nil {
		return batch, fail(WriteFailed, filepath.Join(outDir, name), err)
	}

	log.Info("batch converted",
		zap.Int("files", len(batch.Files)),
		zap.Int("succeeded", batch.Succeeded()),
		zap.Int("failed", batch.Failed()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return batch, nil
}

func (c *Converter) convertOne(ctx context.Context, src, dst string, from, to version.Version, opts convert.Options) report.FileResult {
	rep, err := c.ConvertFile(ctx, src, dst, from, to, opts)
	if err != nil {
		return report.FileResult{Source: src, Failure: err.Error()}
	}
	return report.FileResult{Source: src, Report: rep}
}

// freeDir returns dir if it does not exist yet, else dir with the smallest
// numeric suffix that does not exist.
func (c *Converter) freeDir(dir string) (string, error) {
	candidate := dir
	for i := 1; ; i++ {
		_, err := c.fs.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		candidate = dir + strconv.Itoa(i)
	}
}
