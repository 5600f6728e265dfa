// Package converter runs world conversions against files and folders.
package converter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ClippyRoyale/WorldConverter/internal/convert"
	"github.com/ClippyRoyale/WorldConverter/internal/detect"
	"github.com/ClippyRoyale/WorldConverter/internal/report"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
	"github.com/ClippyRoyale/WorldConverter/internal/world"
)

// Converter orchestrates reading, detecting, converting and writing worlds.
type Converter struct {
	engine   *convert.Engine
	detector *detect.Detector
	fs       FileSystem
	logger   *zap.Logger
}

// New constructs a Converter.
//
// Precondition: engine, detector, fsys and logger must be non-nil.
// Postcondition: returns a non-nil Converter.
func New(engine *convert.Engine, detector *detect.Detector, fsys FileSystem, logger *zap.Logger) *Converter {
	return &Converter{engine: engine, detector: detector, fs: fsys, logger: logger}
}

// ConvertFile converts the world at src and writes it to dst. from may be
// version.Autodetect.
//
// Precondition: ctx must be non-nil.
// Postcondition: Returns the conversion report, or a *Failure and no report.
// dst is only written when the whole conversion succeeded; src is never
// written.
func (c *Converter) ConvertFile(ctx context.Context, src, dst string, from, to version.Version, opts convert.Options) (*report.Report, error) {
	start := time.Now()
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return nil, fail(SourceNotFound, src, err)
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return nil, fail(DestinationPermissionDenied, dst, err)
	}
	if srcAbs == dstAbs {
		return nil, fail(OverwriteRefused, src, nil)
	}
	if !to.IsConcrete() || (from != version.Autodetect && !from.IsConcrete()) {
		return nil, fail(InvalidVersion, src, fmt.Errorf("from %s to %s", from, to))
	}

	w, err := c.read(src)
	if err != nil {
		return nil, err
	}
	if err := c.fs.CheckWritable(filepath.Dir(dstAbs)); err != nil {
		return nil, fail(DestinationPermissionDenied, dst, err)
	}

	rep := report.New()
	rep.Source, rep.Destination = src, dst
	if from == version.Autodetect {
		from = c.detector.Detect(ctx, w, rep)
		rep.Detected = true
	}
	rep.From, rep.To = from.String(), to.String()
	log := c.logger.With(
		zap.String("run_id", rep.RunID),
		zap.String("source", src),
		zap.String("destination", dst),
		zap.String("from", rep.From),
		zap.String("to", rep.To),
	)

	if from == to {
		return nil, fail(SameVersionNoop, src, nil)
	}
	if to == version.Deluxe && w.StoresRecords() {
		return nil, fail(AlreadyTargetFormat, src, nil)
	}

	if err := c.engine.Convert(w, from, to, opts, rep); err != nil {
		return nil, fail(CorruptFile, src, err)
	}
	out, err := world.Encode(w)
	if err != nil {
		return nil, fail(CorruptFile, src, err)
	}
	if err := c.fs.WriteFile(dstAbs, out); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fail(DestinationPermissionDenied, dst, err)
		}
		return nil, fail(WriteFailed, dst, err)
	}

	log.Info("world converted",
		zap.Bool("detected", rep.Detected),
		zap.Int("bytes", len(out)),
		zap.Int("warnings", len(rep.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}

// Detect reads the world at src and reports its inferred version.
//
// Postcondition: Returns a concrete version and the detection diagnostics, or
// a *Failure.
func (c *Converter) Detect(ctx context.Context, src string) (version.Version, *report.Report, error) {
	w, err := c.read(src)
	if err != nil {
		return version.Autodetect, nil, err
	}
	rep := report.New()
	rep.Source = src
	v := c.detector.Detect(ctx, w, rep)
	rep.From, rep.Detected = v.String(), true
	return v, rep, nil
}

func (c *Converter) read(src string) (*world.World, error) {
	info, err := c.fs.Stat(src)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fail(SourceNotFound, src, nil)
	case err != nil:
		return nil, fail(SourceNotFound, src, err)
	case info.IsDir():
		return nil, fail(SourceIsDirectory, src, nil)
	}
	data, err := c.fs.ReadFile(src)
	if err != nil {
		return nil, fail(SourceNotFound, src, err)
	}
	w, err := world.Parse(data)
	switch {
	case errors.Is(err, world.ErrNotUTF8):
		return nil, fail(SourceNotUtf8, src, nil)
	case errors.Is(err, world.ErrNotJSON):
		return nil, fail(SourceNotJson, src, err)
	case err != nil:
		return nil, fail(CorruptFile, src, err)
	}
	return w, nil
}
