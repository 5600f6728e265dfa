// Package main provides the worldconv command, which converts MR world files
// between game revisions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ClippyRoyale/WorldConverter/internal/config"
	"github.com/ClippyRoyale/WorldConverter/internal/convert"
	"github.com/ClippyRoyale/WorldConverter/internal/converter"
	"github.com/ClippyRoyale/WorldConverter/internal/detect"
	"github.com/ClippyRoyale/WorldConverter/internal/observability"
	"github.com/ClippyRoyale/WorldConverter/internal/report"
	"github.com/ClippyRoyale/WorldConverter/internal/server"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
	"github.com/ClippyRoyale/WorldConverter/internal/watch"
	"github.com/ClippyRoyale/WorldConverter/internal/world"
)

const usage = `usage: worldconv <command> [flags]

commands:
  convert  -in <file> -out <file>   convert one world
  batch    -in <dir> [-out <dir>]   convert every world in a folder
  detect   -in <file>               print the version a world was made for
  watch    -in <dir> [-out <dir>]   convert worlds as they are saved into a folder
  schema   [-out <file>]            write the world JSON schema

Run "worldconv <command> -h" for the flags of a command.
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}
	cmds := map[string]func(context.Context, []string, io.Writer, io.Writer) error{
		"convert": runConvert,
		"batch":   runBatch,
		"detect":  runDetect,
		"watch":   runWatch,
		"schema":  runSchema,
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 1
	}
	if err := cmd(ctx, args[1:], stdout, stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

// app is the wiring shared by the conversion commands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	conv     *converter.Converter
	from, to version.Version
	opts     convert.Options
	yamlOut  bool
	stdout   io.Writer
}

// common registers the flags every conversion command accepts and returns a
// function that builds the app once the flags are parsed.
func common(fs *flag.FlagSet, stdout, stderr io.Writer) func() (*app, error) {
	configPath := fs.String("config", "", "path to configuration file")
	from := fs.String("from", "", "source version: auto, inferno, classic, remake, legacy, deluxe (default from config)")
	to := fs.String("to", "", "target version: inferno, classic, remake, legacy, deluxe (default from config)")
	progressive := fs.Bool("progressive", false, "use progressive item blocks for mushroom and flower item blocks")
	offline := fs.Bool("offline", false, "never probe asset hosts during version detection")
	format := fs.String("report", "text", "report format: text or yaml")

	return func() (*app, error) {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if *from != "" {
			cfg.Convert.From = *from
		}
		if *to != "" {
			cfg.Convert.To = *to
		}
		if set["progressive"] {
			cfg.Convert.ProgressiveItemBoxes = *progressive
		}
		if *offline {
			cfg.Network.Enabled = false
		}
		if *format != "text" && *format != "yaml" {
			return nil, fmt.Errorf("-report must be text or yaml, got %q", *format)
		}
		fromV, toV, err := cfg.Convert.Versions()
		if err != nil {
			return nil, err
		}

		logger, err := observability.NewLogger(cfg.Logging, stderr)
		if err != nil {
			return nil, fmt.Errorf("initializing logger: %w", err)
		}

		var oracle detect.Oracle
		if cfg.Network.Enabled {
			oracle = detect.NewHTTPOracle(cfg.Network.Timeout)
		}
		engine := convert.New(cfg.Assets, logger)
		detector := detect.New(oracle, cfg.Assets, logger)
		return &app{
			cfg:     cfg,
			logger:  logger,
			conv:    converter.New(engine, detector, converter.OSFileSystem{}, logger),
			from:    fromV,
			to:      toV,
			opts:    convert.Options{ProgressiveItemBoxes: cfg.Convert.ProgressiveItemBoxes},
			yamlOut: *format == "yaml",
			stdout:  stdout,
		}, nil
	}
}

func (a *app) printReport(rep *report.Report, elapsed time.Duration) error {
	if a.yamlOut {
		out, err := rep.YAML()
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(out)
		return err
	}
	fmt.Fprintf(a.stdout, "Done in %.3f seconds\n\n%s", elapsed.Seconds(), rep.String())
	return nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runConvert(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("convert", stderr)
	in := fs.String("in", "", "world file to convert (required)")
	out := fs.String("out", "", "path to save the converted world (required)")
	build := common(fs, stdout, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		fs.Usage()
		return errors.New("-in and -out are required")
	}
	a, err := build()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	start := time.Now()
	rep, err := a.conv.ConvertFile(ctx, *in, *out, a.from, a.to, a.opts)
	if err != nil {
		return err
	}
	return a.printReport(rep, time.Since(start))
}

func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("batch", stderr)
	in := fs.String("in", "", "folder of worlds to convert (required)")
	out := fs.String("out", "", "output folder (default batch.output_dir from config)")
	reuse := fs.Bool("reuse", false, "write into the output folder even if it already exists")
	build := common(fs, stdout, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return errors.New("-in is required")
	}
	a, err := build()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	outDir := *out
	if outDir == "" {
		outDir = a.cfg.Batch.OutputDir
	}
	start := time.Now()
	batch, err := a.conv.ConvertBatch(ctx, *in, outDir, a.from, a.to, converter.BatchOptions{
		Options: a.opts,
		LogName: a.cfg.Batch.LogName,
		Reuse:   *reuse,
	})
	if err != nil {
		return err
	}
	if a.yamlOut {
		b, err := batch.YAML()
		if err != nil {
			return err
		}
		_, err = stdout.Write(b)
		return err
	}
	fmt.Fprintf(stdout, "Done in %.3f seconds\n", time.Since(start).Seconds())
	fmt.Fprintf(stdout, "Converted %d of %d files.\n", batch.Succeeded(), len(batch.Files))
	fmt.Fprintf(stdout, "All converted worlds have been saved to the folder with path “%s”.\n", batch.OutputDir)
	fmt.Fprintf(stdout, "If there were any converter warnings, they have been logged to %s.\n", a.cfg.Batch.LogName)
	return nil
}

func runDetect(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("detect", stderr)
	in := fs.String("in", "", "world file to inspect (required)")
	build := common(fs, stdout, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return errors.New("-in is required")
	}
	a, err := build()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	v, rep, err := a.conv.Detect(ctx, *in)
	if err != nil {
		return err
	}
	if a.yamlOut {
		out, err := rep.YAML()
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}
	fmt.Fprintln(stdout, v.Title())
	for _, w := range rep.Warnings {
		if !strings.HasPrefix(w, "World version detected as") {
			fmt.Fprintln(stdout, w)
		}
	}
	return nil
}

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("watch", stderr)
	in := fs.String("in", "", "folder to watch (required)")
	out := fs.String("out", "", "output folder (default batch.output_dir from config)")
	build := common(fs, stdout, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return errors.New("-in is required")
	}
	a, err := build()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	outDir := *out
	if outDir == "" {
		outDir = a.cfg.Batch.OutputDir
	}
	if err := (converter.OSFileSystem{}).MkdirAll(outDir); err != nil {
		return fmt.Errorf("creating output folder: %w", err)
	}

	handle := func(ctx context.Context, path string) {
		start := time.Now()
		dst := filepath.Join(outDir, filepath.Base(path))
		rep, err := a.conv.ConvertFile(ctx, path, dst, a.from, a.to, a.opts)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n\n", err)
			return
		}
		if err := a.printReport(rep, time.Since(start)); err != nil {
			a.logger.Warn("printing report", zap.Error(err))
		}
	}
	skip := func(name string) bool { return name == a.cfg.Batch.LogName }
	w := watch.New(*in, a.cfg.Watch.Debounce, handle, skip, a.logger)

	lc := server.NewLifecycle(a.logger)
	lc.Add("watch", server.FuncService(w.Run))
	return lc.Run(ctx)
}

func runSchema(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("schema", stderr)
	out := fs.String("out", "", "file to write (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	b, err := json.MarshalIndent(world.Schema(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	b = append(b, '\n')
	if *out == "" {
		_, err = stdout.Write(b)
		return err
	}
	return converter.OSFileSystem{}.WriteFile(*out, b)
}
