// Command formwork evaluates a formwork script and writes the resulting
// meshes as OBJ/MTL, STL or preview JSON.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/chazu/formwork/internal/config"
	"github.com/chazu/formwork/internal/logger"
	"github.com/chazu/formwork/pkg/export"
	"github.com/chazu/formwork/pkg/kernel"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stderr))
}

func run(args []string, stdin io.Reader, stderr io.Writer) int {
	fs := flag.NewFlagSet("formwork", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: formwork [flags] [script.fw]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer logger.Sync()

	source, err := readSource(fs.Arg(0), stdin)
	if err != nil {
		logger.Error("read script", zap.Error(err))
		return 1
	}

	app, err := NewAppFromConfig(cfg, logger.Named("app"))
	if err != nil {
		logger.Error("create app", zap.Error(err))
		return 2
	}
	result := app.Evaluate(source)
	for _, w := range result.Warnings {
		logger.Warn(w.Message, zap.String("part", w.Part), zap.String("code", w.Code))
	}
	for _, e := range result.Errors {
		logger.Error(e.Message,
			zap.Int("line", e.Line), zap.Int("col", e.Col),
			zap.String("part", e.Part), zap.String("code", e.Code))
	}

	written, err := write(cfg.Export, result)
	if err != nil {
		logger.Error("export failed", zap.Error(err))
		return 1
	}
	logger.Info("wrote model",
		zap.Strings("files", written),
		zap.Int("meshes", len(result.Meshes)))

	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// write exports result in the configured format and returns the paths
// it created.
func write(cfg config.ExportConfig, result EvalResult) ([]string, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	base := filepath.Join(cfg.Dir, cfg.BaseName)

	switch cfg.Format {
	case config.FormatJSON:
		path := base + ".json"
		b, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}
		return []string{path}, os.WriteFile(path, b, 0o644)

	case config.FormatSTL:
		if len(result.Models) == 0 {
			return nil, errors.New("nothing to export")
		}
		path := base + ".stl"
		return []string{path}, export.SaveSTL(path, result.Models...)

	default:
		if len(result.Models) == 0 {
			return nil, errors.New("nothing to export")
		}
		objPath, mtlPath := base+".obj", base+".mtl"
		opts := export.DefaultOBJOptions()
		if cfg.Precision < 0 {
			opts = export.ExactOBJOptions()
		} else {
			opts.Precision = cfg.Precision
		}
		model := kernel.Merge(cfg.BaseName, result.Models...)
		if err := writeFile(objPath, func(w io.Writer) error {
			return export.WriteOBJ(w, model, filepath.Base(mtlPath), opts)
		}); err != nil {
			return nil, err
		}
		if err := writeFile(mtlPath, func(w io.Writer) error {
			return export.WriteMTL(w, result.Models...)
		}); err != nil {
			return nil, err
		}
		return []string{objPath, mtlPath}, nil
	}
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}
