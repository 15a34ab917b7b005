// Command weaver applies the transformations of a model to its declarations
// and prints the woven members.
//
//	weaver weave model.yaml
//	weaver order model.yaml
//	weaver trace model.yaml 'Calc.Add(1, 2)'
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/pipeline"
)

// errReported is returned once diagnostics have been printed; main exits
// with a failure status without printing it again.
var errReported = errors.New("weaving reported errors")

type app struct {
	stdout, stderr io.Writer
	color          bool

	verbose    bool
	configPath string
	timeout    time.Duration

	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr, color: colorEnabled(os.Stderr)}
	if err := a.root().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

func (a *app) root() *cobra.Command {
	root := &cobra.Command{
		Use:   "weaver",
		Short: "Weave aspect transformations into the declarations of a model",
		Long: `weaver applies the layered transformations of a model (overrides,
introductions, redirects and interface proxies) to its declarations and
prints the members each declaration compiles to.

A weave.yaml next to the model, or the one given with --config, sets layer
precedence and weaving options.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.OutputPaths = []string{"stderr"}
			if a.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every weaving step")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "weave.yaml to use instead of the one next to the model")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "abort the pass after this long (0 = no limit)")

	root.AddCommand(a.weaveCmd(), a.orderCmd(), a.traceCmd())
	return root
}

// newContext reads the model and its configuration into a pipeline context.
// The returned bytes are the configuration file content, empty for the
// defaults.
func (a *app) newContext(cmd *cobra.Command, modelPath string) (*pipeline.PipelineContext, []byte, context.CancelFunc, error) {
	model, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading model: %w", err)
	}
	path := a.configPath
	if path == "" {
		if path, err = config.FindConfig(filepath.Dir(modelPath)); err != nil {
			return nil, nil, nil, err
		}
	}
	cfg := config.Default()
	var cfgData []byte
	if path != "" {
		if cfgData, err = os.ReadFile(path); err != nil {
			return nil, nil, nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if cfg, err = config.ParseConfig(cfgData, path); err != nil {
			return nil, nil, nil, err
		}
		a.logger.Debug("config loaded", zap.String("path", path))
	}

	ctx := pipeline.NewPipelineContext(modelPath, model)
	ctx.Config = cfg
	ctx.Logger = a.logger
	cancel := context.CancelFunc(func() {})
	ctx.Context = cmd.Context()
	if ctx.Context == nil {
		ctx.Context = context.Background()
	}
	if a.timeout > 0 {
		ctx.Context, cancel = context.WithTimeout(ctx.Context, a.timeout)
	}
	return ctx, cfgData, cancel, nil
}

// finish prints the diagnostics of a pass and turns its failure into an
// error.
func (a *app) finish(ctx *pipeline.PipelineContext) error {
	if ctx.Err != nil {
		return ctx.Err
	}
	printDiagnostics(a.stderr, ctx.Errors, a.color)
	if ctx.Failed() {
		return errReported
	}
	return nil
}
