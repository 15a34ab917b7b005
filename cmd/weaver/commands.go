package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/funvibe/weaver/internal/manifest"
	"github.com/funvibe/weaver/internal/pipeline"
	"github.com/funvibe/weaver/internal/store"
)

const (
	formatSource   = "source"
	formatManifest = "manifest"
	formatJSON     = "json"
)

func (a *app) weaveCmd() *cobra.Command {
	var format, output, cachePath string
	cmd := &cobra.Command{
		Use:   "weave <model.yaml>",
		Short: "Weave a model and print the woven members",
		Long: `Weaves every declaration of the model and prints the members that replace
the transformed ones, grouped by declaring type.

--format manifest writes a binary protobuf manifest of the results and
--format json the same manifest as JSON. With --cache, source output of an
unchanged model and configuration is read from the cache database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatSource, formatManifest, formatJSON:
			default:
				return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, formatSource, formatManifest, formatJSON)
			}
			ctx, cfgData, cancel, err := a.newContext(cmd, args[0])
			if err != nil {
				return err
			}
			defer cancel()

			var cache *store.Store
			var key uuid.UUID
			if cachePath != "" && format == formatSource {
				if cache, err = store.Open(cachePath); err != nil {
					return err
				}
				defer cache.Close()
				key = store.Key(ctx.Source, cfgData)
				e, ok, err := cache.Get(ctx.Context, key)
				if err != nil {
					return err
				}
				if ok {
					a.logger.Debug("cache hit", zap.String("key", key.String()))
					return a.write(output, []byte(e.Printed))
				}
			}

			ctx = pipeline.Default().Run(ctx)
			if ctx.Err != nil {
				return ctx.Err
			}
			var data []byte
			switch format {
			case formatSource:
				data = []byte(ctx.Printed)
			case formatManifest:
				data, err = manifest.Encode(ctx.Output)
			case formatJSON:
				data, err = manifest.JSON(ctx.Output)
			}
			if err != nil {
				return err
			}
			if err := a.write(output, data); err != nil {
				return err
			}
			if cache != nil && !ctx.Failed() {
				model, err := filepath.Abs(ctx.FilePath)
				if err != nil {
					return err
				}
				changed, err := cache.Put(ctx.Context, model, key, ctx.Printed, ctx.Output)
				if err != nil {
					return err
				}
				if len(changed) > 0 {
					a.logger.Info("declarations changed", zap.Strings("declarations", changed))
				}
			}
			return a.finish(ctx)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatSource, "output format: source, manifest or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the output to this file instead of stdout")
	cmd.Flags().StringVar(&cachePath, "cache", "", "sqlite database caching woven source")
	return cmd
}

func (a *app) write(path string, data []byte) error {
	if path == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func (a *app) orderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <model.yaml>",
		Short: "Print the layer order, outermost first",
		Long: `Prints every layer of the model in the order weaving applies them, the
outermost (first to run) first, followed by the order of each transformed
declaration. Precedence cycles are listed; only declarations with two layers
in one cycle fail to weave.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, cancel, err := a.newContext(cmd, args[0])
			if err != nil {
				return err
			}
			defer cancel()
			ctx = pipeline.New(&pipeline.LoadProcessor{}, &pipeline.OrderProcessor{}).Run(ctx)
			if ctx.Err != nil {
				return ctx.Err
			}
			out := a.stdout
			for i, l := range ctx.Layers {
				fmt.Fprintf(out, "%d %s\n", i+1, l)
			}
			for _, c := range ctx.Cycles {
				fmt.Fprintf(out, "cycle: %s\n", strings.Join(c, ", "))
			}
			o := ctx.Session.Orderer(ctx.Project.Sets)
			for _, s := range ctx.Project.Sets {
				layers := s.Layers()
				if len(layers) == 0 {
					continue
				}
				name := ctx.Project.Compilation.QualifiedName(s.Decl.ID)
				ordered, err := o.Order(layers)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", name, err)
					continue
				}
				ids := make([]string, len(ordered))
				for i, l := range ordered {
					ids[i] = l.String()
				}
				fmt.Fprintf(out, "%s: %s\n", name, strings.Join(ids, ", "))
			}
			return a.finish(ctx)
		},
	}
}

func (a *app) traceCmd() *cobra.Command {
	var fromSource bool
	cmd := &cobra.Command{
		Use:   "trace <model.yaml> <call>...",
		Short: "Weave a model and run member calls, printing their console output",
		Long: `Weaves the model, then runs each call (such as 'Calc.Add(1, 2)' or
'Calc.Name' for a property read) on a fresh instance and prints its result
and everything it writes with Console.WriteLine. Arguments must be literals.
With --source the unwoven members run instead.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, cancel, err := a.newContext(cmd, args[0])
			if err != nil {
				return err
			}
			defer cancel()
			for _, text := range args[1:] {
				c, err := pipeline.ParseCall(text)
				if err != nil {
					return err
				}
				ctx.Calls = append(ctx.Calls, c)
			}
			ctx.FromSource = fromSource

			ctx = pipeline.Default().Run(ctx)
			if ctx.Err != nil {
				return ctx.Err
			}
			fmt.Fprint(a.stdout, pipeline.FormatTraces(ctx.Traces))
			if err := a.finish(ctx); err != nil {
				return err
			}
			for _, t := range ctx.Traces {
				if t.Err != nil {
					return errReported
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromSource, "source", false, "run the members as declared, without weaving")
	return cmd
}
