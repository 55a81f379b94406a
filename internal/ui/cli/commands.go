package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ssd/internal/core/ports"
	"ssd/internal/engine/generate"
)

func (g *globalState) debugCmd() *cobra.Command {
	var (
		req    ports.DebugRequest
		format string
	)
	cmd := &cobra.Command{
		Use:   "debug <file>",
		Short: "Print the parsed module (or raw element sequence) of an SSD file",
		Args:  requireArgs(1, "ssd debug <file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := g.format(format)
			if err != nil {
				return err
			}
			svc, err := g.service()
			if err != nil {
				return err
			}
			req.Path, req.Format = args[0], f
			req.Typemap, req.NoMap = g.typemap(req.Typemap, req.NoMap)
			return svc.Debug(cmd.Context(), req, g.console.stdout)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&req.RawAST, "raw-ast", false, "print the raw element sequence instead of the assembled module")
	flags.StringVarP(&format, "format", "f", "", "output format (default from config, json-pretty)")
	addTypemapFlags(flags, &req.Typemap, &req.NoMap)
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	return cmd
}

func (g *globalState) prettyCmd() *cobra.Command {
	var req ports.PrettyRequest
	cmd := &cobra.Command{
		Use:   "pretty <file>",
		Short: "Print an SSD file in canonical form",
		Long: "Print an SSD file in canonical form. The output is parsed again and must\n" +
			"match the input; with --in-place the file is only replaced when it does.",
		Args: requireArgs(1, "ssd pretty <file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := g.service()
			if err != nil {
				return err
			}
			req.Path = args[0]
			res, err := svc.Pretty(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !res.Written {
				_, err = io.WriteString(g.console.stdout, res.Text)
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&req.InPlace, "in-place", "i", false, "rewrite the file instead of printing it")
	return cmd
}

type generateOptions struct {
	out     string
	raw     bool
	typemap string
	noMap   bool
	debug   bool
}

func (g *globalState) generateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a generator over an SSD file",
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.out, "out", "o", "", "write output to this file instead of stdout")
	flags.BoolVar(&opts.raw, "raw", false, "read the input as a raw data file (json, toml or yaml)")
	addTypemapFlags(flags, &opts.typemap, &opts.noMap)

	data := &cobra.Command{
		Use:               "data <format> <file>",
		Short:             "Serialize the module as " + fmt.Sprint(generate.Formats()),
		Args:              requireArgs(2, "ssd generate data <format> <file>"),
		ValidArgsFunction: completeDataArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := generate.ParseFormat(args[0])
			if err != nil {
				return err
			}
			return g.runGenerator(cmd, opts, ports.GenerateRequest{Kind: ports.GeneratorData, Input: args[1], Format: f})
		},
	}

	tmpl := &cobra.Command{
		Use:     "template <template> <file>",
		Aliases: []string{"handlebars", "hbs", "tera"},
		Short:   "Render a text/template file against the module",
		Args:    requireArgs(2, "ssd generate template <template> <file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.runGenerator(cmd, opts, ports.GenerateRequest{Kind: ports.GeneratorTemplate, Generator: args[0], Input: args[1]})
		},
	}

	script := &cobra.Command{
		Use:     "script <script> <file>",
		Aliases: []string{"js"},
		Short:   "Run a JavaScript generator against the module",
		Long: "Run a JavaScript generator. The script sees `module` and `defines` (or `raw`\n" +
			"with --raw) and writes its result through `out.write` and `out.writeln`.\n" +
			"`print` and `debug` go to stderr and only with --debug.",
		Args: requireArgs(2, "ssd generate script <script> <file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.runGenerator(cmd, opts, ports.GenerateRequest{Kind: ports.GeneratorScript, Generator: args[0], Input: args[1], Debug: opts.debug})
		},
	}
	script.Flags().BoolVar(&opts.debug, "debug", false, "enable print() and debug() output")

	cmd.AddCommand(data, tmpl, script)
	return cmd
}

func (g *globalState) runGenerator(cmd *cobra.Command, opts *generateOptions, req ports.GenerateRequest) error {
	svc, err := g.service()
	if err != nil {
		return err
	}
	req.Raw, req.Out = opts.raw, opts.out
	req.Typemap, req.NoMap = g.typemap(opts.typemap, opts.noMap)
	return svc.Generate(cmd.Context(), req, g.console.stdout)
}

func (g *globalState) checkCmd() *cobra.Command {
	var roundTrip bool
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Parse and assemble every SSD file under the given paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			svc, err := g.service()
			if err != nil {
				return err
			}
			res, err := svc.Check(cmd.Context(), ports.CheckRequest{Paths: args, RoundTrip: roundTrip || g.cfg.Check.RoundTrip})
			if err != nil {
				return err
			}
			g.console.reportCheck(res)
			return checkFailure(res)
		},
	}
	cmd.Flags().BoolVar(&roundTrip, "round-trip", false, "also verify that every file survives pretty-printing")
	return cmd
}

func (g *globalState) watchCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Check SSD files and re-check them whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr != "" {
				g.cfg.Watch.MetricsAddr = metricsAddr
			}
			svc, err := g.service()
			if err != nil {
				return err
			}
			return svc.Watch(cmd.Context(), args, func(u ports.WatchUpdate) {
				g.console.reportCheck(u.Result)
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")
	return cmd
}

// checkFailure turns a failed check into an exit error. Round-trip failures
// take precedence since they point at the tool rather than the input.
func checkFailure(res ports.CheckResult) error {
	if res.OK() {
		return nil
	}
	code := exitFailure
	for _, f := range res.Failures {
		if exitCode(f.Err) == exitRoundTrip {
			code = exitRoundTrip
			break
		}
	}
	return &exitError{code: code, err: fmt.Errorf("%d of %d files failed", len(res.Failures), len(res.Files))}
}

func (g *globalState) format(flag string) (generate.Format, error) {
	if flag == "" {
		flag = g.cfg.Generate.Format
	}
	return generate.ParseFormat(flag)
}

func (g *globalState) typemap(path string, noMap bool) (string, bool) {
	if path == "" {
		path = g.cfg.Generate.Typemap
	}
	return path, noMap || g.cfg.Generate.NoMap
}

func completeFormats(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return generate.Formats(), cobra.ShellCompDirectiveNoFileComp
}

func completeDataArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return generate.Formats(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveDefault
}
