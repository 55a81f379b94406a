package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ssd/internal/core/config"
	"ssd/internal/engine/parser"
)

const versionString = "1.0.0"

type rootOptions struct {
	configPath string
	verbose    bool
	noColor    bool
	defines    []string
	base       string
	backend    string
}

func newRootCommand(g *globalState) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "ssd",
		Short:             "Parse, format and generate code from SSD service definitions",
		Version:           versionString,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: g.persistentPreRunE,
	}
	cmd.SetOut(g.stdout)
	cmd.SetErr(g.stderr)
	cmd.SetVersionTemplate(fmt.Sprintf("ssd v%s\n", versionString))
	cmd.PersistentFlags().AddFlagSet(rootFlagSet(&g.opts))

	cmd.AddCommand(
		g.debugCmd(),
		g.prettyCmd(),
		g.generateCmd(),
		g.checkCmd(),
		g.watchCmd(),
	)
	return cmd
}

func rootFlagSet(opts *rootOptions) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "config file; a missing default file is ignored")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringArrayVarP(&opts.defines, "define", "D", nil, "define a generator variable as key=value (repeatable)")
	flags.StringVar(&opts.base, "base", "", "directory namespaces are derived from (default: working directory)")
	flags.StringVar(&opts.backend, "backend", "", fmt.Sprintf("parser backend (%s or %s)", parser.BackendNative, parser.BackendMiniSSD))
	_ = cobra.MarkFlagFilename(flags, "config", "toml")
	return flags
}

// addTypemapFlags registers the type mapping flags shared by debug and the
// generators. --tm is a short alias of --typemap.
func addTypemapFlags(flags *pflag.FlagSet, typemap *string, noMap *bool) {
	flags.StringVar(typemap, "typemap", "", "type mapping file (default: <generator>.tym next to the generator)")
	flags.StringVar(typemap, "tm", "", "alias for --typemap")
	flags.BoolVar(noMap, "no-map", false, "disable type mapping")
	_ = cobra.MarkFlagFilename(flags, "typemap", "tym", "toml")
	_ = flags.MarkHidden("tm")
}
