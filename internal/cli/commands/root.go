package commands

import (
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/fluentmap/internal/cli/config"
	"github.com/conduit-lang/fluentmap/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions holds the persistent flags and what they resolve to
type globalOptions struct {
	configFile string
	format     string
	dialect    string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "fluentmap",
		Short: "Fluent object-relational mapping metadata for Go structs",
		Long: color.CyanString(`fluentmap - fluent ORM metadata

Declare table names, column names, keys, ignore rules, associations and
value conversions for Go structs through a chainable builder, merge them
into a schema and inspect what the data-access layer will see.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to fluentmap.yml (default: nearest fluentmap.yml)")
	flags.StringVar(&opts.format, "format", "", "Output format: table or yaml")
	flags.StringVar(&opts.dialect, "dialect", "", "SQL dialect: postgres or sqlite")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newDescribeCommand(opts))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// load reads the configuration, applies flag overrides and builds the logger
func (o *globalOptions) load(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.dialect != "" {
		cfg.Database.Dialect = o.dialect
	}
	if o.noColor || !cfg.Output.Color || !isTerminal(cmd) {
		color.NoColor = true
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	o.logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("format", cfg.Output.Format),
		zap.String("dialect", cfg.Database.Dialect),
	)
	return nil
}

// isTerminal reports whether the command writes to a terminal. Writers that
// are not files, such as test buffers, count as terminals.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the fluentmap version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "fluentmap version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
