package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/quarry"
	"github.com/pthm/quarry/internal/cli"
	"github.com/pthm/quarry/meta"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string
	logger     = zap.NewNop()

	// Persistent flags
	cfgFile        string
	descriptorFlag string
	dialectFlag    string
	verbose        int
	quiet          bool
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Declarative search SQL for relational databases",
	Long: `quarry - declarative search SQL

Quarry compiles bean descriptors and flat request parameters into
dialect-correct list and count/sum queries.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		cfg.Descriptor = resolveString(descriptorFlag, cfg.Descriptor)
		cfg.Dialect = resolveString(dialectFlag, cfg.Dialect)

		switch {
		case quiet:
			cfg.Log.Level = "error"
		case verbose > 0:
			cfg.Log.Level = "debug"
		}
		logger, err = cli.NewLogger(cfg.Log)
		if err != nil {
			return cli.ConfigError("building logger", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupQuery    = "query"
	groupDescribe = "describe"
	groupUtility  = "utility"
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: auto-discover quarry.yaml)")
	pf.StringVar(&descriptorFlag, "descriptor", "", "bean descriptor file (overrides config)")
	pf.StringVar(&dialectFlag, "dialect", "", "SQL dialect: mysql, postgres, sqlite, sqlserver, oracle")
	pf.CountVarP(&verbose, "verbose", "v", "increase verbosity (logs generated SQL)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupQuery, Title: "Query:"},
		&cobra.Group{ID: groupDescribe, Title: "Descriptor:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	sqlCmd.GroupID = groupQuery
	searchCmd.GroupID = groupQuery
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(searchCmd)

	beansCmd.GroupID = groupDescribe
	doctorCmd.GroupID = groupDescribe
	rootCmd.AddCommand(beansCmd)
	rootCmd.AddCommand(doctorCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func loadRegistry() (*meta.Registry, error) {
	reg, err := meta.LoadFile(cfg.Descriptor)
	if err != nil {
		return nil, cli.DescriptorError("loading descriptor", err)
	}
	return reg, nil
}

// newSearcher builds a Searcher from the loaded config. db may be nil.
func newSearcher(db quarry.Querier, reg *meta.Registry) (*quarry.Searcher, error) {
	d, err := cfg.ResolvedDialect()
	if err != nil {
		return nil, cli.ConfigError("dialect", err)
	}
	return quarry.NewSearcher(db, reg,
		quarry.WithDialect(d),
		quarry.WithVirtualParamPrefix(cfg.VirtualParamPrefix),
		quarry.WithParamConfig(cfg.Params),
		quarry.WithLogger(logger),
	), nil
}

// searchError assigns an exit code to an error returned by a Searcher.
func searchError(err error) error {
	switch {
	case quarry.IsBadRequestErr(err):
		return cli.BadRequestError("invalid search parameters", err)
	case quarry.IsSyntaxErr(err), quarry.IsUnknownBeanErr(err):
		return cli.DescriptorError("descriptor", err)
	default:
		return cli.GeneralError("search failed", err)
	}
}
