package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/quarry/internal/cli"
	"github.com/pthm/quarry/internal/doctor"
)

var (
	doctorNoDB    bool
	doctorVerbose bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Check the descriptor file and, unless --no-db is given, run every bean's queries against the database.`,
	Example: `  # Run health checks
  quarry doctor

  # Descriptor only
  quarry doctor --no-db --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := cfg.ResolvedDialect()
		if err != nil {
			return cli.ConfigError("dialect", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var db *sql.DB
		if !doctorNoDB {
			db, err = cli.OpenDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
		}

		if !quiet {
			fmt.Println("quarry doctor - Health Check")
		}

		report, err := doctor.New(db, cfg.Descriptor, d, cfg.VirtualParamPrefix).Run(ctx)
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}
		report.Print(os.Stdout, doctorVerbose)

		if report.HasErrors() {
			return cli.DescriptorError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.BoolVar(&doctorNoDB, "no-db", false, "skip database checks")
	f.BoolVar(&doctorVerbose, "details", false, "show detailed output")
}
