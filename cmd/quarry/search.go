package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/pthm/quarry"
	"github.com/pthm/quarry/internal/cli"
)

var (
	searchSummary []string
	searchFirst   bool
	searchAll     bool
	searchCount   bool
	searchOutput  string
)

var searchCmd = &cobra.Command{
	Use:   "search <bean> [key=value ...]",
	Short: "Run a search",
	Long:  `Run a search against the configured database and print the result.`,
	Example: `  # One page with total count
  quarry search user name=Jack name-op=sw

  # Between, as JSON
  quarry search user age-0=20 age-1=30 age-op=bt -o json

  # Count only
  quarry search user deptName=Sales --count`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := parseParams(args[1:])
		if err != nil {
			return cli.BadRequestError("parsing parameters", err)
		}
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		db, err := cli.OpenDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		s, err := newSearcher(db, reg)
		if err != nil {
			return err
		}

		out, err := runSearch(ctx, s, args[0], raw)
		if err != nil {
			return searchError(err)
		}
		return writeOutput(os.Stdout, searchOutput, out)
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringSliceVar(&searchSummary, "summary", nil, "fields to sum (repeatable)")
	f.BoolVar(&searchFirst, "first", false, "return the first row only")
	f.BoolVar(&searchAll, "all", false, "return every row, ignoring paging")
	f.BoolVar(&searchCount, "count", false, "return the row count only")
	f.StringVarP(&searchOutput, "output", "o", "yaml", "output format: yaml or json")
}

func runSearch(ctx context.Context, s *quarry.Searcher, bean string, raw map[string]any) (any, error) {
	switch {
	case searchCount:
		n, err := s.SearchCount(ctx, bean, raw)
		return map[string]int64{"total": n}, err
	case searchFirst:
		return s.SearchFirst(ctx, bean, raw)
	case searchAll:
		return s.SearchAll(ctx, bean, raw)
	default:
		return s.Search(ctx, bean, raw, searchSummary...)
	}
}

func writeOutput(w io.Writer, format string, v any) error {
	var (
		out []byte
		err error
	)
	switch format {
	case "json":
		out, err = json.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	case "yaml", "":
		out, err = yaml.Marshal(v)
	default:
		return cli.ConfigError(fmt.Sprintf("unknown output format %q", format), nil)
	}
	if err != nil {
		return cli.GeneralError("encoding result", err)
	}
	_, err = w.Write(out)
	return err
}
