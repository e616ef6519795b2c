package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/quarry"
	"github.com/pthm/quarry/internal/cli"
	"github.com/pthm/quarry/param"
)

var (
	sqlSummary []string
	sqlNoTotal bool
	sqlNoList  bool
	sqlAll     bool
	sqlLimit   int
	sqlBind    bool
)

var sqlCmd = &cobra.Command{
	Use:   "sql <bean> [key=value ...]",
	Short: "Print the SQL for a search",
	Long:  `Print the list and cluster SQL a search would run, with bound values. No database is needed.`,
	Example: `  # Filter and sort
  quarry sql user name=Jack name-op=sw sort=age order=desc

  # Sum a field as well, using Postgres placeholders
  quarry sql user --summary age --dialect postgres --bind`,
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
		s, err := newSearcher(nil, reg)
		if err != nil {
			return err
		}

		fetch := param.Fetch{
			Total:     !sqlNoTotal,
			List:      !sqlNoList,
			All:       sqlAll,
			Limit:     sqlLimit,
			Summaries: sqlSummary,
		}
		res, err := s.Build(args[0], raw, fetch)
		if err != nil {
			return searchError(err)
		}
		return printSQL(os.Stdout, s, res)
	},
}

func init() {
	f := sqlCmd.Flags()
	f.StringSliceVar(&sqlSummary, "summary", nil, "fields to sum (repeatable)")
	f.BoolVar(&sqlNoTotal, "no-total", false, "skip the count")
	f.BoolVar(&sqlNoList, "no-list", false, "skip the list query")
	f.BoolVar(&sqlAll, "all", false, "ignore paging")
	f.IntVar(&sqlLimit, "limit", 0, "fixed page size")
	f.BoolVar(&sqlBind, "bind", false, "rewrite ? into the dialect's placeholders")
}

func printSQL(w io.Writer, s *quarry.Searcher, res *quarry.SQLResult) error {
	emit := func(label, query string, args []any) error {
		if sqlBind {
			bound, err := s.Dialect().Bind(query)
			if err != nil {
				return cli.GeneralError("binding placeholders", err)
			}
			query = bound
		}
		_, _ = fmt.Fprintf(w, "-- %s\n%s\n-- args: %v\n", label, query, args)
		return nil
	}

	if res.ShouldQueryList {
		if err := emit("list", res.ListSQL, res.ListArgs); err != nil {
			return err
		}
	}
	if res.ShouldQueryCluster {
		if err := emit("cluster", res.ClusterSQL, res.ClusterArgs); err != nil {
			return err
		}
	}
	return nil
}
