package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pthm/quarry/meta"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

var beansCmd = &cobra.Command{
	Use:   "beans [name]",
	Short: "List beans",
	Long:  `List the beans of the descriptor file, or show the fields of one bean.`,
	Example: `  # List beans
  quarry beans

  # Show one bean
  quarry beans user`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			for _, name := range reg.Names() {
				b, _ := reg.Bean(name)
				fmt.Printf("%s (%d fields)\n", name, len(b.Fields))
			}
			return nil
		}

		b, err := reg.Bean(args[0])
		if err != nil {
			return searchError(err)
		}
		fmt.Println(renderBean(b))
		return nil
	},
}

func renderBean(b *meta.Bean) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(b.Name))
	fmt.Fprintf(&sb, "\n  tables: %s\n", b.Tables)
	if b.JoinCond != "" {
		fmt.Fprintf(&sb, "  join:   %s\n", b.JoinCond)
	}
	if b.GroupBy != "" {
		fmt.Fprintf(&sb, "  group:  %s\n", b.GroupBy)
	}
	if b.Distinct {
		sb.WriteString("  distinct\n")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FIELD", "EXPR", "TYPE", "ALIAS", "FILTER")
	for i, f := range b.Fields {
		filter := "no"
		if f.IsConditional() {
			filter = "any"
			if len(f.OnlyOn) > 0 {
				filter = strings.Join(f.OnlyOn, ",")
			}
		}
		typ := string(f.Type)
		if typ == "" {
			typ = "-"
		}
		t.Row(f.Name, f.Expr, typ, b.SelectAlias(i), filter)
	}
	sb.WriteString(t.String())
	return sb.String()
}
