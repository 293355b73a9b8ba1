package main

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/niche"
)

var nichesCmd = &cobra.Command{
	Use:   "niches",
	Short: "List the configured target niches",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := initCatalog()
		if err != nil {
			return err
		}
		renderNiches(cmd.OutOrStdout(), catalog.All())
		return nil
	},
}

func renderNiches(w io.Writer, niches []niche.Niche) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Priority", "States", "Keywords", "Negatives"})
	for _, n := range niches {
		t.AppendRow(table.Row{
			n.ID,
			n.Name,
			n.Priority,
			strings.Join(n.PriorityStates, ", "),
			len(n.Keywords),
			len(n.NegativeKeywords),
		})
	}
	t.Render()
}

func init() {
	rootCmd.AddCommand(nichesCmd)
}
