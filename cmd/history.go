package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List persisted searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		searches, err := st.ListSearches(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		renderHistory(cmd.OutOrStdout(), searches)
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the enrichment cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired enrichment records",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteExpiredEnrichment(cmd.Context())
		if err != nil {
			return err
		}
		zap.L().Info("pruned enrichment cache", zap.Int("deleted", n))
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired records\n", n)
		return nil
	},
}

// openStore opens and migrates the configured store, failing when
// persistence is disabled.
func openStore(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate(cmd.Name()); err != nil {
		return nil, err
	}
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("store.driver is none; nothing is persisted")
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func renderHistory(w io.Writer, searches []store.Search) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Created", "Query", "Location", "Niche", "ID"})
	for _, s := range searches {
		t.AppendRow(table.Row{s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Query, s.Location, s.NicheID, s.ID})
	}
	t.Render()
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum searches to list")
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(historyCmd, cacheCmd)
}
