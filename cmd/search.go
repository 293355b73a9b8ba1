package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/paginate"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/rank"
)

var (
	searchLocation string
	searchNiche    string
	searchSort     string
	searchPages    int
	searchClassify bool
	searchEnrich   int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search listings and print them ranked",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mode, err := rank.ParseMode(searchSort)
		if err != nil {
			return err
		}

		command := "search"
		if searchClassify {
			command = "classify"
		}
		env, err := initEnv(ctx, command)
		if err != nil {
			return err
		}
		defer env.Close()

		svc := env.Service
		if searchNiche != "" {
			n, ok := env.Catalog.Get(searchNiche)
			if !ok {
				return eris.Errorf("unknown niche %q", searchNiche)
			}
			svc.Session().SetNiche(n)
		}

		out, err := svc.Search(ctx, strings.Join(args, " "), searchLocation)
		if err != nil {
			return err
		}
		for page := 1; page < searchPages && out.Pagination.Phase == paginate.HasMore; page++ {
			if out, err = svc.LoadMore(ctx); err != nil {
				return err
			}
		}

		if searchClassify {
			if err := classifyAll(cmd, svc); err != nil {
				zap.L().Warn("AI classification incomplete, showing local results", zap.Error(err))
			}
		}

		if searchEnrich > 0 {
			var keys []string
			for _, r := range svc.View(mode) {
				if r.Key == "" {
					continue
				}
				keys = append(keys, r.Key)
				if len(keys) == searchEnrich {
					break
				}
			}
			if _, err := svc.Enrich(ctx, keys...); err != nil {
				return err
			}
		}

		results := svc.View(mode)
		if searchJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		renderResults(cmd.OutOrStdout(), results)
		return nil
	},
}

// classifyAll sends batches until every keyed listing has a verdict or a
// batch applies nothing.
func classifyAll(cmd *cobra.Command, svc *prospect.Service) error {
	for {
		out, err := svc.Classify(cmd.Context())
		if err != nil {
			return err
		}
		if out.Requested == 0 || out.Applied == 0 {
			return nil
		}
		zap.L().Info("classified batch", zap.Int("requested", out.Requested), zap.Int("applied", out.Applied))
	}
}

func renderResults(w io.Writer, results []rank.Ranked) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "Status", "Conf", "Quality", "Rating", "Reviews", "Premium", "Reason"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Name", WidthMax: 40},
		{Name: "Conf", Align: text.AlignRight},
		{Name: "Quality", Align: text.AlignRight},
		{Name: "Reason", WidthMax: 60},
	})

	for i, r := range results {
		status, conf, reason := "-", "", ""
		if c := r.Classification; c != nil {
			status = string(c.Status)
			conf = fmt.Sprintf("%d%%", c.Confidence)
			reason = c.Reason
		}
		premium := ""
		if e := r.Enrichment; e != nil {
			premium = fmt.Sprintf("%s (%d)", e.PremiumRank, e.PremiumScore)
		}
		rating := ""
		if r.Listing.Rating != nil {
			rating = fmt.Sprintf("%.1f", r.Listing.RatingValue())
		}

		t.AppendRow(table.Row{
			i + 1,
			r.Listing.Title,
			status,
			conf,
			fmt.Sprintf("%d %s", r.Quality.Total, r.Quality.Tier),
			rating,
			r.Listing.ReviewCount(),
			premium,
			reason,
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d listings", len(results))})
	t.Render()
}

func init() {
	searchCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "location appended to the query")
	searchCmd.Flags().StringVarP(&searchNiche, "niche", "n", "", "niche id to classify against")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "sort mode: relevance or quality (default relevance with a niche)")
	searchCmd.Flags().IntVar(&searchPages, "pages", 1, "number of result pages to fetch")
	searchCmd.Flags().BoolVar(&searchClassify, "classify", false, "classify listings with Claude")
	searchCmd.Flags().IntVar(&searchEnrich, "enrich", 0, "enrich the top N ranked listings")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}
