package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sitefroyo/internal/output"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		domain string
		limit  int
		prune  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent status evaluations",
		Long: `Show the site's status history, newest first. Every evaluating command
appends an entry; the engine itself never reads them.`,
		Example: `  sitefroyo history --limit 5
  sitefroyo history --prune 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			siteID, err := a.siteIDArg(cmd, []string{domain})
			if err != nil {
				return err
			}

			backend, store, err := a.localStore(ctx)
			if err != nil {
				return err
			}
			defer backend.Close()

			if prune > 0 {
				removed, err := store.PruneStatusHistory(ctx, siteID, time.Now().Add(-prune))
				if err != nil {
					return err
				}
				a.logger.Info().Int64("removed", removed).Str("site_id", siteID).Msg("Pruned status history")
			}

			records, err := store.ListStatusHistory(ctx, siteID, limit)
			if err != nil {
				return err
			}

			if a.printer.Structured() {
				return a.printer.Encode(records)
			}

			if len(records) == 0 {
				a.printer.Print("No history for %s", siteID)
				return nil
			}

			table := output.NewTable(a.printer.Out(), "Evaluated", "Command", "Status", "True facts", "Duration")
			for i, r := range records {
				status := a.statusLabel(r.Status)
				if i+1 < len(records) && r.StatusChanged(records[i+1]) {
					status += " *"
				}
				table.AddRow(
					r.EvaluatedAt.Local().Format(time.DateTime),
					string(r.Command),
					status,
					strconv.Itoa(r.TrueFacts),
					r.Duration.String(),
				)
			}
			return table.Render()
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "site domain (default: from the manifest)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete entries older than this before listing")

	return cmd
}
