package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

type statusView struct {
	SiteID  string        `json:"site_id" yaml:"site_id"`
	Domain  string        `json:"domain" yaml:"domain"`
	Status  engine.Status `json:"status" yaml:"status"`
	Message string        `json:"message,omitempty" yaml:"message,omitempty"`
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the site's lifecycle status",
		Long: `Print the site's status and, when there is something to do, the next
step. The exit code is 0 for every status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := a.evaluate(cmd.Context(), engine.CommandStatus)
			if err != nil {
				return err
			}
			defer run.Close()

			eval := run.Evaluation
			if a.printer.Structured() {
				return a.printer.Encode(statusView{
					SiteID:  eval.SiteID,
					Domain:  eval.Domain,
					Status:  eval.Result.Status,
					Message: eval.Result.Message,
				})
			}

			a.printer.Print("%s: %s", eval.Domain, a.statusLabel(eval.Result.Status))
			if eval.Result.Message != "" {
				a.printer.Print("%s", eval.Result.Message)
			}
			return nil
		},
	}
}
