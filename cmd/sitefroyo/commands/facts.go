package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfroyo/sitefroyo/internal/output"
	"github.com/openfroyo/sitefroyo/pkg/engine"
)

func newFactsCommand(a *app) *cobra.Command {
	var onlyTrue bool

	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Evaluate and print every fact about the site",
		Long: `Gather the site's context and print the value of every fact in
evaluation order, followed by the resulting status.

Manifest-declared custom facts are evaluated after the built-in catalog.`,
		Example: `  # Print all facts
  sitefroyo facts

  # Only facts that hold
  sitefroyo facts --true

  # Machine-readable
  sitefroyo facts -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := a.evaluate(cmd.Context(), engine.CommandFacts)
			if err != nil {
				return err
			}
			defer run.Close()

			eval := run.Evaluation
			if a.printer.Structured() {
				return a.printer.Encode(eval)
			}

			table := output.NewTable(a.printer.Out(), "Fact", "Value")
			for _, name := range eval.FactOrder {
				value := eval.Facts.Get(name)
				if onlyTrue && !value {
					continue
				}
				table.AddRow(name, a.printer.Bool(value))
			}
			if err := table.Render(); err != nil {
				return err
			}

			a.printer.Print("")
			a.printer.Print("%s: %s (%d of %d facts true)",
				eval.Domain, a.statusLabel(eval.Result.Status), eval.TrueFacts(), len(eval.Facts))
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyTrue, "true", false, "only print facts that hold")

	return cmd
}
