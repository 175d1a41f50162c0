package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfroyo/sitefroyo/internal/output"
	"github.com/openfroyo/sitefroyo/pkg/engine"
	"github.com/openfroyo/sitefroyo/pkg/policy"
)

type checkView struct {
	SiteID string          `json:"site_id" yaml:"site_id"`
	Status engine.Status   `json:"status" yaml:"status"`
	Gates  map[string]bool `json:"gates,omitempty" yaml:"gates,omitempty"`
	Policy *policy.Result  `json:"policy" yaml:"policy"`
}

// deployGates are the facts that decide what a deploy would do.
var deployGates = []string{
	engine.FactShouldDeployAllResources,
	engine.FactShouldDeployS3Content,
	engine.FactShouldAutoSubscribeWebmasterEmail,
}

func newDestroyCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy-check",
		Short: "Check whether the site may be destroyed",
		Long: `Evaluate the site as a destroy would and run the guard policies.
Protected sites are refused. The exit code is 2 when destroy is denied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCheck(cmd, engine.CommandDestroy, nil)
		},
	}
}

func newDeployCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy-check",
		Short: "Show what a deploy would do and whether it may proceed",
		Long: `Evaluate the site as a deploy would, print the deployment gates and run
the guard policies. The exit code is 2 when deploy is denied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCheck(cmd, engine.CommandDeploy, deployGates)
		},
	}
}

func (a *app) runCheck(cmd *cobra.Command, operation engine.Command, gates []string) error {
	ctx := cmd.Context()

	run, err := a.evaluate(ctx, operation)
	if err != nil {
		return err
	}
	defer run.Close()

	result, err := a.checkPolicies(ctx, run, operation)
	if err != nil {
		return err
	}

	eval := run.Evaluation
	if a.printer.Structured() {
		v := checkView{SiteID: eval.SiteID, Status: eval.Result.Status, Policy: result}
		if len(gates) > 0 {
			v.Gates = make(map[string]bool, len(gates))
			for _, g := range gates {
				v.Gates[g] = eval.Facts.Get(g)
			}
		}
		if err := a.printer.Encode(v); err != nil {
			return err
		}
		if !result.Allowed {
			return ErrPolicyDenied
		}
		return nil
	}

	a.printer.Print("%s: %s", eval.Domain, a.statusLabel(eval.Result.Status))

	if len(gates) > 0 {
		table := output.NewTable(a.printer.Out(), "Gate", "Value")
		for _, g := range gates {
			table.AddRow(g, a.printer.Bool(eval.Facts.Get(g)))
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if err := a.printFindings(a.printer.Out(), result); err != nil {
		return err
	}

	a.printer.Success("%s allowed for %s", operation, eval.Domain)
	return nil
}
