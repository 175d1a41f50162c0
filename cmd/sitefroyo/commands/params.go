package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sitefroyo/internal/output"
	"github.com/openfroyo/sitefroyo/pkg/config"
	"github.com/openfroyo/sitefroyo/pkg/engine"
)

func newParamsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Inspect and edit persisted site parameters",
		Long: `Persisted parameters are what earlier deploys recorded about the site,
such as the hosted zone ID or the protected flag.

list reads from the configured backend. set and delete only work with the
local backend; the aws backend's parameters are owned by deploys.`,
	}

	cmd.AddCommand(newParamsListCommand(a))
	cmd.AddCommand(newParamsSetCommand(a))
	cmd.AddCommand(newParamsDeleteCommand(a))

	return cmd
}

// siteIDArg returns the site ID from args, or from the manifest when no
// argument is given.
func (a *app) siteIDArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return engine.SiteIDFromDomain(args[0]), nil
	}
	manifest, _, err := a.loadManifest(cmd.Context())
	if err != nil {
		return "", err
	}
	return engine.SiteIDFromDomain(manifest.Domain), nil
}

func newParamsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [domain]",
		Short: "List a site's parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			siteID, err := a.siteIDArg(cmd, args)
			if err != nil {
				return err
			}

			backend, err := a.backend(ctx)
			if err != nil {
				return err
			}
			defer backend.Close()

			store := backend.Collaborators.Parameters
			if store == nil {
				return fmt.Errorf("no parameter store available (offline with the %s backend)", a.settings.Backend)
			}

			list, err := store.GetParameters(ctx, siteID)
			if err != nil {
				return err
			}
			params := engine.ParametersFromList(list)

			if a.printer.Structured() {
				return a.printer.Encode(params)
			}

			table := output.NewTable(a.printer.Out(), "Parameter", "Value")
			for _, p := range params.Sorted() {
				table.AddRow(p.Param, p.Value)
			}
			if table.Len() == 0 {
				a.printer.Print("No parameters for %s", siteID)
				return nil
			}
			return table.Render()
		},
	}
}

func (a *app) requireLocal() error {
	if a.settings.Backend != config.BackendLocal {
		return fmt.Errorf("parameters can only be changed with the local backend (current: %s)", a.settings.Backend)
	}
	return nil
}

func newParamsSetCommand(a *app) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Set a parameter in the local store",
		Example: `  sitefroyo params set hosted-zone-id Z0123456789ABC
  sitefroyo params set protected true --domain example.com`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLocal(); err != nil {
				return err
			}
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

			if err := store.PutParameter(ctx, siteID, args[0], args[1]); err != nil {
				return err
			}
			a.printer.Success("%s/%s set", siteID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "site domain (default: from the manifest)")

	return cmd
}

func newParamsDeleteCommand(a *app) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a parameter from the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLocal(); err != nil {
				return err
			}
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

			if err := store.DeleteParameter(ctx, siteID, args[0]); err != nil {
				return err
			}
			a.printer.Success("%s/%s deleted", siteID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "site domain (default: from the manifest)")

	return cmd
}
