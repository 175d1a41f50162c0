package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sitefroyo/pkg/config"
	"github.com/openfroyo/sitefroyo/pkg/engine"
)

type validateView struct {
	Manifest    string   `json:"manifest" yaml:"manifest"`
	Domain      string   `json:"domain" yaml:"domain"`
	SiteID      string   `json:"site_id" yaml:"site_id"`
	Facts       int      `json:"facts" yaml:"facts"`
	CustomFacts []string `json:"custom_facts,omitempty" yaml:"custom_facts,omitempty"`
}

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the site manifest and its custom facts",
		Long: `Check the manifest against the site schema and field rules, compile its
custom facts and run the full catalog once against an empty context in
strict mode. Nothing is looked up over the network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			manifest, path, err := a.loadManifest(ctx)
			if err != nil {
				var me *config.ManifestError
				if errors.As(err, &me) {
					for _, ve := range me.Errors {
						a.printer.Error("%s", ve.String())
					}
				}
				return err
			}

			site := manifest.ToSiteSpec()
			catalog, err := engine.SiteCatalog(site)
			if err != nil {
				return err
			}
			if err := catalog.Validate(); err != nil {
				return err
			}

			sc := &engine.SiteContext{
				Site:       site,
				SiteID:     engine.SiteIDFromDomain(site.Domain),
				Command:    engine.CommandFacts,
				Parameters: engine.Parameters{},
			}
			evaluator := engine.NewEvaluator(
				engine.WithEvaluatorLogger(a.logger),
				engine.WithStrictOrdering(true),
			)
			if _, err := evaluator.Evaluate(ctx, sc); err != nil {
				return err
			}

			v := validateView{
				Manifest: path,
				Domain:   site.Domain,
				SiteID:   sc.SiteID,
				Facts:    len(catalog),
			}
			for _, f := range site.CustomFacts {
				v.CustomFacts = append(v.CustomFacts, f.Name)
			}

			if a.printer.Structured() {
				return a.printer.Encode(v)
			}

			a.printer.Success("%s is valid: %s, %d facts (%d custom)", path, v.Domain, v.Facts, len(v.CustomFacts))
			return nil
		},
	}
}
