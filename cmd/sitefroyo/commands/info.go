package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sitefroyo/internal/output"
	"github.com/openfroyo/sitefroyo/pkg/engine"
)

type infoView struct {
	SiteID                 string                   `json:"site_id" yaml:"site_id"`
	Domain                 string                   `json:"domain" yaml:"domain"`
	Status                 engine.Status            `json:"status" yaml:"status"`
	Message                string                   `json:"message,omitempty" yaml:"message,omitempty"`
	Registrar              string                   `json:"registrar,omitempty" yaml:"registrar,omitempty"`
	Protected              bool                     `json:"protected" yaml:"protected"`
	HostedZoneID           string                   `json:"hosted_zone_id,omitempty" yaml:"hosted_zone_id,omitempty"`
	HostedZoneNameservers  []string                 `json:"hosted_zone_nameservers" yaml:"hosted_zone_nameservers"`
	DNSResolvedNameservers []string                 `json:"dns_resolved_nameservers" yaml:"dns_resolved_nameservers"`
	RegistrarNameservers   []string                 `json:"registrar_nameservers" yaml:"registrar_nameservers"`
	OwnershipRecord        string                   `json:"ownership_record,omitempty" yaml:"ownership_record,omitempty"`
	Connection             *engine.ConnectionStatus `json:"connection,omitempty" yaml:"connection,omitempty"`
	WebmasterEmail         string                   `json:"webmaster_email,omitempty" yaml:"webmaster_email,omitempty"`
}

func newInfoView(run *siteRun) infoView {
	sc := run.Context
	eval := run.Evaluation

	v := infoView{
		SiteID:                 eval.SiteID,
		Domain:                 eval.Domain,
		Status:                 eval.Result.Status,
		Message:                eval.Result.Message,
		Registrar:              sc.Site.Registrar,
		Protected:              sc.Site.Protected,
		HostedZoneNameservers:  sc.HostedZoneNameservers,
		DNSResolvedNameservers: sc.DNSResolvedNameservers,
		RegistrarNameservers:   sc.RegistrarNameservers,
		OwnershipRecord:        sc.DNSResolvedTxtRecord,
		Connection:             sc.Connection,
		WebmasterEmail:         sc.WebmasterEmail,
	}
	if sc.HostedZone != nil {
		v.HostedZoneID = sc.HostedZone.ZoneID
	}
	return v
}

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the site's status and the signals behind it",
		Long: `Show the status and message together with the observed signals: hosted
zone, nameservers as seen by DNS, the hosted zone and the registrar, the
ownership record and the live connection probe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := a.evaluate(cmd.Context(), engine.CommandInfo)
			if err != nil {
				return err
			}
			defer run.Close()

			v := newInfoView(run)
			if a.printer.Structured() {
				return a.printer.Encode(v)
			}

			table := output.NewTable(a.printer.Out())
			table.AddRow("Domain", v.Domain)
			table.AddRow("Site ID", v.SiteID)
			table.AddRow("Status", a.statusLabel(v.Status))
			table.AddRow("Registrar", orNone(v.Registrar))
			table.AddRow("Protected", a.printer.Bool(v.Protected))
			table.AddRow("Hosted zone", orNone(v.HostedZoneID))
			table.AddRow("Zone nameservers", listOrNone(v.HostedZoneNameservers))
			table.AddRow("DNS nameservers", listOrNone(v.DNSResolvedNameservers))
			table.AddRow("Registrar nameservers", listOrNone(v.RegistrarNameservers))
			table.AddRow("Ownership record", orNone(v.OwnershipRecord))
			table.AddRow("Connection", connectionSummary(v.Connection))
			table.AddRow("Webmaster", orNone(v.WebmasterEmail))
			if err := table.Render(); err != nil {
				return err
			}

			if v.Message != "" {
				a.printer.Print("")
				a.printer.Print("%s", v.Message)
			}
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func listOrNone(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}

func connectionSummary(c *engine.ConnectionStatus) string {
	if c == nil {
		return "-"
	}
	if c.StatusCode < 0 {
		return fmt.Sprintf("failed (%s)", c.StatusMessage)
	}
	return fmt.Sprintf("%d %s in %s", c.StatusCode, c.StatusMessage, c.Timing.Round(time.Millisecond))
}
