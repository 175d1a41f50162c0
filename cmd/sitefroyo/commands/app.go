package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/sitefroyo/internal/output"
	"github.com/openfroyo/sitefroyo/pkg/config"
	"github.com/openfroyo/sitefroyo/pkg/engine"
	"github.com/openfroyo/sitefroyo/pkg/policy"
	"github.com/openfroyo/sitefroyo/pkg/providers"
	"github.com/openfroyo/sitefroyo/pkg/stores"
	"github.com/openfroyo/sitefroyo/pkg/telemetry"
)

// ErrPolicyDenied is returned when a guard policy blocks an operation.
var ErrPolicyDenied = errors.New("operation denied by policy")

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrPolicyDenied):
		return 2
	default:
		return 1
	}
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath   string
	manifestPath string
	outputFormat string
	jsonOutput   bool
	noColor      bool
	offline      bool
	backend      string
	strict       bool
}

// app is the state shared by every command of one invocation.
type app struct {
	version string
	opts    globalOptions

	settings  *config.Settings
	telemetry *telemetry.Telemetry
	logger    zerolog.Logger
	printer   *output.Printer

	// openBackend is replaced in tests.
	openBackend func(ctx context.Context, s *config.Settings, o providers.Options, l zerolog.Logger) (*providers.Backend, error)
}

func newApp(version string) *app {
	return &app{
		version:     version,
		telemetry:   telemetry.Nop(),
		logger:      zerolog.Nop(),
		openBackend: providers.Open,
	}
}

// setup reads settings and builds telemetry and the printer. It runs before
// every command.
func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.LoadSettings(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.backend != "" {
		settings.Backend = a.opts.backend
		if err := settings.Validate(); err != nil {
			return err
		}
	}
	a.settings = settings

	if os.Getenv("LOG_LEVEL") == "" {
		zerolog.SetGlobalLevel(telemetry.ParseLevel(settings.Log.Level))
	}

	tel, err := telemetry.NewTelemetry(telemetryConfig(settings, a.version), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.telemetry = tel
	a.logger = tel.Logger.Zerolog()

	format := output.Format(a.opts.outputFormat)
	if a.opts.jsonOutput {
		format = output.FormatJSON
	}
	if format, err = output.ParseFormat(string(format)); err != nil {
		return err
	}
	a.printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), format, output.ResolveColors(a.opts.noColor))

	return nil
}

// shutdown flushes telemetry.
func (a *app) shutdown(ctx context.Context) {
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

func telemetryConfig(s *config.Settings, version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Logging.Level = s.Log.Level
	cfg.Logging.Format = s.Log.Format
	cfg.Tracing.Enabled = s.Tracing.Exporter != "none"
	cfg.Tracing.Exporter = s.Tracing.Exporter
	cfg.Tracing.Endpoint = s.Tracing.Endpoint
	if s.Metrics.Listen != "" {
		cfg.Metrics.ListenAddress = s.Metrics.Listen
	}
	return cfg
}

// loadManifest loads the manifest named by --manifest, or the first default
// manifest in the working directory.
func (a *app) loadManifest(ctx context.Context) (*config.Manifest, string, error) {
	path := a.opts.manifestPath
	if path == "" {
		found, err := config.FindManifest(".")
		if err != nil {
			return nil, "", err
		}
		path = found
	}

	manifest, err := a.loadManifestFrom(ctx, path)
	if err != nil {
		return nil, path, err
	}
	return manifest, path, nil
}

func (a *app) loadManifestFrom(ctx context.Context, path string) (*config.Manifest, error) {
	return config.NewLoader().Load(ctx, path)
}

func (a *app) backend(ctx context.Context) (*providers.Backend, error) {
	return a.openBackend(ctx, a.settings, providers.Options{Offline: a.opts.offline}, a.telemetry.Logger.Component("providers"))
}

// siteRun is one gathered and evaluated site.
type siteRun struct {
	Manifest   *config.Manifest
	Site       engine.SiteSpec
	Context    *engine.SiteContext
	Evaluation *engine.Evaluation
	Backend    *providers.Backend
}

// Close releases the backend.
func (r *siteRun) Close() error {
	if r == nil {
		return nil
	}
	return r.Backend.Close()
}

// evaluate loads the manifest, gathers a fresh context, evaluates it and
// records the result in the status history. The caller closes the run.
func (a *app) evaluate(ctx context.Context, command engine.Command) (*siteRun, error) {
	manifest, _, err := a.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	backend, err := a.backend(ctx)
	if err != nil {
		return nil, err
	}

	run, err := a.evaluateWith(ctx, backend, manifest, command)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return run, nil
}

func (a *app) evaluateWith(ctx context.Context, backend *providers.Backend, manifest *config.Manifest, command engine.Command) (*siteRun, error) {
	site := manifest.ToSiteSpec()
	logger := a.telemetry.Logger.ForSite(engine.SiteIDFromDomain(site.Domain), site.Domain, string(command))

	gatherer := engine.NewGatherer(backend.Collaborators,
		engine.WithGathererLogger(logger),
		engine.WithGathererTelemetry(a.telemetry.Metrics, a.telemetry.Tracer),
		engine.WithSystemVersion(a.version),
	)

	sc, err := gatherer.Gather(ctx, site, command)
	if err != nil {
		return nil, err
	}

	evaluator := engine.NewEvaluator(
		engine.WithEvaluatorLogger(logger),
		engine.WithEvaluatorTelemetry(a.telemetry.Metrics, a.telemetry.Tracer),
		engine.WithStrictOrdering(a.opts.strict),
	)

	eval, err := evaluator.Evaluate(ctx, sc)
	if err != nil {
		return nil, err
	}

	if backend.Store != nil {
		if _, err := backend.Store.RecordStatus(ctx, eval); err != nil {
			logger.Warn().Err(err).Msg("Failed to record status history")
		}
	}

	return &siteRun{
		Manifest:   manifest,
		Site:       site,
		Context:    sc,
		Evaluation: eval,
		Backend:    backend,
	}, nil
}

// checkPolicies runs the guard policies for operation against run.
func (a *app) checkPolicies(ctx context.Context, run *siteRun, operation engine.Command) (*policy.Result, error) {
	eng, err := a.policyEngine(ctx)
	if err != nil {
		return nil, err
	}
	return eng.Evaluate(ctx, policy.NewInput(operation, run.Evaluation, run.Context))
}

// policyEngine returns the built-in policies plus those under the
// configured policy paths.
func (a *app) policyEngine(ctx context.Context) (*policy.Engine, error) {
	eng, err := policy.NewEngine(ctx, a.logger, policy.WithTelemetry(a.telemetry.Metrics, a.telemetry.Tracer))
	if err != nil {
		return nil, err
	}
	if err := eng.LoadPolicies(ctx, a.settings.Policy.Paths); err != nil {
		return nil, err
	}
	return eng, nil
}

// printFindings writes policy findings and returns ErrPolicyDenied when
// the operation is blocked.
func (a *app) printFindings(w io.Writer, result *policy.Result) error {
	for _, v := range result.Warnings {
		a.printer.Warning("%s: %s", v.Policy, v.Message)
	}
	for _, msg := range result.Errors {
		a.printer.Warning("policy error: %s", msg)
	}
	for _, v := range result.Violations {
		a.printer.Error("%s (%s): %s", v.Policy, v.Severity, v.Message)
		if v.Remediation != "" {
			fmt.Fprintf(w, "  %s\n", a.printer.Dim(v.Remediation))
		}
	}
	if !result.Allowed {
		return ErrPolicyDenied
	}
	return nil
}

// localStore opens the backend and returns its store.
func (a *app) localStore(ctx context.Context) (*providers.Backend, *stores.SQLiteStore, error) {
	backend, err := a.backend(ctx)
	if err != nil {
		return nil, nil, err
	}
	if backend.Store == nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("no local store configured")
	}
	return backend, backend.Store, nil
}

func (a *app) statusLabel(s engine.Status) string {
	return a.printer.Status(string(s), s.Rank(), engine.StatusSiteFunctional.Rank())
}
