package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/sitefroyo/pkg/engine"
	"github.com/openfroyo/sitefroyo/pkg/policy"
	"github.com/openfroyo/sitefroyo/pkg/providers"
)

const defaultWatchDebounce = 500 * time.Millisecond

type watchOptions struct {
	interval time.Duration
	debounce time.Duration
}

func newWatchCommand(a *app) *cobra.Command {
	opts := watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-evaluate the site when the manifest changes",
		Long: `Evaluate the site, then again whenever the manifest file changes and,
with --interval, on a fixed schedule. A line is printed each time the
status changes.

Policy files under the configured policy paths are reloaded on change.
When metrics.listen is set, Prometheus metrics are served there until the
command exits.`,
		Example: `  sitefroyo watch
  sitefroyo watch --interval 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.watch(cmd.Context(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "also re-evaluate on this interval (0 disables)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", defaultWatchDebounce, "wait this long after the last manifest change")

	return cmd
}

// watcher is the state of one watch run.
type watcher struct {
	a        *app
	path     string
	backend  *providers.Backend
	policies *policy.Engine
	last     engine.Status
}

func (a *app) watch(ctx context.Context, opts watchOptions) error {
	manifest, path, err := a.loadManifest(ctx)
	if err != nil {
		return err
	}
	if path, err = filepath.Abs(path); err != nil {
		return err
	}

	backend, err := a.backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	policies, err := a.policyEngine(ctx)
	if err != nil {
		return err
	}

	w := &watcher{a: a, path: path, backend: backend, policies: policies}

	run, err := a.evaluateWith(ctx, backend, manifest, engine.CommandWatch)
	if err != nil {
		return err
	}
	w.report(ctx, run)

	g, gctx := errgroup.WithContext(ctx)

	if a.settings.Metrics.Listen != "" {
		g.Go(func() error {
			a.logger.Info().Str("address", a.settings.Metrics.Listen).Msg("Serving metrics")
			return a.telemetry.Metrics.Serve(gctx)
		})
	}

	if len(a.settings.Policy.Paths) > 0 {
		g.Go(func() error {
			return policy.NewLoader(a.logger).Watch(gctx, a.settings.Policy.Paths, func(p []policy.Policy) error {
				return policies.AddPolicies(gctx, p)
			})
		})
	}

	g.Go(func() error {
		return w.loop(gctx, opts)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loop waits for manifest changes and interval ticks until ctx is done.
func (w *watcher) loop(ctx context.Context, opts watchOptions) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	// Editors replace files on save, so watch the directory.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.a.logger.Info().Str("manifest", w.path).Msg("Watching manifest")

	var tick <-chan time.Time
	if opts.interval > 0 {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := opts.debounce
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.a.logger.Debug().Str("op", event.Op.String()).Msg("Manifest changed")
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reevaluate(ctx)

		case <-tick:
			w.reevaluate(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.a.logger.Error().Err(err).Msg("Manifest watcher error")
		}
	}
}

// reevaluate reloads the manifest and evaluates it. Failures are logged
// and the previous status is kept.
func (w *watcher) reevaluate(ctx context.Context) {
	manifest, err := w.a.loadManifestFrom(ctx, w.path)
	if err != nil {
		w.a.printer.Error("%v", err)
		return
	}

	run, err := w.a.evaluateWith(ctx, w.backend, manifest, engine.CommandWatch)
	if err != nil {
		w.a.logger.Error().Err(err).Str("manifest", w.path).Msg("Evaluation failed")
		return
	}
	w.report(ctx, run)
}

// report prints the status when it differs from the last one, along with
// any policy findings.
func (w *watcher) report(ctx context.Context, run *siteRun) {
	eval := run.Evaluation
	if eval.Result.Status == w.last {
		w.a.logger.Debug().Str("status", string(eval.Result.Status)).Msg("Status unchanged")
		return
	}
	w.last = eval.Result.Status

	w.a.printer.Print("%s %s: %s",
		w.a.printer.Dim(eval.EvaluatedAt.Local().Format(time.TimeOnly)),
		eval.Domain,
		w.a.statusLabel(eval.Result.Status))
	if eval.Result.Message != "" {
		w.a.printer.Print("  %s", eval.Result.Message)
	}

	result, err := w.policies.Evaluate(ctx, policy.NewInput(engine.CommandWatch, eval, run.Context))
	if err != nil {
		w.a.logger.Warn().Err(err).Msg("Policy evaluation failed")
		return
	}
	// Nothing is blocked while watching; findings are informational.
	_ = w.a.printFindings(w.a.printer.Out(), result)
}
