// Package telemetry provides observability instrumentation for sitefroyo.
//
// It integrates structured logging (zerolog), tracing (OpenTelemetry) and
// metrics (Prometheus) behind one Telemetry value that commands build once at
// startup and pass to the engine.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.NewTelemetry(cfg, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	logger := tel.Logger.ForSite(siteID, domain, "info")
//	logger.Info().Msg("Evaluating facts")
//
// # Tracing
//
// Fact evaluation runs inside a "facts.evaluate" span and each external
// collaborator call gets a "collaborator.<name>" child span:
//
//	ctx, span := tel.Tracer.StartEvaluationSpan(ctx, siteID, "info")
//	defer span.End()
//
// A nil *Tracer is valid and produces no-op spans, so library code never has
// to check.
//
// # Metrics
//
// Metrics are collected into a private registry and exposed by Serve, which
// the watch command runs alongside its evaluation loop:
//
//	sitefroyo_fact_evaluations_total{command,result}
//	sitefroyo_fact_evaluation_duration_seconds{command}
//	sitefroyo_facts_true{site}
//	sitefroyo_site_status{site,status}
//	sitefroyo_collaborator_calls_total{collaborator}
//	sitefroyo_collaborator_errors_total{collaborator}
//	sitefroyo_collaborator_duration_seconds{collaborator}
//	sitefroyo_policy_violations_total{policy,severity}
//
// Every Record and Set method is a no-op on a nil or disabled *Metrics.
package telemetry
