// Package engine derives a website's deployment status from observed reality.
//
// # Overview
//
// Each command runs the same three steps:
//
//  1. Gather - query collaborators concurrently and build a SiteContext
//     (Gatherer)
//  2. Facts - evaluate the ordered fact catalog against the context
//     (EvaluateFacts, Evaluator)
//  3. Status - reduce the facts to one of four lifecycle stages plus an
//     operator message (ClassifyStatus)
//
// Nothing is cached between commands. Every invocation gathers and evaluates
// from scratch.
//
// # Fact Catalog
//
// Catalog returns about forty named facts in a fixed order. A fact may only
// read facts declared before it; reads of anything else return false. The
// families, in order, are protection and system version, bootstrap identity,
// hosted zone and DNS observability, certificate and storage, notifications,
// cross-signal agreement, registrar identity, deployment gating, CDN
// bookkeeping and finally the four status facts.
//
// Manifests may append their own facts as Starlark expressions; see
// CustomFactRules.
//
// # Status
//
// The lifecycle is
//
//	not_started -> hosted_zone_awaiting_ns_config -> hosted_zone_ok -> site_functional
//
// Each stage has a status fact whose formula embeds the negation of the
// stage before it:
//
//	not_started     = !hasHostedZoneIdParam
//	awaiting        = hasHostedZoneIdParam && (!hostedZoneVerified || !dnsMatch)
//	hosted_zone_ok  = (hostedZoneVerified && !awaiting) ||
//	                  (isSelfHostedRegistrarDomain && !awaiting && registrarMatch)
//	site_functional = hosted_zone_ok && has200ConnectionStatus
//
// SelectStatus returns the highest stage whose fact is true.
//
// # Errors
//
// Collaborator failures never reach the rules engine: the Gatherer logs them
// and leaves the corresponding context field neutral. A failing predicate is
// fatal and surfaces as a permanent EngineError with code PREDICATE_FAILED.
package engine
