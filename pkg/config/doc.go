// Package config loads site manifests and CLI settings for sitefroyo.
//
// # Site manifests
//
// A site is described by site.cue or site.yaml. Both formats are unified
// with the built-in #Site CUE schema and then checked with struct
// validation tags, so they accept exactly the same documents:
//
//	domain:         "example.com"
//	protected:      true
//	registrar:      "dynadot"
//	webmasterEmail: "webmaster@example.com"
//	webHosting: {
//	    type: "static"
//	    waf: {enabled: true, rateLimit: 2000}
//	}
//	pipeline: {type: "hugo", source: "github.com/example/site"}
//	facts: [
//	    {name: "isApex", expr: "domain.count('.') == 1"},
//	]
//
// Load errors are returned as *ManifestError with file, line and field
// path for every problem found.
//
// # Settings
//
// LoadSettings reads .sitefroyo.yaml (working directory, then $HOME) and
// SITEFROYO_* environment variables through viper:
//
//	backend: aws            # aws | local
//	parameter_prefix: /sitefroyo
//	aws: {region: us-east-1, profile: ""}
//	state: {path: ~/.sitefroyo/state.db}
//	policy: {paths: []}
//	log: {level: info, format: console}
//	metrics: {listen: ""}
//	tracing: {exporter: none, endpoint: ""}
//	probe: {timeout: 1s}
package config
