// Package policy guards sitefroyo operations with Open Policy Agent (OPA)
// policies written in Rego.
//
// Policies never influence facts or status. They read a finished
// evaluation and decide whether an operation such as destroy or deploy
// should go ahead.
//
// # Input
//
// Every policy sees the same input document:
//
//	{
//	    "operation":  "destroy",
//	    "site_id":    "example-com",
//	    "site":       {"domain": "example.com", "protected": true, ...},
//	    "facts":      {"isProtectedManifest": true, ...},
//	    "status":     "site_functional",
//	    "parameters": {"hosted-zone-id": "Z0123456789ABC", ...}
//	}
//
// # Writing policies
//
// A policy module defines a "deny" set. Members are either strings or
// objects with "message" and optional "severity" and "remediation":
//
//	# Only apex domains may be hosted.
//	# severity: error
//	# operations: deploy
//	package custom.apex
//
//	import rego.v1
//
//	deny contains msg if {
//	    contains(input.site.domain, "www.")
//	    msg := "subdomain sites are not supported"
//	}
//
// Findings with severity error or critical deny the operation; warning and
// info findings are reported only.
//
// # Built-in Policies
//
//   - protected-site: denies destroy of protected sites
//   - waf-config: denies deploy with an enabled WAF that has no rules
//   - deploy-before-delegation: warns about deploying before delegation
//   - protection-drift: warns when manifest and parameters disagree
//   - system-version: notes that deploy will record a new tool version
//
// Extra policies are loaded from the paths in the policy.paths setting and
// can be reloaded on change with Loader.Watch.
package policy
