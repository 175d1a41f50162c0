package policy

// Built-in policy names.
const (
	PolicyProtectedSite          = "protected-site"
	PolicyDeployBeforeDelegation = "deploy-before-delegation"
	PolicyWAFConfig              = "waf-config"
	PolicyProtectionDrift        = "protection-drift"
	PolicySystemVersion          = "system-version"
)

// BuiltinPolicies returns the guard policies every engine starts with.
func BuiltinPolicies() []Policy {
	return []Policy{
		protectedSitePolicy(),
		deployBeforeDelegationPolicy(),
		wafConfigPolicy(),
		protectionDriftPolicy(),
		systemVersionPolicy(),
	}
}

// protectedSitePolicy blocks destroy of protected sites.
func protectedSitePolicy() Policy {
	return Policy{
		Name:        PolicyProtectedSite,
		Description: "Refuses to destroy a site marked protected in the manifest or in its parameters",
		Severity:    SeverityCritical,
		Enabled:     true,
		Operations:  []string{"destroy"},
		Source:      "builtin",
		Rego: `package sitefroyo.policies.protected

import rego.v1

deny contains violation if {
	input.facts.isProtectedManifest
	violation := {
		"message": sprintf("Site %s is protected in its manifest", [input.site.domain]),
		"remediation": "Set protected: false in the manifest and deploy before destroying",
	}
}

deny contains violation if {
	input.facts.isProtectedParam
	not input.facts.isProtectedManifest
	violation := {
		"message": sprintf("Site %s is protected by its persisted parameters", [input.site.domain]),
		"remediation": "Deploy with protected: false to clear the protected parameter",
	}
}`,
	}
}

// deployBeforeDelegationPolicy warns when deploying before nameservers
// are delegated, since certificate validation cannot complete.
func deployBeforeDelegationPolicy() Policy {
	return Policy{
		Name:        PolicyDeployBeforeDelegation,
		Description: "Warns about deploying before the hosted zone is delegated",
		Severity:    SeverityWarning,
		Enabled:     true,
		Operations:  []string{"deploy"},
		Source:      "builtin",
		Rego: `package sitefroyo.policies.delegation

import rego.v1

deny contains violation if {
	input.status == "hosted_zone_awaiting_ns_config"
	violation := {
		"message": "Nameservers are not delegated to the hosted zone yet; certificate validation will wait for DNS",
		"remediation": "Run info for the nameservers to configure at the registrar",
	}
}`,
	}
}

// wafConfigPolicy blocks deploys with an enabled WAF that has no rules.
func wafConfigPolicy() Policy {
	return Policy{
		Name:        PolicyWAFConfig,
		Description: "Requires an enabled WAF to declare a rate limit or managed rules",
		Severity:    SeverityError,
		Enabled:     true,
		Operations:  []string{"deploy"},
		Source:      "builtin",
		Rego: `package sitefroyo.policies.waf

import rego.v1

deny contains violation if {
	not input.facts.isWafConfigSane
	violation := {
		"message": "WAF is enabled without a rate limit or managed rules",
		"remediation": "Add webHosting.waf.rateLimit or webHosting.waf.managedRules",
	}
}`,
	}
}

// protectionDriftPolicy warns when manifest and parameters disagree on
// protection.
func protectionDriftPolicy() Policy {
	return Policy{
		Name:        PolicyProtectionDrift,
		Description: "Warns when manifest and persisted protection flags differ",
		Severity:    SeverityWarning,
		Enabled:     true,
		Source:      "builtin",
		Rego: `package sitefroyo.policies.drift

import rego.v1

deny contains violation if {
	input.facts.hasHostedZoneIdParam
	manifest := object.get(input.facts, "isProtectedManifest", false)
	param := object.get(input.facts, "isProtectedParam", false)
	manifest != param
	violation := {
		"message": sprintf("Protection drift: manifest=%v, parameters=%v", [manifest, param]),
		"remediation": "Deploy to bring the parameters in line with the manifest",
	}
}`,
	}
}

// systemVersionPolicy notes that a deploy will change the recorded tool
// version.
func systemVersionPolicy() Policy {
	return Policy{
		Name:        PolicySystemVersion,
		Description: "Reports when the site was last deployed by a different version",
		Severity:    SeverityInfo,
		Enabled:     true,
		Operations:  []string{"deploy"},
		Source:      "builtin",
		Rego: `package sitefroyo.policies.version

import rego.v1

deny contains violation if {
	input.facts.hasSystemVersionParam
	not input.facts.isSystemVersionCurrent
	violation := sprintf("Site was deployed by version %s; this deploy will record the current version", [input.parameters["system-version"]])
}`,
	}
}
