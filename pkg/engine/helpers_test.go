package engine

import (
	"context"
	"testing"

	"github.com/openfroyo/sitefroyo/pkg/rules"
)

const testZoneID = "Z0123456789ABC"

var testNameservers = []string{"ns1.example", "ns2.example"}

// newContext returns a context for a site with nothing deployed.
func newContext() *SiteContext {
	return &SiteContext{
		Site:          SiteSpec{Domain: "example.com"},
		SiteID:        "example-com",
		Command:       CommandInfo,
		SystemVersion: "1.2.3",
		Parameters:    Parameters{},
	}
}

// verifiedContext returns a context whose hosted zone is verified and
// delegated, but which has no HTTP response yet.
func verifiedContext() *SiteContext {
	sc := newContext()
	sc.Parameters[ParamHostedZoneID] = testZoneID
	sc.HostedZone = &HostedZoneAttributes{Name: "example.com", ZoneID: testZoneID}
	sc.HostedZoneNameservers = []string{"ns1.example", "ns2.example"}
	sc.DNSResolvedNameservers = []string{"ns2.example", "ns1.example"}
	sc.DNSResolvedTxtRecord = testZoneID
	return sc
}

func evaluate(t *testing.T, sc *SiteContext) rules.Facts {
	t.Helper()
	facts, err := EvaluateFacts(context.Background(), sc, rules.WithStrictOrdering())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return facts
}

func intPtr(n int) *int { return &n }
