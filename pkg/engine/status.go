package engine

import (
	"encoding/json"
	"fmt"

	"github.com/openfroyo/sitefroyo/pkg/rules"
)

// Status is a site's lifecycle stage. Stages are totally ordered.
type Status string

const (
	// StatusNotStarted indicates no hosted zone has been created yet.
	StatusNotStarted Status = "not_started"

	// StatusHostedZoneAwaitingNameserverConfig indicates the hosted zone exists
	// but delegation is not verified or has not propagated.
	StatusHostedZoneAwaitingNameserverConfig Status = "hosted_zone_awaiting_ns_config"

	// StatusHostedZoneOk indicates the hosted zone is verified and delegated.
	StatusHostedZoneOk Status = "hosted_zone_ok"

	// StatusSiteFunctional indicates the site answers HTTP 200.
	StatusSiteFunctional Status = "site_functional"
)

// statusFacts maps each status to its fact, highest stage first.
var statusFacts = []struct {
	status Status
	fact   string
}{
	{StatusSiteFunctional, FactIsStatusSiteFunctional},
	{StatusHostedZoneOk, FactIsStatusHostedZoneOk},
	{StatusHostedZoneAwaitingNameserverConfig, FactIsStatusHostedZoneAwaitingNameserverConfig},
	{StatusNotStarted, FactIsStatusNotStarted},
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusNotStarted,
		StatusHostedZoneAwaitingNameserverConfig,
		StatusHostedZoneOk,
		StatusSiteFunctional,
	}
}

// Rank returns the position of s in the lifecycle, or -1 if s is invalid.
func (s Status) Rank() int {
	for i, st := range AllStatuses() {
		if st == s {
			return i
		}
	}
	return -1
}

// AtLeast reports whether s has reached other in the lifecycle.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank()
}

// Fact returns the status fact backing s.
func (s Status) Fact() string {
	for _, sf := range statusFacts {
		if sf.status == s {
			return sf.fact
		}
	}
	return ""
}

// Validate checks if the status is valid.
func (s Status) Validate() error {
	switch s {
	case StatusNotStarted, StatusHostedZoneAwaitingNameserverConfig,
		StatusHostedZoneOk, StatusSiteFunctional:
		return nil
	default:
		return fmt.Errorf("invalid site status: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Status(str)
	return s.Validate()
}

// SelectStatus picks the highest stage whose status fact is true. The status
// facts overlap (a functional site also satisfies hosted-zone-ok), so the
// highest one wins. A map with no true status fact yields StatusNotStarted.
func SelectStatus(facts rules.Facts) Status {
	for _, sf := range statusFacts {
		if facts.Get(sf.fact) {
			return sf.status
		}
	}
	return StatusNotStarted
}

// StatusResult is the classified status of a site.
type StatusResult struct {
	Status  Status `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
}

// ClassifyStatus reduces facts to one status plus operator guidance. It never
// fails and has no side effects.
func ClassifyStatus(facts rules.Facts, sc *SiteContext) StatusResult {
	status := SelectStatus(facts)
	return StatusResult{
		Status:  status,
		Message: StatusMessage(status, facts, sc),
	}
}
