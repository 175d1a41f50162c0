package stores

import (
	"time"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// StoredParameter is a persisted site parameter with its bookkeeping.
type StoredParameter struct {
	SiteID    string    `json:"site_id"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusRecord is one row of a site's status history.
type StatusRecord struct {
	ID          string          `json:"id"`
	SiteID      string          `json:"site_id"`
	Domain      string          `json:"domain"`
	Command     engine.Command  `json:"command"`
	Status      engine.Status   `json:"status"`
	Message     string          `json:"message"`
	TrueFacts   int             `json:"true_facts"`
	Facts       map[string]bool `json:"facts"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
	Duration    time.Duration   `json:"duration"`
}

// StatusChanged reports whether r differs in status from prev. A nil prev
// counts as a change.
func (r *StatusRecord) StatusChanged(prev *StatusRecord) bool {
	return prev == nil || prev.Status != r.Status
}
