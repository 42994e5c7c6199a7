package engine

import "time"

// Result summarizes one sync pass
type Result struct {
	Success     bool     `json:"success"`
	SyncedItems int      `json:"synced_items"`
	FailedItems int      `json:"failed_items"`
	Errors      []string `json:"errors,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// PullResult summarizes a pull reconciliation pass
type PullResult struct {
	Inserted      int `json:"inserted"`
	Updated       int `json:"updated"`
	SkippedLocal  int `json:"skipped_local"`
	SkippedQueued int `json:"skipped_queued"`
}

const (
	defaultMaxRetries        = 8
	defaultMaxUploadAttempts = 10
	defaultAutoSyncInterval  = 30 * time.Second

	baseRetryBackoff = 30 * time.Second
	maxRetryBackoff  = time.Hour
)

// retryBackoff returns the delay before the next attempt after
// retryCount prior failures: 30s doubling per failure, capped at 1h.
func retryBackoff(retryCount int) time.Duration {
	d := baseRetryBackoff
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	return d
}
