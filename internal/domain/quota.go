package domain

import (
	"fmt"
	"time"
)

// DownloadQuota counts a user's downloads on Date (YYYY-MM-DD, service zone).
type DownloadQuota struct {
	UserID string
	Date   string
	Count  int
}

// QuotaExceededError is returned once a user has used the whole daily limit.
type QuotaExceededError struct {
	Limit   int
	ResetIn time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily download limit of %d reached, resets in %s", e.Limit, e.ResetIn.Round(time.Minute))
}
