package domain

import "time"

// Token is the provider's bearer credential.
type Token struct {
	Value    string
	IssuedAt time.Time
}

func (t Token) IsZero() bool {
	return t.Value == ""
}

// Fresh reports whether the token may still be used at now.
func (t Token) Fresh(now time.Time, refreshInterval time.Duration) bool {
	if t.IsZero() {
		return false
	}
	return now.Sub(t.IssuedAt) < refreshInterval
}
