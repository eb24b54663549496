package repository

import "time"

// Period identifies a forecast bucket width.
type Period string

const (
	PeriodH1 Period = "h1"
	PeriodD1 Period = "d1"
)

// Width returns the bucket duration for the period.
func (p Period) Width() (time.Duration, bool) {
	switch p {
	case PeriodH1:
		return time.Hour, true
	case PeriodD1:
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}

// IsValidPeriod returns true if p has a known bucket width.
func IsValidPeriod(p Period) bool {
	_, ok := p.Width()
	return ok
}
