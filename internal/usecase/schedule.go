package usecase

import (
	"fmt"
	"time"

	domrepo "github.com/erpesh/forex-server/internal/domain/repository"
)

// NextBucketStart aligns to the start of the period bucket after now, plus
// offset whole buckets. Offset 0 is never the current bucket: a request at
// 10:17 for h1 targets 11:00, and day-granularity always advances at least
// one full day. This keeps predictions for a bucket idempotent no matter
// when inside the bucket the request arrives.
func NextBucketStart(now time.Time, p domrepo.Period, offset int) (time.Time, error) {
	width, ok := p.Width()
	if !ok {
		return time.Time{}, fmt.Errorf("period %q has no bucket width", p)
	}
	return now.UTC().Truncate(width).Add(time.Duration(offset+1) * width), nil
}

// TargetTimestamps returns the steps forecast target timestamps for the
// period, chronologically ordered, one bucket apart.
func TargetTimestamps(now time.Time, p domrepo.Period, steps int) ([]time.Time, error) {
	out := make([]time.Time, 0, steps)
	for i := 0; i < steps; i++ {
		ts, err := NextBucketStart(now, p, i)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, nil
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

var _ domrepo.Clock = SystemClock{}
