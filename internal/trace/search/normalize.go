package search

import (
	"context"
	"time"
)

// DefaultBM25NormK is the default saturation constant for BM25 score
// normalization. Chosen so typical relevant hits land around 0.6-0.9;
// swappable via config without touching merge logic.
const DefaultBM25NormK = 8.0

// NormalizeBM25 maps an unbounded BM25 score into [0,1) using the saturating
// transform score/(score+k). Monotonic, so engine-side ordering survives.
func NormalizeBM25(raw, k float64) float64 {
	if raw <= 0 {
		return 0
	}
	if k <= 0 {
		k = DefaultBM25NormK
	}
	return raw / (raw + k)
}

// Clamp01 pins a cosine-style similarity into [0,1]. Float drift can push
// similarities epsilon outside the range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// withRetry runs fn up to attempts times with a fixed backoff between tries.
// Only for idempotent reads; redemption paths must never go through here.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
