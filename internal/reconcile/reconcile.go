package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"airlift/internal/services"
)

// Snapshotter yields the current platform → status view. The reconciler
// treats it as eventually consistent and never assumes two calls agree.
type Snapshotter func(ctx context.Context) (map[string]string, error)

// Mismatch is one platform whose observed status differs from expectation.
type Mismatch struct {
	Platform string `json:"platform"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Result reports how a reconciliation run ended. Exhausting the attempt
// budget is an expected outcome under eventual consistency, not an error:
// Converged stays false and Mismatches carries the final disagreement.
type Result struct {
	Converged  bool       `json:"converged"`
	Attempts   int        `json:"attempts"`
	Mismatches []Mismatch `json:"mismatches"`
}

// Run polls the snapshotter until every expected platform matches, the
// attempt budget runs out, or the context ends. The interval elapses between
// attempts, not after the last one.
func Run(ctx context.Context, snapshot Snapshotter, expected map[string]string, maxAttempts int, interval time.Duration) (Result, error) {
	if len(expected) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "reconcile", "run", "empty expectation set", nil)
	}
	if maxAttempts <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "reconcile", "run",
			fmt.Sprintf("maxAttempts must be positive, got %d", maxAttempts), nil)
	}

	result := Result{Mismatches: []Mismatch{}}
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		observed, err := snapshot(ctx)
		if err != nil {
			lastErr = err
			result.Mismatches = allMismatches(expected)
		} else {
			lastErr = nil
			result.Mismatches = compare(expected, observed)
			if len(result.Mismatches) == 0 {
				result.Converged = true
				return result, nil
			}
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(interval):
		}
	}

	if lastErr != nil {
		return result, fmt.Errorf("final snapshot failed: %w", lastErr)
	}
	return result, nil
}

// compare reports platforms present in both maps with differing values. An
// expected platform the snapshot has not surfaced yet is skipped, not counted
// against convergence.
func compare(expected, observed map[string]string) []Mismatch {
	mismatches := make([]Mismatch, 0)
	for platform, want := range expected {
		got, ok := observed[platform]
		if ok && got != want {
			mismatches = append(mismatches, Mismatch{Platform: platform, Expected: want, Actual: got})
		}
	}
	sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].Platform < mismatches[j].Platform })
	return mismatches
}

func allMismatches(expected map[string]string) []Mismatch {
	mismatches := make([]Mismatch, 0, len(expected))
	for platform, want := range expected {
		mismatches = append(mismatches, Mismatch{Platform: platform, Expected: want})
	}
	sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].Platform < mismatches[j].Platform })
	return mismatches
}
