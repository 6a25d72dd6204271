package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/notifyhub/xnft-notify/internal/domain"
	"github.com/notifyhub/xnft-notify/internal/worker"
)

func identity(_ context.Context, s string) (string, bool) { return s, true }

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("H%d", i)
	}
	return out
}

// TestRunBatches_BatchCountAndSingleInvocation verifies ceil(N/B) batches are
// produced and every item is resolved exactly once.
func TestRunBatches_BatchCountAndSingleInvocation(t *testing.T) {
	tests := []struct {
		n, size, wantBatches int
	}{
		{0, 1, 0},
		{1, 1, 1},
		{5, 1, 5},
		{5, 2, 3},
		{10, 5, 2},
		{11, 5, 3},
		{3, 100, 1},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("n=%d size=%d", tc.n, tc.size), func(t *testing.T) {
			var mu sync.Mutex
			calls := make(map[string]int)
			batches := 0

			in := items(tc.n)
			results, err := worker.RunBatches(context.Background(), in,
				worker.BatchOptions{Size: tc.size, OnBatch: func(worker.BatchStats) { batches++ }},
				func(_ context.Context, s string) (string, bool) {
					mu.Lock()
					calls[s]++
					mu.Unlock()
					return s, true
				})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if batches != tc.wantBatches {
				t.Fatalf("expected %d batches, got %d", tc.wantBatches, batches)
			}
			if got := worker.BatchCount(tc.n, tc.size); got != tc.wantBatches {
				t.Fatalf("BatchCount: expected %d, got %d", tc.wantBatches, got)
			}
			if len(results) != tc.n {
				t.Fatalf("expected %d results, got %d", tc.n, len(results))
			}
			for _, s := range in {
				if calls[s] != 1 {
					t.Fatalf("item %s resolved %d times", s, calls[s])
				}
			}
		})
	}
}

// TestRunBatches_PreservesOrder verifies a slow item 0 and a fast item 1 in the
// same batch still come back as output[0] and output[1].
func TestRunBatches_PreservesOrder(t *testing.T) {
	in := []string{"slow", "fast", "medium", "instant"}
	delays := map[string]time.Duration{
		"slow":    60 * time.Millisecond,
		"fast":    5 * time.Millisecond,
		"medium":  30 * time.Millisecond,
		"instant": 0,
	}

	results, err := worker.RunBatches(context.Background(), in, worker.BatchOptions{Size: 4},
		func(_ context.Context, s string) (string, bool) {
			time.Sleep(delays[s])
			return "U-" + s, true
		})
	if err != nil {
		t.Fatal(err)
	}

	for i, s := range in {
		if results[i].Value != "U-"+s {
			t.Fatalf("position %d: expected U-%s, got %q", i, s, results[i].Value)
		}
	}
}

func TestRunBatches_AbsentDoesNotBlockOthers(t *testing.T) {
	in := items(7)
	results, err := worker.RunBatches(context.Background(), in, worker.BatchOptions{Size: 3},
		func(_ context.Context, s string) (string, bool) {
			if s == "H1" || s == "H3" || s == "H4" {
				return "", false
			}
			return "U" + s[1:], true
		})
	if err != nil {
		t.Fatal(err)
	}

	got := worker.Values(results)
	want := []string{"U0", "U2", "U5", "U6"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if results[1].Resolved || !results[2].Resolved {
		t.Fatalf("unexpected resolved flags: %+v", results)
	}
}

// TestRunBatches_Scenario covers three holders with batch size 2 where the
// middle one cannot be resolved.
func TestRunBatches_Scenario(t *testing.T) {
	lookup := map[string]string{"H1": "U1", "H3": "U3"}
	var seen [][]string

	var mu sync.Mutex
	var current []string
	results, err := worker.RunBatches(context.Background(), []string{"H1", "H2", "H3"},
		worker.BatchOptions{Size: 2, OnBatch: func(worker.BatchStats) {
			seen = append(seen, current)
			current = nil
		}},
		func(_ context.Context, h string) (string, bool) {
			mu.Lock()
			current = append(current, h)
			mu.Unlock()
			u, ok := lookup[h]
			return u, ok
		})
	if err != nil {
		t.Fatal(err)
	}

	if got := worker.Values(results); fmt.Sprint(got) != "[U1 U3]" {
		t.Fatalf("expected [U1 U3], got %v", got)
	}
	if len(seen) != 2 || len(seen[0]) != 2 || len(seen[1]) != 1 || seen[1][0] != "H3" {
		t.Fatalf("expected batches [[H1 H2] [H3]], got %v", seen)
	}
}

// TestRunBatches_BoundedConcurrency verifies at most Size resolutions are in
// flight and a batch never overlaps the next one.
func TestRunBatches_BoundedConcurrency(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	_, err := worker.RunBatches(context.Background(), items(20), worker.BatchOptions{Size: 4},
		func(_ context.Context, s string) (string, bool) {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return s, true
		})
	if err != nil {
		t.Fatal(err)
	}
	if m := maxInFlight.Load(); m > 4 {
		t.Fatalf("expected at most 4 concurrent resolutions, saw %d", m)
	}
}

func TestRunBatches_DelayOnlyBetweenBatches(t *testing.T) {
	const delay = 40 * time.Millisecond

	start := time.Now()
	if _, err := worker.RunBatches(context.Background(), items(3), worker.BatchOptions{Size: 1, Delay: delay}, identity); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Fatalf("expected at least two delays (%v), took %v", 2*delay, elapsed)
	}

	// A single batch has nothing to wait for.
	start = time.Now()
	if _, err := worker.RunBatches(context.Background(), items(3), worker.BatchOptions{Size: 3, Delay: time.Second}, identity); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("expected no trailing delay, took %v", elapsed)
	}
}

func TestRunBatches_InvalidBatchSize(t *testing.T) {
	called := false
	_, err := worker.RunBatches(context.Background(), items(3), worker.BatchOptions{Size: 0},
		func(_ context.Context, s string) (string, bool) {
			called = true
			return s, true
		})
	if !errors.Is(err, domain.ErrInvalidBatchSize) {
		t.Fatalf("expected ErrInvalidBatchSize, got %v", err)
	}
	if called {
		t.Fatal("resolver must not run with an invalid batch size")
	}
}

func TestRunBatches_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	results, err := worker.RunBatches(ctx, items(4), worker.BatchOptions{
		Size:    2,
		Delay:   time.Second,
		OnBatch: func(worker.BatchStats) { cancel() },
	}, identity)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected results of the first batch only, got %d", len(results))
	}
}
