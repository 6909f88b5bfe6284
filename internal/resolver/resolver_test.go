package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
)

func TestResolveEmptyCandidates(t *testing.T) {
	_, err := Resolve(context.Background(), nil, func(context.Context, string) (int, error) {
		t.Fatal("probe must not run with no candidates")
		return 0, nil
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestResolveReturnsFirstSuccess(t *testing.T) {
	attempts := 0
	result, err := Resolve(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, candidate string) (string, error) {
		attempts++
		if candidate == "b" {
			return "answer-from-b", nil
		}
		return "", errors.New("probe failed: " + candidate)
	})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if result != "answer-from-b" {
		t.Fatalf("unexpected result: %q", result)
	}
	if attempts < 1 || attempts > 3 {
		t.Fatalf("unexpected attempt count: %d", attempts)
	}
}

func TestResolveStopsAfterSuccess(t *testing.T) {
	attempts := 0
	_, err := Resolve(context.Background(), []int{1, 2, 3, 4}, func(_ context.Context, _ int) (bool, error) {
		attempts++
		return true, nil
	})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt after immediate success, got %d", attempts)
	}
}

func TestResolveExhaustsAllCandidates(t *testing.T) {
	var tried []string
	_, err := Resolve(context.Background(), []string{"m1", "m2", "m3"}, func(_ context.Context, candidate string) (int, error) {
		tried = append(tried, candidate)
		return 0, errors.New(candidate + " down")
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	sort.Strings(tried)
	if len(tried) != 3 || tried[0] != "m1" || tried[2] != "m3" {
		t.Fatalf("expected every candidate to be tried once, got %v", tried)
	}
	for _, candidate := range []string{"m1", "m2", "m3"} {
		if !strings.Contains(err.Error(), candidate) {
			t.Fatalf("aggregate error should mention %s: %v", candidate, err)
		}
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	candidates := []string{"a", "b", "c", "d", "e"}
	original := append([]string(nil), candidates...)

	_, _ = Resolve(context.Background(), candidates, func(_ context.Context, _ string) (int, error) {
		return 0, errors.New("nope")
	})

	for i := range original {
		if candidates[i] != original[i] {
			t.Fatalf("input slice mutated: %v", candidates)
		}
	}
}

func TestResolveHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := Resolve(ctx, []int{1, 2, 3}, func(_ context.Context, _ int) (int, error) {
		attempts++
		cancel()
		return 0, errors.New("fail then cancel")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected scan to stop after cancellation, got %d attempts", attempts)
	}
}
