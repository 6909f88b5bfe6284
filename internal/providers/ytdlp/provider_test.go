package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeRunner struct {
	output   []byte
	err      error
	lastArgs []string
	calls    int
}

func (f *fakeRunner) Run(_ context.Context, args []string) ([]byte, error) {
	f.calls++
	f.lastArgs = append([]string(nil), args...)
	return f.output, f.err
}

func flatLines(count int) []byte {
	var b strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, `{"id":"vid%03d","title":"Result %d","duration":%d}`, i, i, 60+i)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func TestSearchFirstPageReturnsFirstTwenty(t *testing.T) {
	runner := &fakeRunner{output: flatLines(25)}
	provider := NewProvider(Config{Runner: runner})

	records, err := provider.Search(context.Background(), "lofi", 1)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("expected 20 records, got %d", len(records))
	}
	if records[0].VideoID != "vid000" || records[19].VideoID != "vid019" {
		t.Fatalf("unexpected slice bounds: %s..%s", records[0].VideoID, records[19].VideoID)
	}
}

func TestSearchBuildsFlatPlaylistInvocation(t *testing.T) {
	runner := &fakeRunner{output: nil}
	provider := NewProvider(Config{Runner: runner})

	if _, err := provider.Search(context.Background(), "lofi beats", 2); err != nil {
		t.Fatalf("search error: %v", err)
	}
	want := []string{"--flat-playlist", "--dump-json", "--skip-download", "--no-warnings", "ytsearch40:lofi beats"}
	if len(runner.lastArgs) != len(want) {
		t.Fatalf("unexpected args: %v", runner.lastArgs)
	}
	for i := range want {
		if runner.lastArgs[i] != want[i] {
			t.Fatalf("arg %d: got %q, want %q", i, runner.lastArgs[i], want[i])
		}
	}
}

func TestSearchPagesAreDisjointAndContiguous(t *testing.T) {
	output := flatLines(45)
	provider := NewProvider(Config{Runner: &fakeRunner{output: output}})

	page1, err := provider.Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("page 1 error: %v", err)
	}
	page2, err := provider.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("page 2 error: %v", err)
	}
	if len(page1) != 20 {
		t.Fatalf("expected exactly 20 records on page 1, got %d", len(page1))
	}
	if len(page2) != 20 {
		t.Fatalf("expected exactly 20 records on page 2, got %d", len(page2))
	}
	if page1[19].VideoID != "vid019" || page2[0].VideoID != "vid020" {
		t.Fatalf("page 2 should start where page 1 ended: %s / %s", page1[19].VideoID, page2[0].VideoID)
	}
	seen := make(map[string]bool, len(page1))
	for _, r := range page1 {
		seen[r.VideoID] = true
	}
	for _, r := range page2 {
		if seen[r.VideoID] {
			t.Fatalf("record %s appears on both pages", r.VideoID)
		}
	}
}

func TestSearchLastPageIsPartial(t *testing.T) {
	provider := NewProvider(Config{Runner: &fakeRunner{output: flatLines(45)}})

	page3, err := provider.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("page 3 error: %v", err)
	}
	if len(page3) != 5 {
		t.Fatalf("expected 5 trailing records, got %d", len(page3))
	}
	if page3[0].VideoID != "vid040" || page3[4].VideoID != "vid044" {
		t.Fatalf("unexpected trailing page: %s..%s", page3[0].VideoID, page3[4].VideoID)
	}
}

func TestSearchPastEndReturnsEmpty(t *testing.T) {
	provider := NewProvider(Config{Runner: &fakeRunner{output: flatLines(5)}})

	records, err := provider.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty result past the end, got %d", len(records))
	}
}

func TestSearchSkipsMalformedLines(t *testing.T) {
	output := []byte(`{"id":"ok1","title":"Good"}
{broken json
{"title":"missing id"}

{"id":"ok2","title":"Also good","duration":120}
`)
	provider := NewProvider(Config{Runner: &fakeRunner{output: output}})

	records, err := provider.Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].VideoID != "ok1" || records[1].VideoID != "ok2" {
		t.Fatalf("unexpected records: %#v", records)
	}
	if records[0].DurationSeconds != 0 {
		t.Fatalf("expected default duration 0, got %d", records[0].DurationSeconds)
	}
}

func TestSearchWrapsRunnerFailure(t *testing.T) {
	provider := NewProvider(Config{Runner: &fakeRunner{err: errors.New("exit status 1")}})

	_, err := provider.Search(context.Background(), "q", 1)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestSearchClampsPageToOne(t *testing.T) {
	runner := &fakeRunner{output: flatLines(3)}
	provider := NewProvider(Config{Runner: runner})

	records, err := provider.Search(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if runner.lastArgs[len(runner.lastArgs)-1] != "ytsearch20:q" {
		t.Fatalf("unexpected target: %v", runner.lastArgs)
	}
}
