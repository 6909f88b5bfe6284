package invidious

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrendingHitsExpectedPath(t *testing.T) {
	var gotPath, gotType, gotRegion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.URL.Query().Get("type")
		gotRegion = r.URL.Query().Get("region")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title":"Hit","videoId":"t1","lengthSeconds":180}]`))
	}))
	defer server.Close()

	client := NewClient(Config{Client: server.Client()})

	records, err := client.Trending(context.Background(), server.URL, "JP")
	if err != nil {
		t.Fatalf("trending error: %v", err)
	}
	if gotPath != "/api/v1/trending" || gotType != "music" || gotRegion != "JP" {
		t.Fatalf("unexpected request: path=%s type=%s region=%s", gotPath, gotType, gotRegion)
	}
	if len(records) != 1 || records[0].VideoID != "t1" {
		t.Fatalf("unexpected records: %#v", records)
	}
}

func TestTrendingEmptyArrayIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(Config{Client: server.Client()})

	records, err := client.Trending(context.Background(), server.URL, "US")
	if err != nil {
		t.Fatalf("expected success for empty array, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestTrendingNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	client := NewClient(Config{Client: server.Client()})

	if _, err := client.Trending(context.Background(), server.URL, "US"); err == nil {
		t.Fatal("expected error for non-success status")
	}
}

func TestTrendingUnparsableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>cloudflare says no</html>`))
	}))
	defer server.Close()

	client := NewClient(Config{Client: server.Client()})

	if _, err := client.Trending(context.Background(), server.URL, "US"); err == nil {
		t.Fatal("expected error for unparsable body")
	}
}

func TestTrendingRejectsBadMirrorBase(t *testing.T) {
	client := NewClient(Config{})

	for _, mirror := range []string{"", "not a url", "relative/path"} {
		if _, err := client.Trending(context.Background(), mirror, "US"); err == nil {
			t.Fatalf("expected error for mirror %q", mirror)
		}
	}
}
