package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"cryptoscan/internal/scan"
)

type capturedRequest struct {
	path  string
	query map[string][]string
	auth  string
}

func newTestServer(t *testing.T, items []apiItem, capture *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			capture.path = r.URL.Path
			capture.query = r.URL.Query()
			capture.auth = r.Header.Get("Authorization")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(itemPage{Value: items})
	}))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}

func TestProviderFetchesAndMapsItems(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, []apiItem{
		{ID: "m1", ItemType: "Email", Content: "stratum+tcp://pool.example.com:3333"},
		{ID: "m2", Content: "plain message"},
		{ID: "m3", ItemType: "Email", Content: ""},
	}, &captured)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, Token: "tok-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := NewEmail(client)
	items, err := p.Items(context.Background(), scan.Request{Depth: scan.DepthDeep, MaxItems: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected empty-content items dropped, got %d", len(items))
	}
	if items[0].Source != "Exchange Online" || items[0].ItemType != "Email" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].ItemType != "Email" {
		t.Fatalf("expected default item type fallback, got %q", items[1].ItemType)
	}

	if captured.path != "/messages" {
		t.Fatalf("unexpected request path: %s", captured.path)
	}
	q := url.Values(captured.query)
	if q.Get("top") != "25" || q.Get("detail") != "full" {
		t.Fatalf("unexpected query: %v", captured.query)
	}
	if captured.auth != "Bearer tok-123" {
		t.Fatalf("expected bearer token header, got %q", captured.auth)
	}
}

func TestProviderPathsPerCategory(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, nil, &captured)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		provider *Provider
		name     string
		path     string
	}{
		{NewEmail(client), "Exchange Online", "/messages"},
		{NewSharePoint(client), "SharePoint", "/sites/content"},
		{NewOneDrive(client), "OneDrive", "/drive/items"},
		{NewTeams(client), "Teams", "/chats/messages"},
		{NewCloudStorage(client), "Cloud Storage", "/storage/objects"},
	}
	for _, tc := range cases {
		if tc.provider.Name() != tc.name {
			t.Fatalf("expected provider name %s, got %s", tc.name, tc.provider.Name())
		}
		if _, err := tc.provider.Items(context.Background(), scan.Request{}); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if captured.path != tc.path {
			t.Fatalf("%s: expected path %s, got %s", tc.name, tc.path, captured.path)
		}
	}
}

func TestProviderSurfacesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewTeams(client).Items(context.Background(), scan.Request{}); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}

func TestDetailForDepth(t *testing.T) {
	cases := map[string]string{
		scan.DepthLight:    "preview",
		scan.DepthStandard: "body",
		scan.DepthDeep:     "full",
		"":                 "body",
	}
	for depth, want := range cases {
		if got := detailFor(depth); got != want {
			t.Fatalf("depth %q: expected %s, got %s", depth, want, got)
		}
	}
}
