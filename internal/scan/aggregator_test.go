package scan

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	regexp "github.com/wasilibs/go-re2"

	"cryptoscan/internal/auth"
	"cryptoscan/internal/indicators"
	"cryptoscan/pkg/models"
)

type stubProvider struct {
	name  string
	items []Item
	err   error
	calls int
	panic bool
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Items(ctx context.Context, req Request) ([]Item, error) {
	p.calls++
	if p.panic {
		panic("stub provider exploded")
	}
	return p.items, p.err
}

func testCatalog() *indicators.Catalog {
	return indicators.New([]indicators.Rule{
		{Pattern: regexp.MustCompile(`\bstratum\b`), Category: "Mining Pool", Weight: 90},
		{Pattern: regexp.MustCompile(`\bminerd\b`), Category: "Mining Software", Weight: 50},
		{Pattern: regexp.MustCompile(`\bhashrate\b`), Category: "Mining Keyword", Weight: 3},
	})
}

func testRunner(authResult auth.Result) *Runner {
	r := NewRunner(testCatalog(), authResult)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	r.newID = func() string { return "scan-0001" }
	return r
}

func allSources(tenant string) Config {
	return Config{
		Tenant:            tenant,
		IncludeEmail:      true,
		IncludeSharePoint: true,
		IncludeOneDrive:   true,
		IncludeTeams:      true,
		IncludeLocal:      true,
		IncludeCloud:      true,
		MaxItems:          100,
		Depth:             DepthStandard,
	}
}

func TestRunFailsWithoutTenant(t *testing.T) {
	r := testRunner(auth.Result{OK: true})
	result := r.Run(context.Background(), Config{})

	if result.Status != models.StatusFailed {
		t.Fatalf("expected failed status, got %s", result.Status)
	}
	if result.Error == "" {
		t.Fatalf("expected a descriptive error")
	}
	if result.ScanID == "" || result.Timestamp.IsZero() {
		t.Fatalf("expected scan ID and timestamp on failure: %+v", result)
	}
}

func TestRunFailsWhenAuthHasNotSucceeded(t *testing.T) {
	p := &stubProvider{name: "Exchange Online"}
	r := testRunner(auth.Result{OK: false, Err: "invalid client secret"})
	r.Register(SourceEmail, p)

	result := r.Run(context.Background(), allSources("contoso"))
	if result.Status != models.StatusFailed {
		t.Fatalf("expected failed status, got %s", result.Status)
	}
	if result.Error != "invalid client secret" {
		t.Fatalf("expected auth error to surface, got %q", result.Error)
	}
	if p.calls != 0 {
		t.Fatalf("expected no provider calls after failed auth, got %d", p.calls)
	}
	if len(result.Detections) != 0 {
		t.Fatalf("expected empty detections, got %d", len(result.Detections))
	}
}

func TestRunSkipsExcludedSources(t *testing.T) {
	email := &stubProvider{name: "Exchange Online"}
	local := &stubProvider{name: "Local System"}
	r := testRunner(auth.Result{OK: true})
	r.Register(SourceEmail, email)
	r.Register(SourceLocal, local)

	cfg := allSources("contoso")
	cfg.IncludeEmail = false
	cfg.IncludeSharePoint = false
	cfg.IncludeOneDrive = false
	cfg.IncludeTeams = false
	cfg.IncludeCloud = false

	result := r.Run(context.Background(), cfg)
	if result.Status != models.StatusCompleted {
		t.Fatalf("expected completed status, got %s", result.Status)
	}
	if email.calls != 0 {
		t.Fatalf("expected excluded email provider to stay idle, got %d calls", email.calls)
	}
	if local.calls != 1 {
		t.Fatalf("expected local provider to run once, got %d calls", local.calls)
	}
}

func TestRunWithAllSourcesDisabledCompletesEmpty(t *testing.T) {
	p := &stubProvider{name: "Exchange Online", items: []Item{{Source: "Exchange Online", ItemType: "Email", Content: "stratum"}}}
	r := testRunner(auth.Result{OK: true})
	r.Register(SourceEmail, p)

	result := r.Run(context.Background(), Config{Tenant: "contoso"})
	if result.Status != models.StatusCompleted {
		t.Fatalf("expected completed status, got %s", result.Status)
	}
	if p.calls != 0 {
		t.Fatalf("expected no provider calls, got %d", p.calls)
	}
	if result.Summary.Total != 0 || len(result.Detections) != 0 {
		t.Fatalf("expected empty result, got %+v", result.Summary)
	}
}

func TestRunAssignsSequentialDetectionIDs(t *testing.T) {
	email := &stubProvider{name: "Exchange Online", items: []Item{
		{Source: "Exchange Online", ItemType: "Email", Content: "join us at the stratum endpoint"},
		{Source: "Exchange Online", ItemType: "Email", Content: "nothing of note"},
		{Source: "Exchange Online", ItemType: "Email", Content: "minerd deployment notes"},
	}}
	teams := &stubProvider{name: "Teams", items: []Item{
		{Source: "Teams", ItemType: "Chat Message", Content: "hashrate looks great"},
	}}
	r := testRunner(auth.Result{OK: true})
	r.Register(SourceEmail, email)
	r.Register(SourceTeams, teams)

	result := r.Run(context.Background(), allSources("contoso"))
	if result.Status != models.StatusCompleted {
		t.Fatalf("expected completed status, got %s", result.Status)
	}
	if len(result.Detections) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(result.Detections))
	}
	for i, d := range result.Detections {
		if d.ID != i+1 {
			t.Fatalf("expected detection ID %d, got %d", i+1, d.ID)
		}
	}
	if result.Detections[0].Severity != models.SeverityHigh {
		t.Fatalf("expected HIGH for score 90, got %s", result.Detections[0].Severity)
	}
	if result.Detections[1].Severity != models.SeverityMedium {
		t.Fatalf("expected MEDIUM for score 50, got %s", result.Detections[1].Severity)
	}
	if result.Detections[2].Severity != models.SeverityLow {
		t.Fatalf("expected LOW for score 3, got %s", result.Detections[2].Severity)
	}
}

func TestRunSummaryCountsMatchDetections(t *testing.T) {
	p := &stubProvider{name: "OneDrive", items: []Item{
		{Source: "OneDrive", ItemType: "File", Content: "stratum config"},
		{Source: "OneDrive", ItemType: "File", Content: "minerd build"},
		{Source: "OneDrive", ItemType: "File", Content: "hashrate chart"},
	}}
	r := testRunner(auth.Result{OK: true})
	r.Register(SourceOneDrive, p)

	result := r.Run(context.Background(), allSources("contoso"))
	s := result.Summary
	if s.Total != len(result.Detections) {
		t.Fatalf("summary total %d does not match detections %d", s.Total, len(result.Detections))
	}
	if s.High+s.Medium+s.Low != s.Total {
		t.Fatalf("severity counts %d+%d+%d do not add up to %d", s.High, s.Medium, s.Low, s.Total)
	}
	if s.High != 1 || s.Medium != 1 || s.Low != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestRunContinuesAfterSourceFailure(t *testing.T) {
	broken := &stubProvider{name: "SharePoint", err: errors.New("throttled")}
	healthy := &stubProvider{name: "Teams", items: []Item{
		{Source: "Teams", ItemType: "Chat Message", Content: "stratum invite"},
	}}
	r := testRunner(auth.Result{OK: true})
	r.Register(SourceSharePoint, broken)
	r.Register(SourceTeams, healthy)

	result := r.Run(context.Background(), allSources("contoso"))
	if result.Status != models.StatusCompleted {
		t.Fatalf("expected scan to complete despite source failure, got %s", result.Status)
	}
	if result.Error != "" {
		t.Fatalf("expected no terminal error for recoverable failure, got %q", result.Error)
	}
	if len(result.Detections) != 1 {
		t.Fatalf("expected detection from the healthy source, got %d", len(result.Detections))
	}
}

func TestRunConvertsPanicToFailedResult(t *testing.T) {
	p := &stubProvider{name: "Exchange Online", panic: true}
	r := testRunner(auth.Result{OK: true})
	r.Register(SourceEmail, p)

	result := r.Run(context.Background(), allSources("contoso"))
	if result.Status != models.StatusFailed {
		t.Fatalf("expected failed status after panic, got %s", result.Status)
	}
	if !strings.HasPrefix(result.Error, "internal error:") {
		t.Fatalf("expected internal error prefix, got %q", result.Error)
	}
	if len(result.Detections) != 0 || result.Summary.Total != 0 {
		t.Fatalf("expected partial results discarded, got %+v", result)
	}
}

func TestRunTruncatesStoredContent(t *testing.T) {
	long := "stratum " + strings.Repeat("x", 2000)
	p := &stubProvider{name: "OneDrive", items: []Item{
		{Source: "OneDrive", ItemType: "File", Content: long},
	}}
	r := testRunner(auth.Result{OK: true})
	r.Register(SourceOneDrive, p)

	result := r.Run(context.Background(), allSources("contoso"))
	if len(result.Detections) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(result.Detections))
	}
	got := result.Detections[0].Content
	if len(got) != previewBytes+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected %d-byte preview with ellipsis, got %d bytes", previewBytes, len(got))
	}
}

func TestScanResultJSONFieldNames(t *testing.T) {
	p := &stubProvider{name: "Exchange Online", items: []Item{
		{Source: "Exchange Online", ItemType: "Email", Content: "stratum notes"},
	}}
	r := testRunner(auth.Result{OK: true})
	r.Register(SourceEmail, p)

	result := r.Run(context.Background(), allSources("contoso"))
	payload, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	for _, field := range []string{`"scanId"`, `"timestamp"`, `"tenant"`, `"status"`, `"summary"`, `"detections"`, `"itemType"`, `"severity"`, `"score"`, `"matches"`, `"category"`, `"weight"`} {
		if !strings.Contains(string(payload), field) {
			t.Fatalf("expected field %s in payload: %s", field, payload)
		}
	}
	if strings.Contains(string(payload), `"error"`) {
		t.Fatalf("expected error field omitted on success: %s", payload)
	}

	var decoded models.ScanResult
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if decoded.Summary != result.Summary {
		t.Fatalf("summary changed across round trip: %+v vs %+v", decoded.Summary, result.Summary)
	}
	if len(decoded.Detections) != len(result.Detections) {
		t.Fatalf("detection count changed across round trip")
	}
	for i := range decoded.Detections {
		if decoded.Detections[i].ID != result.Detections[i].ID {
			t.Fatalf("detection order changed across round trip at index %d", i)
		}
	}
}
