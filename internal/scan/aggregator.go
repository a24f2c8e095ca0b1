package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cryptoscan/internal/analyzer"
	"cryptoscan/internal/auth"
	"cryptoscan/internal/indicators"
	"cryptoscan/internal/logger"
	"cryptoscan/internal/metrics"
	"cryptoscan/pkg/models"
)

// Depth hints forwarded to content providers.
const (
	DepthLight    = "light"
	DepthStandard = "standard"
	DepthDeep     = "deep"
)

// Source categories. Registration order fixes visitation order within a scan.
const (
	SourceEmail      = "email"
	SourceSharePoint = "sharepoint"
	SourceOneDrive   = "onedrive"
	SourceTeams      = "teams"
	SourceLocal      = "local"
	SourceCloud      = "cloud"
)

// Item is one unit of scanned material delivered by a provider.
type Item struct {
	Source   string
	ItemType string
	Content  string
}

// Request bounds what a provider fetches for one scan.
type Request struct {
	Depth    string
	MaxItems int
}

// Provider yields content items for one source category.
type Provider interface {
	Name() string
	Items(ctx context.Context, req Request) ([]Item, error)
}

// Config controls one scan invocation.
type Config struct {
	Tenant            string
	IncludeEmail      bool
	IncludeSharePoint bool
	IncludeOneDrive   bool
	IncludeTeams      bool
	IncludeLocal      bool
	IncludeCloud      bool
	MaxItems          int
	Depth             string
}

func (c Config) includes(category string) bool {
	switch category {
	case SourceEmail:
		return c.IncludeEmail
	case SourceSharePoint:
		return c.IncludeSharePoint
	case SourceOneDrive:
		return c.IncludeOneDrive
	case SourceTeams:
		return c.IncludeTeams
	case SourceLocal:
		return c.IncludeLocal
	case SourceCloud:
		return c.IncludeCloud
	default:
		return false
	}
}

type registeredProvider struct {
	category string
	provider Provider
}

// Runner drives analysis across all enabled providers and assembles the
// terminal ScanResult.
type Runner struct {
	catalog   *indicators.Catalog
	auth      auth.Result
	providers []registeredProvider
	now       func() time.Time
	newID     func() string
}

// NewRunner creates a runner bound to a catalog and an authentication result.
func NewRunner(catalog *indicators.Catalog, authResult auth.Result) *Runner {
	return &Runner{
		catalog: catalog,
		auth:    authResult,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Register appends a provider under a source category. An excluded category's
// provider is never invoked during Run.
func (r *Runner) Register(category string, p Provider) {
	r.providers = append(r.providers, registeredProvider{category: category, provider: p})
}

// Run executes one scan. It always returns a well-formed ScanResult: every
// failure mode resolves to status "failed" with a descriptive error, and any
// partial detections gathered before a fatal error are discarded.
func (r *Runner) Run(ctx context.Context, cfg Config) (result *models.ScanResult) {
	start := r.now()
	result = &models.ScanResult{
		ScanID:     r.newID(),
		Timestamp:  start,
		Tenant:     cfg.Tenant,
		Status:     models.StatusInProgress,
		Detections: []models.Detection{},
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("scan %s aborted: %v", result.ScanID, rec)
			result.Status = models.StatusFailed
			result.Error = fmt.Sprintf("internal error: %v", rec)
			result.Summary = models.ScanSummary{}
			result.Detections = []models.Detection{}
		}
		metrics.ScanDuration.Observe(r.now().Sub(start).Seconds())
	}()

	if cfg.Tenant == "" {
		result.Status = models.StatusFailed
		result.Error = "tenant identifier is required"
		return result
	}
	if !r.auth.OK {
		msg := r.auth.Err
		if msg == "" {
			msg = "authentication has not succeeded"
		}
		result.Status = models.StatusFailed
		result.Error = msg
		return result
	}

	depth := cfg.Depth
	if depth == "" {
		depth = DepthStandard
	}
	req := Request{Depth: depth, MaxItems: cfg.MaxItems}

	nextID := 1
	for _, rp := range r.providers {
		if !cfg.includes(rp.category) {
			continue
		}

		items, err := rp.provider.Items(ctx, req)
		if err != nil {
			logger.Warnf("source %s failed, continuing scan: %v", rp.provider.Name(), err)
			metrics.SourceFailures.WithLabelValues(rp.provider.Name()).Inc()
			continue
		}

		for _, item := range items {
			metrics.ItemsScanned.Inc()

			var score int
			var matches []models.Match
			if depth == DepthDeep {
				score, matches = analyzer.AnalyzeDecoded(r.catalog, item.Content)
			} else {
				score, matches = analyzer.Analyze(r.catalog, item.Content)
			}
			if score == 0 {
				continue
			}

			severity := models.SeverityForScore(score)
			result.Detections = append(result.Detections, models.Detection{
				ID:       nextID,
				Severity: severity,
				Source:   item.Source,
				ItemType: item.ItemType,
				Content:  preview(item.Content),
				Score:    score,
				Matches:  matches,
			})
			metrics.Detections.WithLabelValues(severity).Inc()
			nextID++
		}
	}

	result.Summary = summarize(result.Detections)
	result.Status = models.StatusCompleted
	return result
}

// previewBytes bounds the stored content excerpt. Matching always runs over
// the full content; only the stored copy is cut.
const previewBytes = 500

func preview(content string) string {
	if len(content) <= previewBytes {
		return content
	}
	return content[:previewBytes] + "..."
}

func summarize(detections []models.Detection) models.ScanSummary {
	var s models.ScanSummary
	for _, d := range detections {
		switch d.Severity {
		case models.SeverityHigh:
			s.High++
		case models.SeverityMedium:
			s.Medium++
		case models.SeverityLow:
			s.Low++
		}
	}
	s.Total = len(detections)
	return s
}
