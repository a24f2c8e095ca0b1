package indicators

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	regexp "github.com/wasilibs/go-re2"
)

// SigmaLoadStats tracks the number of loaded and skipped rules.
type SigmaLoadStats struct {
	TotalFiles     int
	Loaded         int
	SkippedComplex int
	SkippedInvalid int
}

// LoadSigma reads Sigma rules from a file or directory and converts their
// keyword searches into indicator rules. Rules that rely on structured event
// matchers, aggregations or timeframes cannot be evaluated against flat text
// content and are skipped with stats.
func LoadSigma(path string) ([]Rule, SigmaLoadStats, error) {
	var stats SigmaLoadStats

	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, stats, fmt.Errorf("resolve rule path: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, stats, fmt.Errorf("stat rule path: %w", err)
	}

	files := make([]string, 0, 64)
	if info.IsDir() {
		err = filepath.WalkDir(resolved, func(filePath string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			if isYAMLFile(filePath) {
				files = append(files, filePath)
			}
			return nil
		})
		if err != nil {
			return nil, stats, fmt.Errorf("walk rule directory: %w", err)
		}
	} else {
		if !isYAMLFile(resolved) {
			return nil, stats, fmt.Errorf("rule file must end with .yml or .yaml: %s", resolved)
		}
		files = append(files, resolved)
	}

	stats.TotalFiles = len(files)
	out := make([]Rule, 0, len(files))
	for _, ruleFile := range files {
		raw, err := os.ReadFile(ruleFile)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		rule, err := sigma.ParseRule(raw)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}

		converted, ok := keywordRules(rule)
		if !ok {
			stats.SkippedComplex++
			continue
		}
		out = append(out, converted...)
		stats.Loaded++
	}

	return out, stats, nil
}

// keywordRules converts one Sigma rule into indicator rules, one per keyword.
func keywordRules(rule sigma.Rule) ([]Rule, bool) {
	if rule.Detection.Timeframe > 0 {
		return nil, false
	}
	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil {
			return nil, false
		}
	}

	var keywords []string
	for _, search := range rule.Detection.Searches {
		if len(search.EventMatchers) > 0 {
			return nil, false
		}
		keywords = append(keywords, search.Keywords...)
	}
	if len(keywords) == 0 {
		return nil, false
	}

	category := strings.TrimSpace(rule.Title)
	if category == "" {
		category = strings.TrimSpace(rule.ID)
	}
	weight := sigmaLevelWeight(rule.Level)

	out := make([]Rule, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + keywordPattern(kw))
		if err != nil {
			continue
		}
		out = append(out, Rule{Pattern: re, Category: category, Weight: weight})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// keywordPattern escapes a Sigma keyword and expands its wildcards.
func keywordPattern(keyword string) string {
	quoted := regexp.QuoteMeta(keyword)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	return quoted
}

func sigmaLevelWeight(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "critical":
		return 9
	case "high":
		return 8
	case "low":
		return 3
	default:
		return 5
	}
}

func isYAMLFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}
