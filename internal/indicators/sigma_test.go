package indicators

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write rule file: %v", err)
	}
}

const keywordRule = `
title: Miner Download Command
id: 11111111-1111-1111-1111-111111111111
level: high
detection:
  keywords:
    - 'xmrig-6.*.tar.gz'
    - 'minerd --background'
  condition: keywords
`

const structuredRule = `
title: Structured Process Rule
id: 22222222-2222-2222-2222-222222222222
level: high
logsource:
  category: process_creation
detection:
  selection:
    Image|endswith: '\xmrig.exe'
  condition: selection
`

func TestLoadSigmaConvertsKeywordRules(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "keywords.yml", keywordRule)

	rules, stats, err := LoadSigma(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalFiles != 1 || stats.Loaded != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 converted rules, got %d", len(rules))
	}
	for _, rule := range rules {
		if rule.Category != "Miner Download Command" {
			t.Fatalf("expected rule title as category, got %q", rule.Category)
		}
		if rule.Weight != 8 {
			t.Fatalf("expected weight 8 for level high, got %d", rule.Weight)
		}
	}
	if !rules[0].Pattern.MatchString("fetch xmrig-6.21.0.tar.gz from mirror") {
		t.Fatalf("expected wildcard keyword to match versioned archive name")
	}
	if rules[0].Pattern.MatchString("xmrig-6tar.gz") {
		t.Fatalf("expected literal dots to stay escaped")
	}
}

func TestLoadSigmaSkipsStructuredRules(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "keywords.yml", keywordRule)
	writeRuleFile(t, dir, "structured.yml", structuredRule)
	writeRuleFile(t, dir, "broken.yml", "title: [unclosed")
	writeRuleFile(t, dir, "notes.txt", "not a rule")

	rules, stats, err := LoadSigma(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalFiles != 3 {
		t.Fatalf("expected 3 yaml files, got %d", stats.TotalFiles)
	}
	if stats.Loaded != 1 || stats.SkippedComplex != 1 || stats.SkippedInvalid != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(rules) != 2 {
		t.Fatalf("expected only keyword rules converted, got %d", len(rules))
	}
}

func TestLoadSigmaRejectsMissingPath(t *testing.T) {
	if _, _, err := LoadSigma(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatalf("expected error for missing rule path")
	}
}

func TestSigmaLevelWeights(t *testing.T) {
	cases := map[string]int{
		"critical": 9,
		"High":     8,
		"medium":   5,
		"low":      3,
		"":         5,
	}
	for level, want := range cases {
		if got := sigmaLevelWeight(level); got != want {
			t.Fatalf("level %q: expected weight %d, got %d", level, want, got)
		}
	}
}
