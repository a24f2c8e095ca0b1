package analyzer

import (
	"encoding/base64"
	"strings"
	"unicode"

	regexp "github.com/wasilibs/go-re2"

	"cryptoscan/internal/indicators"
	"cryptoscan/pkg/models"
)

// maxScore is the normalization cap. Multiple high-weight matches saturate
// quickly; the score is a confidence tier, not a risk magnitude.
const maxScore = 100

// Analyze scores one piece of content against the catalog. Rules are tested
// in catalog order; a matching rule contributes its weight exactly once and
// records the first matched substring. Empty content scores zero.
func Analyze(catalog *indicators.Catalog, content string) (int, []models.Match) {
	if content == "" {
		return 0, nil
	}

	score := 0
	var matches []models.Match
	for _, rule := range catalog.Rules() {
		loc := rule.Pattern.FindStringIndex(content)
		if loc == nil {
			continue
		}
		score += rule.Weight
		matches = append(matches, models.Match{
			Match:    content[loc[0]:loc[1]],
			Category: rule.Category,
			Weight:   rule.Weight,
		})
	}

	if score > maxScore {
		score = maxScore
	}
	return score, matches
}

// AnalyzeDecoded is Analyze plus a base64 pass: base64 runs embedded in the
// content are decoded and appended to the analyzed text, so indicators hidden
// behind encoding still fire. A rule contributes at most once across the raw
// and decoded text.
func AnalyzeDecoded(catalog *indicators.Catalog, content string) (int, []models.Match) {
	if content == "" {
		return 0, nil
	}
	decoded := decodeBase64Runs(content)
	if decoded == "" {
		return Analyze(catalog, content)
	}
	return Analyze(catalog, content+" "+decoded)
}

var base64Run = regexp.MustCompile(`[A-Za-z0-9+/]{24,}={0,2}`)

// decodeBase64Runs extracts plausible base64 runs and returns the decoded
// fragments that look like text. Undecodable or binary runs are dropped.
func decodeBase64Runs(content string) string {
	runs := base64Run.FindAllString(content, -1)
	if len(runs) == 0 {
		return ""
	}

	var b strings.Builder
	for _, run := range runs {
		if len(run)%4 != 0 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(run)
		if err != nil {
			continue
		}
		text := string(raw)
		if len(text) <= 10 || !isMostlyPrintable(text) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}

func isMostlyPrintable(s string) bool {
	printable := 0
	total := 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return false
	}
	return printable*10 >= total*9
}
