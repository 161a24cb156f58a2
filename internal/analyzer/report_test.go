package analyzer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itercheck/internal/config"
	"itercheck/internal/models"
)

func sampleResult() *models.AnalysisResult {
	result := models.NewAnalysisResult()
	result.Files = []string{"a.py", "b.py"}
	result.AddIssue(models.Issue{
		Type:        models.IssueReusedIterator,
		Severity:    models.SeverityMedium,
		File:        "b.py",
		Line:        3,
		Column:      14,
		Function:    "pairs",
		MessageID:   "W4802",
		Symbol:      "reused-iterator",
		Variable:    "squares",
		Confidence:  "HIGH",
		Message:     "Iterator 'squares' is re-used in a loop. It will likely be exhausted after the first iteration.",
		Suggestion:  "Create it inside the loop\n  or materialize it: squares = list(squares)",
		DefinedAt:   "1:1",
		CodeSnippet: "for s in squares:",
	})
	result.AddIssue(models.Issue{
		Type:     models.IssueUselessSuppression,
		Severity: models.SeverityLow,
		File:     "a.py",
		Line:     7,
		Column:   9,
		Symbol:   "useless-suppression",
		Message:  "Useless suppression of 'reused-iterator'",
	})
	result.AddSkipped("c.py", assert.AnError)
	result.SortIssues()
	result.AnalysisDuration = "1ms"
	result.CalculateScore()
	return result
}

func plainConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.Colors = false
	return cfg
}

func TestConsoleReport(t *testing.T) {
	cfg := plainConfig()
	cfg.Output.ShowSuggestions = true
	report := NewReportGeneratorWithConfig(cfg).Generate(sampleResult())

	for _, want := range []string{
		"itercheck Analysis Report",
		"   Files analyzed: 2\n",
		"   Files skipped: 1\n",
		"   Issues found: 2\n",
		"Quality Score: 84/100",
		"   MEDIUM: 1\n",
		"   LOW: 1\n",
		"Issue #1 - LOW useless-suppression\n",
		"Issue #2 - MEDIUM W4802 reused-iterator\n",
		"   Location: b.py:3:14 in function 'pairs'\n",
		"   Code: for s in squares:\n",
		"   Created at: 1:1 (confidence HIGH)\n",
		"      or materialize it: squares = list(squares)\n",
		"Skipped Files:\n   c.py: " + assert.AnError.Error(),
		"Analysis completed in 1ms\n",
	} {
		assert.Contains(t, report, want)
	}
	assert.NotContains(t, report, "🔍")
	assert.NotContains(t, report, "Configuration:")
	assert.Less(t, strings.Index(report, "a.py\n"), strings.Index(report, "b.py\n"))
}

func TestConsoleReportOptions(t *testing.T) {
	cfg := plainConfig()
	cfg.Output.Verbose = true
	report := NewReportGeneratorWithConfig(cfg).Generate(sampleResult())

	assert.Contains(t, report, "   Rules: reused-iterator\n")
	assert.Contains(t, report, "   Producers: map, filter, zip, iter, reversed\n")
	assert.Contains(t, report, "   Score thresholds: 90/75/50\n")
	assert.NotContains(t, report, "Suggestion:")

	empty := models.NewAnalysisResult()
	empty.CalculateScore()
	report = NewReportGeneratorWithConfig(plainConfig()).Generate(empty)
	assert.Contains(t, report, "No reused iterators detected!")
	assert.Contains(t, report, "Quality Score: 100/100")
}

func TestJSONReport(t *testing.T) {
	cfg := plainConfig()
	cfg.Output.Format = "json"
	out := NewReportGeneratorWithConfig(cfg).Generate(sampleResult())

	var decoded struct {
		TotalIssues  int `json:"total_issues"`
		QualityScore int `json:"quality_score"`
		Issues       []struct {
			File     string `json:"file"`
			Variable string `json:"variable"`
			Severity int    `json:"severity"`
		} `json:"issues"`
		Skipped []models.SkippedFile `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.TotalIssues)
	assert.Equal(t, 84, decoded.QualityScore)
	require.Len(t, decoded.Issues, 2)
	assert.Equal(t, "squares", decoded.Issues[1].Variable)
	assert.Equal(t, int(models.SeverityMedium), decoded.Issues[1].Severity)
	assert.Equal(t, "c.py", decoded.Skipped[0].File)
}
