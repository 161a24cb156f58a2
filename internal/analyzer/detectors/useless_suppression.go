package detectors

import (
	"fmt"
	"strings"

	"itercheck/internal/context"
	"itercheck/internal/directives/ignore"
	"itercheck/internal/models"
)

// UselessSuppressionDetector reports suppression comments that silenced
// nothing. It reads the usage marks left by earlier detectors, so it must
// run last.
type UselessSuppressionDetector struct {
	enabled map[ignore.RuleName]bool
}

func NewUselessSuppressionDetector(enabledRules ...ignore.RuleName) *UselessSuppressionDetector {
	enabled := make(map[ignore.RuleName]bool, len(enabledRules))
	for _, r := range enabledRules {
		enabled[ignore.Canonical(r)] = true
	}
	return &UselessSuppressionDetector{enabled: enabled}
}

func (d *UselessSuppressionDetector) Name() string {
	return "Useless Suppression Detector"
}

func (d *UselessSuppressionDetector) Detect(ctx *context.AnalysisContext) []models.Issue {
	if !ctx.RespectIgnores {
		return nil
	}
	issues := make([]models.Issue, 0)
	for _, u := range ctx.Ignores.GetUnused(d.enabled) {
		issues = append(issues, models.Issue{
			Type:        models.IssueUselessSuppression,
			Severity:    models.SeverityLow,
			File:        ctx.Filename,
			Line:        u.Pos.Line,
			Column:      u.Pos.Column,
			Symbol:      "useless-suppression",
			Message:     uselessMessage(u),
			Suggestion:  "Remove the comment, or the rule names it no longer needs.",
			CodeSnippet: ctx.SourceLine(u.Pos.Line),
		})
	}
	return issues
}

func uselessMessage(u ignore.Unused) string {
	if len(u.Rules) == 0 {
		return "Suppression comment does not silence any finding"
	}
	names := make([]string, len(u.Rules))
	for i, r := range u.Rules {
		names[i] = string(r)
	}
	return fmt.Sprintf("Useless suppression of '%s'", strings.Join(names, "', '"))
}
